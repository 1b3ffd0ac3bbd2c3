package internal

import "context"

// Role is one of the four workflow roles. A user holds a set of roles; the set
// is resolved fresh from storage per request and never trusted from the client.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleOwner    Role = "owner"
	RoleAccounts Role = "accounts"
)

// rolePriority ranks roles for primary-role selection. Insertion order of
// user_roles rows must never decide which dashboard a multi-role user lands
// on.
var rolePriority = map[Role]int{
	RoleOwner:    4,
	RoleAccounts: 3,
	RoleManager:  2,
	RoleEmployee: 1,
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleEmployee, RoleManager, RoleOwner, RoleAccounts:
		return Role(s), true
	}
	return "", false
}

// PrimaryRole selects the highest-priority role held. For an empty set it
// returns RoleEmployee as a display hint only; authorization decisions must
// always consult the full set, which stays empty (fail closed).
func PrimaryRole(roles []Role) Role {
	primary := RoleEmployee
	best := 0
	for _, r := range roles {
		if p := rolePriority[r]; p > best {
			best = p
			primary = r
		}
	}
	return primary
}

// Actor is the authenticated identity plus its resolved role set, as attached
// to the request context by the auth middleware.
type Actor struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Roles []Role `json:"roles"`
}

func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

// IsStaff reports whether the actor holds any role beyond employee. Staff may
// see all profiles, needed to render requester names in approval queues.
func (a Actor) IsStaff() bool {
	return a.HasAnyRole(RoleManager, RoleOwner, RoleAccounts)
}

func (a Actor) PrimaryRole() Role {
	return PrimaryRole(a.Roles)
}

type ctxKey string

const contextActorKey ctxKey = "actor"

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(contextActorKey).(Actor)
	return a, ok
}
