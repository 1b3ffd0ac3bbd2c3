package auth

import (
	"errors"
	"time"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/golang-jwt/jwt/v5"
)

// User is the credentials row. Profile data lives in the profile package;
// this type carries only what login and role resolution need.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserRole is one role grant. A user may hold several.
type UserRole struct {
	ID        int64         `gorm:"primaryKey"`
	UserID    int64         `gorm:"column:user_id;not null;index:idx_user_roles_user_role,unique"`
	Role      internal.Role `gorm:"column:role;not null;index:idx_user_roles_user_role,unique"`
	GrantedBy *int64        `gorm:"column:granted_by"`
	CreatedAt time.Time     `gorm:"column:created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims are the JWT claims. Roles are deliberately absent: they are
// resolved from storage on every request so a revocation takes effect
// without waiting for token expiry.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and validates signed tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID, email string) (string, error)
	GenerateRefreshToken(userID, email string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserInactive       = errors.New("user is inactive")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUserNotFound       = errors.New("user not found")
)
