package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/policy"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	GetByEmail(email string) (*User, error)
	GetByID(userID int64) (*User, error)
	CreateUser(user *User, name, department string) error
	RolesForUser(userID int64) ([]internal.Role, error)
	GrantRole(userID int64, role internal.Role, grantedBy int64) error
	RevokeRole(userID int64, role internal.Role) error
}

type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(userRepo UserRepository, tokenGen TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// SignUp registers a new account. The employee role is granted inside the
// same transaction as the user row so no account ever exists without it.
func (s *Service) SignUp(dto SignupDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.userRepo.GetByEmail(dto.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        dto.Email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.userRepo.CreateUser(user, dto.Name, dto.Department); err != nil {
		s.logger.Error("signup failed", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Authenticate validates credentials and returns a token pair.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	user, err := s.userRepo.GetByEmail(dto.Email)
	if err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return AuthTokens{}, ErrUserInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

// RefreshTokens validates a refresh token and returns a fresh pair.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}
	if !user.IsActive {
		return AuthTokens{}, ErrUserInactive
	}

	return s.issueTokens(user)
}

func (s *Service) issueTokens(user *User) (AuthTokens, error) {
	uid := strconv.FormatInt(user.ID, 10)

	accessToken, err := s.tokenGenerator.GenerateAccessToken(uid, user.Email)
	if err != nil {
		return AuthTokens{}, err
	}
	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(uid, user.Email)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// ResolveActor builds the request actor from token claims. Roles come from
// storage, never from the token. A storage failure resolves to an empty role
// set: the request proceeds authenticated but can pass no role check.
func (s *Service) ResolveActor(claims *Claims) internal.Actor {
	actor := internal.Actor{Email: claims.Email}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		s.logger.Warn("failed to parse user id from token claims", "value", claims.UserID, "error", err)
		return actor
	}
	actor.ID = userID

	roles, err := s.userRepo.RolesForUser(userID)
	if err != nil {
		s.logger.Error("role resolution failed, proceeding with empty role set",
			"user_id", userID, "error", err)
		return actor
	}
	actor.Roles = roles
	return actor
}

// GrantRole assigns a role to a user. Owner only.
func (s *Service) GrantRole(actor internal.Actor, dto GrantRoleDTO) error {
	if !policy.CanManageRoles(actor) {
		return internal.ErrUnauthorized
	}
	if err := dto.Validate(); err != nil {
		return err
	}

	role, _ := internal.ParseRole(dto.Role)
	if _, err := s.userRepo.GetByID(dto.UserID); err != nil {
		return ErrUserNotFound
	}
	if err := s.userRepo.GrantRole(dto.UserID, role, actor.ID); err != nil {
		return err
	}

	s.logger.Info("role granted", "user_id", dto.UserID, "role", role, "granted_by", actor.ID)
	return nil
}

// RevokeRole removes a role from a user. Owner only.
func (s *Service) RevokeRole(actor internal.Actor, dto GrantRoleDTO) error {
	if !policy.CanManageRoles(actor) {
		return internal.ErrUnauthorized
	}
	if err := dto.Validate(); err != nil {
		return err
	}

	role, _ := internal.ParseRole(dto.Role)
	if err := s.userRepo.RevokeRole(dto.UserID, role); err != nil {
		return err
	}

	s.logger.Info("role revoked", "user_id", dto.UserID, "role", role, "revoked_by", actor.ID)
	return nil
}

// RolesFor lists a user's role grants plus the derived primary role.
func (s *Service) RolesFor(actor internal.Actor, userID int64) ([]internal.Role, internal.Role, error) {
	if actor.ID != userID && !policy.CanManageRoles(actor) {
		return nil, "", internal.ErrUnauthorized
	}
	roles, err := s.userRepo.RolesForUser(userID)
	if err != nil {
		return nil, "", err
	}
	return roles, internal.PrimaryRole(roles), nil
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID, email string) (string, error) {
	return j.sign(userID, email, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID, email string) (string, error) {
	return j.sign(userID, email, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(userID, email string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and verifies a token against either secret; refresh
// tokens are recognized by their longer remaining lifetime.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if claims, ok := token.Claims.(*Claims); ok {
			if time.Until(claims.ExpiresAt.Time) > j.AccessTokenTTL {
				return j.RefreshTokenSecret, nil
			}
		}
		return j.AccessTokenSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
