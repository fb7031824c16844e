package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"daan-backend/internal/auth"
	"daan-backend/internal/cache"
	"daan-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

var validRoles = map[string]bool{
	models.RoleAdmin:      true,
	models.RoleAccountant: true,
	models.RoleStaff:      true,
	models.RoleMember:     true,
}

type UserService struct {
	Users      UserStore
	JWTManager *auth.JWTManager
}

func NewUserService(users UserStore, jwtManager *auth.JWTManager) *UserService {
	return &UserService{Users: users, JWTManager: jwtManager}
}

// CreateUser registers a user. Members (donors) usually have no
// password; they exist only so entries can be attributed to them.
func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, validationf("name is required")
	}
	if len(req.Phone) != 10 {
		return nil, validationf("phone number must be exactly 10 digits")
	}
	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if !validRoles[role] {
		return nil, validationf("unknown role %q", role)
	}

	if existing, err := s.Users.GetByPhone(ctx, req.Phone); err == nil && existing != nil {
		return nil, rulef("a user with phone %s already exists", req.Phone)
	}

	user := &models.User{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Role:    role,
		Village: req.Village,
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.Users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, role string) ([]*models.User, error) {
	if role != "" && !validRoles[role] {
		return nil, validationf("unknown role %q", role)
	}
	return s.Users.List(ctx, role)
}

// Login authenticates by email and returns a signed token.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, validationf("email and password are required")
	}

	user, err := s.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, rulef("invalid email or password")
	}
	if !user.IsActive {
		return nil, rulef("account is disabled")
	}

	// bcrypt is the expensive step; skip it when this exact credential
	// pair verified recently.
	if cachedID, ok := cache.GetCachedAuth(ctx, req.Email, req.Password); !ok || int(cachedID) != user.ID {
		if !auth.VerifyPassword(user.PasswordHash, req.Password) {
			cache.InvalidateAuth(ctx, req.Email, req.Password)
			return nil, rulef("invalid email or password")
		}
		cache.CacheAuth(ctx, req.Email, req.Password, int64(user.ID))
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	user.PasswordHash = ""
	return &models.LoginResponse{Token: token, User: user}, nil
}
