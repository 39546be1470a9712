package service

import (
	"context"
	"errors"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/repository"
	"crm-inbox-demo/backend/pkg/cache"
	"crm-inbox-demo/backend/pkg/jwt"

	"github.com/google/uuid"
)

var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
)

// UserService is the team registry: it manages team members and resolves
// the ids the routing engine assigns conversations and contacts to.
type UserService struct {
	repo   repository.UserRepository
	tokens *jwt.Service
	cache  *cache.Cache
}

// NewUserService creates a new user service. Tokens are minted through the
// given JWT service so signup and login use the same secret the auth
// middleware validates against.
func NewUserService(repo repository.UserRepository, tokens *jwt.Service) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		cache:  cache.NewCache(),
	}
}

// CreateUser creates a new team member and returns a signed token for them.
func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, string, error) {
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, "", ErrUserAlreadyExists
	}

	role := req.Role
	if role == "" {
		role = string(jwt.RoleAgent)
	}
	if !jwt.ValidRole(jwt.Role(role)) {
		return nil, "", ErrInvalidRole
	}

	user := models.User{
		ID:       uuid.New().String(),
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	}

	if err := s.repo.Create(ctx, &user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, jwt.Role(user.Role))
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// Login authenticates a team member and returns a JWT token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, jwt.Role(user.Role))
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// GetUserByID retrieves a team member by id. Lookups sit on the hot path of
// every ownership validation, so hits are served from the TTL cache.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if cached, found := s.cache.Get("user:" + id); found {
		user := cached.(models.User)
		return &user, nil
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	s.cache.Set("user:"+id, *user)
	return user, nil
}

// Exists reports whether id names a known team member.
func (s *UserService) Exists(ctx context.Context, id string) bool {
	_, err := s.GetUserByID(ctx, id)
	return err == nil
}

// ListUsers returns the whole team.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

// UpdateUserRole changes a team member's role.
func (s *UserService) UpdateUserRole(ctx context.Context, id string, role jwt.Role) error {
	if !jwt.ValidRole(role) {
		return ErrInvalidRole
	}

	if err := s.repo.UpdateRole(ctx, id, string(role)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.cache.Delete("user:" + id)
	return nil
}

// ResolveAssignee validates the configured id against the registry and
// falls back to any manager, then any team member. Returns "" when the
// registry is empty; callers must tolerate that.
func (s *UserService) ResolveAssignee(ctx context.Context, configured string) string {
	if configured != "" && s.Exists(ctx, configured) {
		return configured
	}

	if user, err := s.repo.FirstByRole(ctx, string(jwt.RoleManager)); err == nil {
		return user.ID
	}

	users, err := s.repo.List(ctx)
	if err != nil || len(users) == 0 {
		return ""
	}
	return users[0].ID
}
