package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/repository"
	"github.com/lugf027/mywebsite/utils"
)

// RegisterInput is a self-service signup request.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is an issued token and the account it belongs to.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService issues tokens for local accounts. Usernames listed in admins get the admin role.
type AuthService struct {
	users    repository.UserStore
	clock    Clock
	admins   []string
	tokenTTL time.Duration
	log      *zap.Logger
}

// NewAuthService wires an AuthService.
func NewAuthService(users repository.UserStore, clock Clock, admins []string, tokenTTL time.Duration, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if tokenTTL <= 0 {
		tokenTTL = 72 * time.Hour
	}
	return &AuthService{users: users, clock: clock, admins: admins, tokenTTL: tokenTTL, log: log}
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if n := utf8.RuneCountInString(in.Username); n < 3 || n > 50 {
		return nil, invalid("username", "must be 3 to 50 characters")
	}
	if len(in.Password) < 6 || len(in.Password) > 72 {
		return nil, invalid("password", "must be 6 to 72 characters")
	}
	if !strings.Contains(in.Email, "@") || len(in.Email) > 100 {
		return nil, invalid("email", "invalid email format")
	}

	nameTaken, emailTaken, err := s.users.Exists(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if nameTaken {
		return nil, fmt.Errorf("username %q %w", in.Username, ErrConflict)
	}
	if emailTaken {
		return nil, fmt.Errorf("email %q %w", in.Email, ErrConflict)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         s.roleFor(in.Username),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return s.issue(user)
}

// Login checks credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	s.log.Info("user logged in", zap.String("username", user.Username))
	return s.issue(user)
}

// Me loads the account behind an authenticated principal.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := utils.GenerateToken(user.ID, user.Username, string(user.Role), s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) roleFor(username string) models.UserRole {
	for _, a := range s.admins {
		if strings.EqualFold(strings.TrimSpace(a), username) {
			return models.RoleAdmin
		}
	}
	return models.RoleUser
}
