package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/utils"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Exists(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	// Usernames resolves ids to usernames in one query; unknown ids are absent from the map.
	Usernames(ctx context.Context, ids []uint) (map[uint]string, error)
	Count(ctx context.Context) (int64, error)
}

type gormUserStore struct {
	db *gorm.DB
}

// NewUserStore returns a UserStore backed by gorm.
func NewUserStore(db *gorm.DB) UserStore {
	return &gormUserStore{db: db}
}

func (s *gormUserStore) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *gormUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &u, nil
}

func (s *gormUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load user %q: %w", username, err)
	}
	return &u, nil
}

func (s *gormUserStore) Exists(ctx context.Context, username, email string) (bool, bool, error) {
	var byName, byEmail int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&byName).Error; err != nil {
		return false, false, fmt.Errorf("check username: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&byEmail).Error; err != nil {
		return false, false, fmt.Errorf("check email: %w", err)
	}
	return byName > 0, byEmail > 0, nil
}

func (s *gormUserStore) Usernames(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	ids = utils.Unique(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Select("id", "username").Find(&users, ids).Error; err != nil {
		return nil, fmt.Errorf("load usernames: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u.Username
	}
	return out, nil
}

func (s *gormUserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
