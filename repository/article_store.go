package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/lugf027/mywebsite/models"
)

// ArticleOrder selects the sort used by List.
type ArticleOrder int

const (
	// OrderNewestPublished sorts by published_at then id, both descending.
	OrderNewestPublished ArticleOrder = iota
	// OrderNewestCreated sorts by created_at then id, both descending.
	OrderNewestCreated
)

// ArticleQuery filters a paged article listing. Zero Limit means no limit.
type ArticleQuery struct {
	Status  models.ArticleStatus
	Keyword string
	Order   ArticleOrder
	Offset  int
	Limit   int
}

// ArticleStore persists articles.
type ArticleStore interface {
	Create(ctx context.Context, article *models.Article) error
	FindByID(ctx context.Context, id uint) (*models.Article, error)
	// Update loads the article and applies mutate inside one transaction.
	// The row is saved only when mutate reports a change.
	Update(ctx context.Context, id uint, mutate func(*models.Article) (bool, error)) (*models.Article, error)
	Delete(ctx context.Context, id uint) error
	// IncrementViewCount bumps view_count of a published article and reports whether a row matched.
	IncrementViewCount(ctx context.Context, id uint) (bool, error)
	Count(ctx context.Context, status models.ArticleStatus) (int64, error)
	List(ctx context.Context, q ArticleQuery) ([]models.Article, int64, error)
	Latest(ctx context.Context, limit int) ([]models.Article, error)
	Popular(ctx context.Context, limit int) ([]models.Article, error)
}

type gormArticleStore struct {
	db *gorm.DB
}

// NewArticleStore returns an ArticleStore backed by gorm.
func NewArticleStore(db *gorm.DB) ArticleStore {
	return &gormArticleStore{db: db}
}

func (s *gormArticleStore) Create(ctx context.Context, article *models.Article) error {
	normalizeTimes(article)
	if err := s.db.WithContext(ctx).Create(article).Error; err != nil {
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

func (s *gormArticleStore) FindByID(ctx context.Context, id uint) (*models.Article, error) {
	var a models.Article
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load article %d: %w", id, err)
	}
	return &a, nil
}

func (s *gormArticleStore) Update(ctx context.Context, id uint, mutate func(*models.Article) (bool, error)) (*models.Article, error) {
	var out models.Article
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load article %d: %w", id, err)
		}
		changed, err := mutate(&out)
		if err != nil || !changed {
			return err
		}
		normalizeTimes(&out)
		if err := tx.Save(&out).Error; err != nil {
			return fmt.Errorf("save article %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *gormArticleStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Article{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete article %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormArticleStore) IncrementViewCount(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Article{}).
		Where("id = ? AND status = ?", id, models.StatusPublished).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return false, fmt.Errorf("increment view count of %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Count counts articles with the given status; empty status counts all.
func (s *gormArticleStore) Count(ctx context.Context, status models.ArticleStatus) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Article{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

func (s *gormArticleStore) List(ctx context.Context, aq ArticleQuery) ([]models.Article, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Article{})
	if aq.Status != "" {
		q = q.Where("status = ?", aq.Status)
	}
	if kw := strings.TrimSpace(aq.Keyword); kw != "" {
		pattern := likePattern(kw)
		q = q.Where("(LOWER(title) LIKE LOWER(?) ESCAPE '!' OR LOWER(summary) LIKE LOWER(?) ESCAPE '!')", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	switch aq.Order {
	case OrderNewestCreated:
		q = q.Order("created_at DESC").Order("id DESC")
	default:
		q = q.Order("published_at DESC").Order("id DESC")
	}
	if aq.Offset > 0 {
		q = q.Offset(aq.Offset)
	}
	if aq.Limit > 0 {
		q = q.Limit(aq.Limit)
	}

	var items []models.Article
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	return items, total, nil
}

func (s *gormArticleStore) Latest(ctx context.Context, limit int) ([]models.Article, error) {
	var items []models.Article
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusPublished).
		Order("published_at DESC").Order("id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("latest articles: %w", err)
	}
	return items, nil
}

func (s *gormArticleStore) Popular(ctx context.Context, limit int) ([]models.Article, error) {
	var items []models.Article
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusPublished).
		Order("view_count DESC").Order("id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("popular articles: %w", err)
	}
	return items, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likePattern builds a substring LIKE pattern for use with ESCAPE '!'.
func likePattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

func normalizeTimes(a *models.Article) {
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	if a.PublishedAt != nil {
		t := a.PublishedAt.UTC()
		a.PublishedAt = &t
	}
}
