package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/repository"
)

const (
	titleMaxRunes   = 200
	summaryMaxInput = 500

	defaultLatestLimit  = 5
	defaultPopularLimit = 10

	unknownAuthor = "Unknown"
)

// ArticleInput is the author-supplied part of an article. A blank Summary is generated
// from Content and an empty Status means draft.
type ArticleInput struct {
	Title   string               `json:"title"`
	Content string               `json:"content"`
	Summary string               `json:"summary"`
	Status  models.ArticleStatus `json:"status"`
}

// ArticleDetail is a full article with its author's name.
type ArticleDetail struct {
	models.Article
	AuthorName  string `json:"author_name"`
	ContentHTML string `json:"content_html,omitempty"`
}

// ArticleListItem is the listing projection of an article.
type ArticleListItem struct {
	ID          uint                 `json:"id"`
	Title       string               `json:"title"`
	Summary     string               `json:"summary"`
	Status      models.ArticleStatus `json:"status"`
	AuthorName  string               `json:"author_name"`
	ViewCount   int64                `json:"view_count"`
	CreatedAt   time.Time            `json:"created_at"`
	PublishedAt *time.Time           `json:"published_at"`
}

// PopularArticle is one entry of the most-viewed ranking.
type PopularArticle struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	ViewCount int64  `json:"view_count"`
}

// ArticleService owns the draft/published lifecycle and article listings.
type ArticleService struct {
	articles repository.ArticleStore
	users    repository.UserStore
	clock    Clock
	log      *zap.Logger
}

// NewArticleService wires an ArticleService.
func NewArticleService(articles repository.ArticleStore, users repository.UserStore, clock Clock, log *zap.Logger) *ArticleService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ArticleService{articles: articles, users: users, clock: clock, log: log}
}

// Create stores a new article by authorID. A published article gets PublishedAt = now.
func (s *ArticleService) Create(ctx context.Context, authorID uint, in ArticleInput) (*models.Article, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	a := &models.Article{
		Title:     in.Title,
		Content:   in.Content,
		Summary:   in.Summary,
		Status:    in.Status,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if a.Status == models.StatusPublished {
		a.PublishedAt = &now
	}
	if err := s.articles.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("article created", zap.Uint("id", a.ID), zap.String("status", string(a.Status)))
	return a, nil
}

// Update replaces the editable fields of article id. Moving from draft to published stamps
// PublishedAt; any other transition keeps it.
func (s *ArticleService) Update(ctx context.Context, id uint, in ArticleInput) (*models.Article, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	a, err := s.articles.Update(ctx, id, func(a *models.Article) (bool, error) {
		now := s.clock.Now()
		if a.Status != models.StatusPublished && in.Status == models.StatusPublished {
			a.PublishedAt = &now
		}
		a.Title = in.Title
		a.Content = in.Content
		a.Summary = in.Summary
		a.Status = in.Status
		a.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}
	s.log.Info("article updated", zap.Uint("id", id), zap.String("status", string(a.Status)))
	return a, nil
}

// Publish makes a draft visible. Publishing a published article changes nothing.
func (s *ArticleService) Publish(ctx context.Context, id uint) (*models.Article, error) {
	a, err := s.articles.Update(ctx, id, func(a *models.Article) (bool, error) {
		if a.Status == models.StatusPublished {
			return false, nil
		}
		now := s.clock.Now()
		a.Status = models.StatusPublished
		a.PublishedAt = &now
		a.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}
	s.log.Info("article published", zap.Uint("id", id))
	return a, nil
}

// Unpublish moves an article back to draft. PublishedAt is kept.
func (s *ArticleService) Unpublish(ctx context.Context, id uint) (*models.Article, error) {
	a, err := s.articles.Update(ctx, id, func(a *models.Article) (bool, error) {
		if a.Status == models.StatusDraft {
			return false, nil
		}
		a.Status = models.StatusDraft
		a.UpdatedAt = s.clock.Now()
		return true, nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}
	s.log.Info("article unpublished", zap.Uint("id", id))
	return a, nil
}

// Delete removes article id permanently.
func (s *ArticleService) Delete(ctx context.Context, id uint) error {
	if err := s.articles.Delete(ctx, id); err != nil {
		return mapNotFound(err)
	}
	s.log.Info("article deleted", zap.Uint("id", id))
	return nil
}

// GetPublic returns a published article and counts the read as a view.
// Drafts are reported as ErrNotFound.
func (s *ArticleService) GetPublic(ctx context.Context, id uint) (*ArticleDetail, error) {
	a, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if a.Status != models.StatusPublished {
		return nil, ErrNotFound
	}
	if s.RecordView(ctx, id) {
		a.ViewCount++
	}
	return s.detail(ctx, a)
}

// GetForAdmin returns an article in any state without counting a view.
func (s *ArticleService) GetForAdmin(ctx context.Context, id uint) (*ArticleDetail, error) {
	a, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return s.detail(ctx, a)
}

// RecordView adds one view to a published article. Failures are logged and reported as false.
func (s *ArticleService) RecordView(ctx context.Context, id uint) bool {
	ok, err := s.articles.IncrementViewCount(ctx, id)
	if err != nil {
		s.log.Warn("record article view failed", zap.Uint("id", id), zap.Error(err))
		return false
	}
	return ok
}

// ListPublic pages through published articles, newest publication first.
// keyword matches title or summary, case-insensitively.
func (s *ArticleService) ListPublic(ctx context.Context, keyword string, p Pagination) (PageResult[ArticleListItem], error) {
	return s.list(ctx, repository.ArticleQuery{
		Status:  models.StatusPublished,
		Keyword: keyword,
		Order:   repository.OrderNewestPublished,
	}, p)
}

// ListAdmin pages through all articles, newest first, optionally filtered by status and keyword.
func (s *ArticleService) ListAdmin(ctx context.Context, status models.ArticleStatus, keyword string, p Pagination) (PageResult[ArticleListItem], error) {
	if status != "" && !status.Valid() {
		return PageResult[ArticleListItem]{}, invalid("status", "must be draft or published")
	}
	return s.list(ctx, repository.ArticleQuery{
		Status:  status,
		Keyword: keyword,
		Order:   repository.OrderNewestCreated,
	}, p)
}

// Latest returns the most recently published articles. limit <= 0 means 5.
func (s *ArticleService) Latest(ctx context.Context, limit int) ([]ArticleListItem, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}
	items, err := s.articles.Latest(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.listItems(ctx, items)
}

// Popular returns published articles by view count. limit <= 0 means 10.
func (s *ArticleService) Popular(ctx context.Context, limit int) ([]PopularArticle, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	items, err := s.articles.Popular(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]PopularArticle, 0, len(items))
	for _, a := range items {
		out = append(out, PopularArticle{ID: a.ID, Title: a.Title, ViewCount: a.ViewCount})
	}
	return out, nil
}

func (s *ArticleService) list(ctx context.Context, q repository.ArticleQuery, p Pagination) (PageResult[ArticleListItem], error) {
	q.Offset = p.Offset()
	q.Limit = p.PageSize
	items, total, err := s.articles.List(ctx, q)
	if err != nil {
		return PageResult[ArticleListItem]{}, err
	}
	out, err := s.listItems(ctx, items)
	if err != nil {
		return PageResult[ArticleListItem]{}, err
	}
	return NewPageResult(out, total, p), nil
}

func (s *ArticleService) listItems(ctx context.Context, items []models.Article) ([]ArticleListItem, error) {
	ids := make([]uint, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.AuthorID)
	}
	names, err := s.users.Usernames(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ArticleListItem, 0, len(items))
	for _, a := range items {
		out = append(out, ArticleListItem{
			ID:          a.ID,
			Title:       a.Title,
			Summary:     a.Summary,
			Status:      a.Status,
			AuthorName:  nameOr(names, a.AuthorID),
			ViewCount:   a.ViewCount,
			CreatedAt:   a.CreatedAt,
			PublishedAt: a.PublishedAt,
		})
	}
	return out, nil
}

func (s *ArticleService) detail(ctx context.Context, a *models.Article) (*ArticleDetail, error) {
	names, err := s.users.Usernames(ctx, []uint{a.AuthorID})
	if err != nil {
		return nil, err
	}
	return &ArticleDetail{Article: *a, AuthorName: nameOr(names, a.AuthorID)}, nil
}

func nameOr(names map[uint]string, id uint) string {
	if n, ok := names[id]; ok {
		return n
	}
	return unknownAuthor
}

// normalizeInput validates in and fills the derived summary and default status.
func normalizeInput(in ArticleInput) (ArticleInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, invalid("title", "must not be blank")
	}
	if utf8.RuneCountInString(in.Title) > titleMaxRunes {
		return in, invalid("title", "must be at most %d characters", titleMaxRunes)
	}
	if strings.TrimSpace(in.Content) == "" {
		return in, invalid("content", "must not be blank")
	}
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if !in.Status.Valid() {
		return in, invalid("status", "must be draft or published")
	}
	in.Summary = strings.TrimSpace(in.Summary)
	if in.Summary == "" {
		in.Summary = GenerateSummary(in.Content)
	} else if utf8.RuneCountInString(in.Summary) > summaryMaxInput {
		return in, invalid("summary", "must be at most %d characters", summaryMaxInput)
	}
	return in, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
