package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/services"
	"github.com/lugf027/mywebsite/utils"
)

// AdminBlogController manages articles for the site owner.
type AdminBlogController struct {
	articles *services.ArticleService
	cache    *utils.Cache
	log      *zap.Logger
}

// NewAdminBlogController creates a new AdminBlogController instance.
func NewAdminBlogController(articles *services.ArticleService, cache *utils.Cache, log *zap.Logger) *AdminBlogController {
	return &AdminBlogController{articles: articles, cache: cache, log: log}
}

type blogRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

func (r blogRequest) input() services.ArticleInput {
	return services.ArticleInput{
		Title:   r.Title,
		Content: r.Content,
		Summary: r.Summary,
		Status:  models.ArticleStatus(strings.ToLower(strings.TrimSpace(r.Status))),
	}
}

// List returns all articles, newest first, filtered by status and keyword.
func (a *AdminBlogController) List(ctx *gin.Context) {
	p := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	status := models.ArticleStatus(strings.ToLower(strings.TrimSpace(ctx.Query("status"))))
	page, err := a.articles.ListAdmin(ctx.Request.Context(), status, ctx.Query("keyword"), p)
	if err != nil {
		respondError(ctx, a.log, err, 50030, "failed to list blogs")
		return
	}
	utils.Success(ctx, page)
}

// Get returns an article in any state without counting a view.
func (a *AdminBlogController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	detail, err := a.articles.GetForAdmin(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, a.log, err, 50031, "failed to load blog")
		return
	}
	utils.Success(ctx, detail)
}

// Create stores a new article authored by the caller.
func (a *AdminBlogController) Create(ctx *gin.Context) {
	var req blogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	article, err := a.articles.Create(ctx.Request.Context(), userID, req.input())
	if err != nil {
		respondError(ctx, a.log, err, 50032, "failed to create blog")
		return
	}
	a.invalidate(ctx)
	utils.Success(ctx, article)
}

// Update replaces an article's editable fields.
func (a *AdminBlogController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	var req blogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	article, err := a.articles.Update(ctx.Request.Context(), id, req.input())
	if err != nil {
		respondError(ctx, a.log, err, 50033, "failed to update blog")
		return
	}
	a.invalidate(ctx)
	utils.Success(ctx, article)
}

// Delete removes an article.
func (a *AdminBlogController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	if err := a.articles.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, a.log, err, 50034, "failed to delete blog")
		return
	}
	a.invalidate(ctx)
	utils.Success(ctx, gin.H{"id": id})
}

// Publish makes an article public.
func (a *AdminBlogController) Publish(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	article, err := a.articles.Publish(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, a.log, err, 50035, "failed to publish blog")
		return
	}
	a.invalidate(ctx)
	utils.Success(ctx, article)
}

// Unpublish moves an article back to draft.
func (a *AdminBlogController) Unpublish(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	article, err := a.articles.Unpublish(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, a.log, err, 50036, "failed to unpublish blog")
		return
	}
	a.invalidate(ctx)
	utils.Success(ctx, article)
}

func (a *AdminBlogController) invalidate(ctx *gin.Context) {
	a.cache.InvalidateByPrefix(ctx.Request.Context(), blogCachePrefix)
}
