package controllers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/services"
	"github.com/lugf027/mywebsite/utils"
)

// blogCachePrefix covers every cached public listing; mutations invalidate it.
const blogCachePrefix = "cache:blogs:"

// BlogController serves the public blog pages.
type BlogController struct {
	articles *services.ArticleService
	cache    *utils.Cache
	log      *zap.Logger
}

// NewBlogController creates a new BlogController instance.
func NewBlogController(articles *services.ArticleService, cache *utils.Cache, log *zap.Logger) *BlogController {
	return &BlogController{articles: articles, cache: cache, log: log}
}

// List returns published articles, newest first.
func (b *BlogController) List(ctx *gin.Context) {
	p := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	keyword := strings.TrimSpace(ctx.Query("keyword"))

	// Cache only unfiltered pages to avoid cache key explosion
	cacheKey := ""
	if keyword == "" {
		cacheKey = fmt.Sprintf("%slist:page=%d:size=%d", blogCachePrefix, p.Page, p.PageSize)
		if body, ok := b.cache.GetBytes(ctx.Request.Context(), cacheKey); ok {
			ctx.Data(200, "application/json", body)
			return
		}
	}

	page, err := b.articles.ListPublic(ctx.Request.Context(), keyword, p)
	if err != nil {
		respondError(ctx, b.log, err, 50021, "failed to list blogs")
		return
	}
	if cacheKey != "" {
		b.cache.SetJSON(ctx.Request.Context(), cacheKey, successEnvelope(page))
	}
	utils.Success(ctx, page)
}

// Latest returns the most recently published articles.
func (b *BlogController) Latest(ctx *gin.Context) {
	limit := parseLimit(ctx.Query("limit"))
	cacheKey := fmt.Sprintf("%slatest:limit=%d", blogCachePrefix, limit)
	if body, ok := b.cache.GetBytes(ctx.Request.Context(), cacheKey); ok {
		ctx.Data(200, "application/json", body)
		return
	}

	items, err := b.articles.Latest(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, b.log, err, 50022, "failed to list latest blogs")
		return
	}
	b.cache.SetJSON(ctx.Request.Context(), cacheKey, successEnvelope(items))
	utils.Success(ctx, items)
}

// Get returns one published article with rendered HTML and counts the view.
func (b *BlogController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	detail, err := b.articles.GetPublic(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, b.log, err, 50023, "failed to load blog")
		return
	}
	html, err := utils.RenderMarkdown(detail.Content)
	if err != nil {
		b.log.Warn("render markdown failed", zap.Uint("id", id), zap.Error(err))
	}
	detail.ContentHTML = html
	utils.Success(ctx, detail)
}
