package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/services"
	"github.com/lugf027/mywebsite/utils"
)

// SiteController exposes the site profile and its settings.
type SiteController struct {
	site *services.SiteConfigService
	log  *zap.Logger
}

// NewSiteController creates a new SiteController instance.
func NewSiteController(site *services.SiteConfigService, log *zap.Logger) *SiteController {
	return &SiteController{site: site, log: log}
}

// Overview returns the public site profile.
func (s *SiteController) Overview(ctx *gin.Context) {
	overview, err := s.site.Overview(ctx.Request.Context())
	if err != nil {
		respondError(ctx, s.log, err, 50040, "failed to load site overview")
		return
	}
	utils.Success(ctx, overview)
}

// GetConfig lists every setting with its current value.
func (s *SiteController) GetConfig(ctx *gin.Context) {
	items, err := s.site.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, s.log, err, 50041, "failed to load site config")
		return
	}
	utils.Success(ctx, items)
}

type siteConfigRequest struct {
	Configs []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"configs"`
}

// UpdateConfig stores {"configs":[{"key":..,"value":..}]} and returns the refreshed list.
func (s *SiteController) UpdateConfig(ctx *gin.Context) {
	var req siteConfigRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.Configs) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	values := make(map[string]string, len(req.Configs))
	for _, c := range req.Configs {
		values[c.Key] = c.Value
	}
	if err := s.site.Update(ctx.Request.Context(), values); err != nil {
		respondError(ctx, s.log, err, 50042, "failed to update site config")
		return
	}
	s.GetConfig(ctx)
}
