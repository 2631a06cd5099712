package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/middleware"
	"github.com/lugf027/mywebsite/services"
	"github.com/lugf027/mywebsite/utils"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// parsePagination reads page and page_size; bad or missing values fall back to 1 and 10, sizes cap at 100.
func parsePagination(pageStr, sizeStr string) services.Pagination {
	page := 1
	pageSize := defaultPageSize
	if p, err := strconv.Atoi(strings.TrimSpace(pageStr)); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(strings.TrimSpace(sizeStr)); err == nil && s > 0 {
		pageSize = min(s, maxPageSize)
	}
	return services.Pagination{Page: page, PageSize: pageSize}
}

// parseLimit reads a positive limit capped at maxPageSize; 0 lets the service pick its default.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0
	}
	return min(n, maxPageSize)
}

func parseID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	return middleware.UserID(ctx)
}

// respondError maps service errors onto the JSON envelope. Unexpected errors are logged
// and answered with fallbackCode.
func respondError(ctx *gin.Context, log *zap.Logger, err error, fallbackCode int, fallbackMsg string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.Error(ctx, http.StatusBadRequest, 40001, verr.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "not found")
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40901, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
	case errors.Is(err, services.ErrAggregationFailed):
		log.Error("statistics aggregation failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to compute statistics")
	default:
		log.Error(fallbackMsg, zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, fallbackCode, fallbackMsg)
	}
}

// successEnvelope is what cached responses are stored as.
func successEnvelope(data interface{}) utils.JSONResponse {
	return utils.JSONResponse{Code: 0, Message: "success", Data: data}
}
