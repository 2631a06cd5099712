package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/services"
	"github.com/lugf027/mywebsite/utils"
)

// maxReportDays bounds the daily series a single HTTP request may ask for.
const maxReportDays = 366

// StatsController provides access statistics for the dashboard.
type StatsController struct {
	stats *services.StatisticsService
	log   *zap.Logger
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(stats *services.StatisticsService, log *zap.Logger) *StatsController {
	return &StatsController{stats: stats, log: log}
}

// Overview returns traffic totals plus article and user counts.
func (s *StatsController) Overview(ctx *gin.Context) {
	overview, err := s.stats.Overview(ctx.Request.Context())
	if err != nil {
		respondError(ctx, s.log, err, 50010, "failed to compute statistics")
		return
	}
	utils.Success(ctx, overview)
}

// Report returns the full statistics page for ?startDate=&endDate= (YYYY-MM-DD).
// Ranges longer than maxReportDays are refused with 400.
func (s *StatsController) Report(ctx *gin.Context) {
	r := services.ReportRange{
		Start: firstQuery(ctx, "startDate", "start_date"),
		End:   firstQuery(ctx, "endDate", "end_date"),
	}
	start, end, err := s.stats.ResolveRange(r)
	if err != nil {
		respondError(ctx, s.log, err, 50010, "failed to compute statistics")
		return
	}
	if services.RangeDays(start, end) > maxReportDays {
		utils.Error(ctx, http.StatusBadRequest, 40001, fmt.Sprintf("end_date: range must not exceed %d days", maxReportDays))
		return
	}
	report, err := s.stats.Report(ctx.Request.Context(), r)
	if err != nil {
		respondError(ctx, s.log, err, 50010, "failed to compute statistics")
		return
	}
	utils.Success(ctx, report)
}

func firstQuery(ctx *gin.Context, names ...string) string {
	for _, n := range names {
		if v := ctx.Query(n); v != "" {
			return v
		}
	}
	return ""
}
