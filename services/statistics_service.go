package services

import (
	"context"
	"strings"
	"time"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/repository"
)

const (
	defaultReportDays = 30
	reportTopN        = 10
)

// Overview is the dashboard headline: traffic totals plus content and user counts.
type Overview struct {
	TrafficTotals
	TotalBlogs     int64 `json:"total_blogs"`
	PublishedBlogs int64 `json:"published_blogs"`
	DraftBlogs     int64 `json:"draft_blogs"`
	TotalUsers     int64 `json:"total_users"`
}

// Report is the full statistics page.
type Report struct {
	Overview     Overview         `json:"overview"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	DailyStats   []DailyBucket    `json:"daily_stats"`
	PopularBlogs []PopularArticle `json:"popular_blogs"`
	Referrers    []ReferrerCount  `json:"referrers"`
	Devices      []DeviceCount    `json:"devices"`
}

// ReportRange holds the raw YYYY-MM-DD bounds of a report; either may be empty.
type ReportRange struct {
	Start string
	End   string
}

// StatisticsService assembles read-only statistics views.
type StatisticsService struct {
	agg      *Aggregator
	articles *ArticleService
	store    repository.ArticleStore
	users    repository.UserStore
	clock    Clock
}

// NewStatisticsService wires a StatisticsService.
func NewStatisticsService(agg *Aggregator, articles *ArticleService, store repository.ArticleStore, users repository.UserStore, clock Clock) *StatisticsService {
	return &StatisticsService{agg: agg, articles: articles, store: store, users: users, clock: clock}
}

// Overview computes the dashboard headline. Any storage failure fails the whole overview.
func (s *StatisticsService) Overview(ctx context.Context) (*Overview, error) {
	totals, err := s.agg.Totals(ctx)
	if err != nil {
		return nil, err
	}
	o := &Overview{TrafficTotals: totals}
	if o.TotalBlogs, err = s.store.Count(ctx, ""); err != nil {
		return nil, aggregationFailed("total blogs", err)
	}
	if o.PublishedBlogs, err = s.store.Count(ctx, models.StatusPublished); err != nil {
		return nil, aggregationFailed("published blogs", err)
	}
	if o.DraftBlogs, err = s.store.Count(ctx, models.StatusDraft); err != nil {
		return nil, aggregationFailed("draft blogs", err)
	}
	if o.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, aggregationFailed("total users", err)
	}
	return o, nil
}

// Report builds the statistics page for r. Referrers and devices cover the whole retained log.
func (s *StatisticsService) Report(ctx context.Context, r ReportRange) (*Report, error) {
	start, end, err := s.ResolveRange(r)
	if err != nil {
		return nil, err
	}

	overview, err := s.Overview(ctx)
	if err != nil {
		return nil, err
	}
	daily, err := s.agg.DailySeries(ctx, start, end)
	if err != nil {
		return nil, err
	}
	popular, err := s.articles.Popular(ctx, reportTopN)
	if err != nil {
		return nil, aggregationFailed("popular blogs", err)
	}
	referrers, err := s.agg.Referrers(ctx, reportTopN)
	if err != nil {
		return nil, err
	}
	devices, err := s.agg.Devices(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		Overview:     *overview,
		StartDate:    start.Format(dateLayout),
		EndDate:      end.Format(dateLayout),
		DailyStats:   daily,
		PopularBlogs: popular,
		Referrers:    referrers,
		Devices:      devices,
	}, nil
}

// ResolveRange parses r in the clock's zone. With no bounds the range is the 30 days ending
// today; a missing end is today and a missing start is 29 days before end.
func (s *StatisticsService) ResolveRange(r ReportRange) (time.Time, time.Time, error) {
	loc := s.clock.Location()
	today := startOfDay(s.clock.Now(), loc)

	start, hasStart, err := parseDate("start_date", r.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, hasEnd, err := parseDate("end_date", r.End, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	// The default window holds exactly defaultReportDays buckets, today included,
	// rather than reaching back a full defaultReportDays before today.
	switch {
	case !hasStart && !hasEnd:
		end = today
		start = today.AddDate(0, 0, -(defaultReportDays - 1))
	case !hasEnd:
		end = today
	case !hasStart:
		start = end.AddDate(0, 0, -(defaultReportDays - 1))
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, invalid("end_date", "must not be before start_date")
	}
	return start, end, nil
}

func parseDate(field, raw string, loc *time.Location) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, false, invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return t, true, nil
}

// RangeDays counts the calendar days from start to end inclusive, or 0 when end is before start.
func RangeDays(start, end time.Time) int {
	a := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if b.Before(a) {
		return 0
	}
	return int((b.Unix()-a.Unix())/86400) + 1
}
