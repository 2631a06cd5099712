package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/repository"
)

const (
	dateLayout           = "2006-01-02"
	defaultReferrerLimit = 10
)

// DailyBucket is the traffic of one calendar day.
type DailyBucket struct {
	Date string `json:"date"`
	PV   int64  `json:"pv"`
	UV   int64  `json:"uv"`
}

// DeviceClass is derived from a User-Agent header.
type DeviceClass string

const (
	DeviceDesktop DeviceClass = "Desktop"
	DeviceMobile  DeviceClass = "Mobile"
	DeviceTablet  DeviceClass = "Tablet"
)

// deviceOrder breaks count ties in DeviceBreakdown output.
var deviceOrder = map[DeviceClass]int{DeviceDesktop: 0, DeviceMobile: 1, DeviceTablet: 2}

// DeviceCount is the number of events attributed to one device class.
type DeviceCount struct {
	Device DeviceClass `json:"device"`
	Count  int64       `json:"count"`
}

// ReferrerCount is the number of events carrying one Referer value.
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// TrafficTotals are the all-time and since-midnight PV/UV figures.
type TrafficTotals struct {
	TotalPV int64 `json:"total_pv"`
	TodayPV int64 `json:"today_pv"`
	TotalUV int64 `json:"total_uv"`
	TodayUV int64 `json:"today_uv"`
}

// Aggregator turns stored access events into PV/UV statistics.
// A visitor is a distinct client IP.
type Aggregator struct {
	events repository.EventStore
	clock  Clock
}

// NewAggregator builds an Aggregator over events, using clock for "today" and day boundaries.
func NewAggregator(events repository.EventStore, clock Clock) *Aggregator {
	return &Aggregator{events: events, clock: clock}
}

// Totals counts PV and UV overall and since the start of today.
func (a *Aggregator) Totals(ctx context.Context) (TrafficTotals, error) {
	var t TrafficTotals
	today := startOfDay(a.clock.Now(), a.clock.Location())
	since := repository.EventFilter{Since: &today}

	var err error
	if t.TotalPV, err = a.events.Count(ctx, repository.EventFilter{}); err != nil {
		return TrafficTotals{}, aggregationFailed("total pv", err)
	}
	if t.TodayPV, err = a.events.Count(ctx, since); err != nil {
		return TrafficTotals{}, aggregationFailed("today pv", err)
	}
	if t.TotalUV, err = a.events.CountDistinct(ctx, repository.FieldClientIP, repository.EventFilter{}); err != nil {
		return TrafficTotals{}, aggregationFailed("total uv", err)
	}
	if t.TodayUV, err = a.events.CountDistinct(ctx, repository.FieldClientIP, since); err != nil {
		return TrafficTotals{}, aggregationFailed("today uv", err)
	}
	return t, nil
}

// DailySeries returns one bucket per calendar day from start to end inclusive.
// Only the dates of start and end matter; end before start yields an empty series.
func (a *Aggregator) DailySeries(ctx context.Context, start, end time.Time) ([]DailyBucket, error) {
	loc := a.clock.Location()
	from := startOfDay(start, loc)
	to := startOfDay(end, loc)
	if to.Before(from) {
		return []DailyBucket{}, nil
	}
	events, err := a.events.Scan(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, aggregationFailed("daily series", err)
	}
	return BucketDaily(events, from, to, loc), nil
}

// BucketDaily groups events by the calendar date of OccurredAt in loc.
// Every day in [start, end] gets a bucket, zero-filled when no event fell on it.
func BucketDaily(events []models.AccessEvent, start, end time.Time, loc *time.Location) []DailyBucket {
	from := startOfDay(start, loc)
	to := startOfDay(end, loc)

	var buckets []DailyBucket
	index := map[string]int{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		index[key] = len(buckets)
		buckets = append(buckets, DailyBucket{Date: key})
	}
	if buckets == nil {
		return []DailyBucket{}
	}

	visitors := make([]map[string]struct{}, len(buckets))
	for _, e := range events {
		i, ok := index[e.OccurredAt.In(loc).Format(dateLayout)]
		if !ok {
			continue
		}
		buckets[i].PV++
		if visitors[i] == nil {
			visitors[i] = map[string]struct{}{}
		}
		visitors[i][e.ClientIP] = struct{}{}
	}
	for i := range buckets {
		buckets[i].UV = int64(len(visitors[i]))
	}
	return buckets
}

// Referrers ranks non-empty Referer values by frequency. limit <= 0 means 10.
func (a *Aggregator) Referrers(ctx context.Context, limit int) ([]ReferrerCount, error) {
	if limit <= 0 {
		limit = defaultReferrerLimit
	}
	rows, err := a.events.TopBy(ctx, repository.FieldReferer, repository.EventFilter{
		NotNull: []repository.EventField{repository.FieldReferer},
	}, limit)
	if err != nil {
		return nil, aggregationFailed("referrers", err)
	}
	out := make([]ReferrerCount, 0, len(rows))
	for _, r := range rows {
		if r.Key == nil {
			continue
		}
		out = append(out, ReferrerCount{Referrer: *r.Key, Count: r.Count})
	}
	return out, nil
}

// Devices classifies every stored event by User-Agent.
func (a *Aggregator) Devices(ctx context.Context) ([]DeviceCount, error) {
	rows, err := a.events.TopBy(ctx, repository.FieldUserAgent, repository.EventFilter{}, 0)
	if err != nil {
		return nil, aggregationFailed("devices", err)
	}
	return DeviceBreakdown(rows), nil
}

// DeviceBreakdown folds per-User-Agent counts into device classes, largest first.
// Classes with no events are omitted.
func DeviceBreakdown(groups []repository.KeyCount) []DeviceCount {
	totals := map[DeviceClass]int64{}
	for _, g := range groups {
		totals[ClassifyDevice(g.Key)] += g.Count
	}
	out := make([]DeviceCount, 0, len(totals))
	for class, n := range totals {
		if n > 0 {
			out = append(out, DeviceCount{Device: class, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return deviceOrder[out[i].Device] < deviceOrder[out[j].Device]
	})
	return out
}

// ClassifyDevice maps a User-Agent to a device class. Mobile markers win over tablet markers;
// anything else, including a missing header, is Desktop.
func ClassifyDevice(userAgent *string) DeviceClass {
	if userAgent == nil {
		return DeviceDesktop
	}
	ua := strings.ToLower(*userAgent)
	switch {
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return DeviceMobile
	case strings.Contains(ua, "tablet"), strings.Contains(ua, "ipad"):
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}
