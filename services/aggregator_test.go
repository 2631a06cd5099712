package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/lugf027/mywebsite/models"
	"github.com/lugf027/mywebsite/repository"
)

func TestDailySeriesCountsDistinctVisitors(t *testing.T) {
	store := repository.NewEventStore(newTestDB(t))
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := NewManualClock(day)

	mustAppend(t, store, "10.0.0.1", day)
	mustAppend(t, store, "10.0.0.1", day.Add(time.Hour))
	mustAppend(t, store, "10.0.0.2", day.Add(2*time.Hour))

	series, err := NewAggregator(store, clock).DailySeries(context.Background(), day, day)
	if err != nil {
		t.Fatalf("DailySeries: %v", err)
	}
	want := []DailyBucket{{Date: "2025-03-10", PV: 3, UV: 2}}
	if !reflect.DeepEqual(series, want) {
		t.Fatalf("got %+v, want %+v", series, want)
	}
}

func TestDailySeriesFillsGaps(t *testing.T) {
	store := repository.NewEventStore(newTestDB(t))
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := NewManualClock(start.AddDate(0, 0, 10))

	mustAppend(t, store, "10.0.0.1", start.AddDate(0, 0, 1).Add(5*time.Hour))
	// outside the range on both sides
	mustAppend(t, store, "10.0.0.1", start.Add(-time.Second))
	mustAppend(t, store, "10.0.0.1", start.AddDate(0, 0, 3))

	series, err := NewAggregator(store, clock).DailySeries(context.Background(), start, start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("DailySeries: %v", err)
	}
	want := []DailyBucket{
		{Date: "2025-03-01"},
		{Date: "2025-03-02", PV: 1, UV: 1},
		{Date: "2025-03-03"},
	}
	if !reflect.DeepEqual(series, want) {
		t.Fatalf("got %+v, want %+v", series, want)
	}
}

func TestDailySeriesInvertedRangeIsEmpty(t *testing.T) {
	clock := NewManualClock(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	series, err := NewAggregator(&fakeEventStore{}, clock).DailySeries(context.Background(), clock.Now(), clock.Now().AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("DailySeries: %v", err)
	}
	if series == nil || len(series) != 0 {
		t.Fatalf("expected empty non-nil series, got %#v", series)
	}
}

func TestBucketDailyUsesLocalDate(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
	events := []models.AccessEvent{
		// 01:00 local on the 10th
		{ClientIP: "a", OccurredAt: time.Date(2025, 3, 9, 17, 0, 0, 0, time.UTC)},
		// 23:30 local on the 9th
		{ClientIP: "b", OccurredAt: time.Date(2025, 3, 9, 15, 30, 0, 0, time.UTC)},
	}
	got := BucketDaily(events, start, start, loc)
	want := []DailyBucket{{Date: "2025-03-10", PV: 1, UV: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestBucketDailyLength(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	got := BucketDaily(nil, start, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.UTC)
	if len(got) != 30 {
		t.Fatalf("expected 30 buckets across leap February, got %d", len(got))
	}
	if got[0].Date != "2024-02-01" || got[29].Date != "2024-03-01" {
		t.Fatalf("unexpected bounds %s..%s", got[0].Date, got[29].Date)
	}
}

func TestTotals(t *testing.T) {
	store := repository.NewEventStore(newTestDB(t))
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := NewManualClock(now)

	mustAppend(t, store, "a", now.AddDate(0, 0, -1))
	mustAppend(t, store, "b", now.AddDate(0, 0, -1))
	mustAppend(t, store, "a", now.Add(-time.Hour))
	mustAppend(t, store, "a", now.Add(-2*time.Hour))

	got, err := NewAggregator(store, clock).Totals(context.Background())
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	want := TrafficTotals{TotalPV: 4, TodayPV: 2, TotalUV: 2, TodayUV: 1}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReferrersSkipsMissingHeader(t *testing.T) {
	store := repository.NewEventStore(newTestDB(t))
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	withRef := func(ref string) func(*models.AccessEvent) {
		return func(e *models.AccessEvent) { e.Referer = strPtr(ref) }
	}

	mustAppend(t, store, "a", now)
	mustAppend(t, store, "a", now)
	mustAppend(t, store, "a", now, withRef("https://news.example.com"))
	mustAppend(t, store, "b", now, withRef("https://search.example.com"))
	mustAppend(t, store, "c", now, withRef("https://search.example.com"))

	got, err := NewAggregator(store, NewManualClock(now)).Referrers(context.Background(), 0)
	if err != nil {
		t.Fatalf("Referrers: %v", err)
	}
	want := []ReferrerCount{
		{Referrer: "https://search.example.com", Count: 2},
		{Referrer: "https://news.example.com", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReferrersLimit(t *testing.T) {
	store := repository.NewEventStore(newTestDB(t))
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for _, ref := range []string{"r1", "r2", "r3"} {
		ref := ref
		mustAppend(t, store, "a", now, func(e *models.AccessEvent) { e.Referer = &ref })
	}
	got, err := NewAggregator(store, NewManualClock(now)).Referrers(context.Background(), 2)
	if err != nil {
		t.Fatalf("Referrers: %v", err)
	}
	if len(got) != 2 || got[0].Referrer != "r1" || got[1].Referrer != "r2" {
		t.Fatalf("unexpected referrers %+v", got)
	}
}

func TestDevices(t *testing.T) {
	store := repository.NewEventStore(newTestDB(t))
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	withUA := func(ua string) func(*models.AccessEvent) {
		return func(e *models.AccessEvent) { e.UserAgent = strPtr(ua) }
	}

	mustAppend(t, store, "a", now)
	mustAppend(t, store, "a", now, withUA("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0) Mobile/15E148"))
	mustAppend(t, store, "a", now, withUA("Mozilla/5.0 (Linux; Android 14) Mobile"))
	mustAppend(t, store, "a", now, withUA("Mozilla/5.0 (iPad; CPU OS 17_0)"))

	got, err := NewAggregator(store, NewManualClock(now)).Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	want := []DeviceCount{
		{Device: DeviceMobile, Count: 2},
		{Device: DeviceDesktop, Count: 1},
		{Device: DeviceTablet, Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name string
		ua   *string
		want DeviceClass
	}{
		{"missing header", nil, DeviceDesktop},
		{"empty header", strPtr(""), DeviceDesktop},
		{"desktop chrome", strPtr("Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0"), DeviceDesktop},
		{"iphone", strPtr("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)"), DeviceMobile},
		{"android uppercase", strPtr("ANDROID 14"), DeviceMobile},
		{"ipad", strPtr("Mozilla/5.0 (iPad; CPU OS 17_0)"), DeviceTablet},
		{"generic tablet", strPtr("SomeTablet Browser"), DeviceTablet},
		{"mobile wins over tablet", strPtr("Tablet Mobile Safari"), DeviceMobile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDevice(tt.ua); got != tt.want {
				t.Fatalf("ClassifyDevice = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDeviceBreakdownTieOrder(t *testing.T) {
	got := DeviceBreakdown([]repository.KeyCount{
		{Key: strPtr("iPad"), Count: 1},
		{Key: strPtr("iPhone"), Count: 1},
		{Key: nil, Count: 1},
	})
	want := []DeviceCount{
		{Device: DeviceDesktop, Count: 1},
		{Device: DeviceMobile, Count: 1},
		{Device: DeviceTablet, Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if out := DeviceBreakdown(nil); len(out) != 0 {
		t.Fatalf("expected no classes for no events, got %+v", out)
	}
}

func TestAggregatorWrapsStorageFailures(t *testing.T) {
	clock := NewManualClock(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	agg := NewAggregator(&fakeEventStore{err: errStorage}, clock)
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["totals"] = agg.Totals(ctx)
	_, checks["daily"] = agg.DailySeries(ctx, clock.Now(), clock.Now())
	_, checks["referrers"] = agg.Referrers(ctx, 10)
	_, checks["devices"] = agg.Devices(ctx)

	for name, err := range checks {
		if !errors.Is(err, ErrAggregationFailed) {
			t.Errorf("%s: expected ErrAggregationFailed, got %v", name, err)
		}
		if !errors.Is(err, errStorage) {
			t.Errorf("%s: expected underlying cause to be preserved, got %v", name, err)
		}
	}
}
