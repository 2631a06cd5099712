package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lugf027/mywebsite/repository"
)

func newSiteConfigFixture(t *testing.T) (*SiteConfigService, *ManualClock) {
	t.Helper()
	clock := NewManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	return NewSiteConfigService(repository.NewSiteConfigStore(newTestDB(t)), clock, nil), clock
}

func TestSiteConfigDefaults(t *testing.T) {
	svc, _ := newSiteConfigFixture(t)
	ctx := context.Background()

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != len(SiteConfigKeys()) {
		t.Fatalf("expected %d items, got %d", len(SiteConfigKeys()), len(items))
	}
	if items[0].Key != KeySiteName || items[0].Value != "My Website" || items[0].UpdatedAt != nil {
		t.Fatalf("unexpected first item %+v", items[0])
	}

	if err := svc.InitDefaults(ctx); err != nil {
		t.Fatalf("InitDefaults: %v", err)
	}
	items, err = svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, it := range items {
		if it.UpdatedAt == nil {
			t.Fatalf("%s not stored by InitDefaults", it.Key)
		}
	}
}

func TestSiteConfigUpdate(t *testing.T) {
	svc, clock := newSiteConfigFixture(t)
	ctx := context.Background()
	if err := svc.InitDefaults(ctx); err != nil {
		t.Fatalf("InitDefaults: %v", err)
	}

	clock.Advance(time.Hour)
	if err := svc.Update(ctx, map[string]string{"site_name": "Lu's Blog", "email": "me@example.com"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	overview, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if overview.SiteName != "Lu's Blog" || overview.Email != "me@example.com" || overview.OwnerName != "Your Name" {
		t.Fatalf("unexpected overview %+v", overview)
	}

	// defaults must not clobber stored values
	if err := svc.InitDefaults(ctx); err != nil {
		t.Fatalf("InitDefaults: %v", err)
	}
	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if items[0].Value != "Lu's Blog" || !items[0].UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("unexpected site_name item %+v", items[0])
	}
}

func TestSiteConfigRejectsUnknownKey(t *testing.T) {
	svc, _ := newSiteConfigFixture(t)
	ctx := context.Background()

	err := svc.Update(ctx, map[string]string{"site_name": "changed", "theme": "dark"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	overview, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if overview.SiteName != KeySiteName.Default() {
		t.Fatalf("rejected update was partially applied: %q", overview.SiteName)
	}
}

func TestParseSiteConfigKey(t *testing.T) {
	if k, ok := ParseSiteConfigKey("icp_record"); !ok || k != KeyICPRecord {
		t.Fatalf("icp_record not recognised")
	}
	if _, ok := ParseSiteConfigKey("ICP_RECORD"); ok {
		t.Fatalf("keys are case sensitive")
	}
}
