package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/repository"
)

// SiteConfigKey is one of the owner-editable site settings.
type SiteConfigKey string

const (
	KeySiteName        SiteConfigKey = "site_name"
	KeySiteDescription SiteConfigKey = "site_description"
	KeyOwnerName       SiteConfigKey = "owner_name"
	KeyOwnerAvatar     SiteConfigKey = "owner_avatar"
	KeyOwnerBio        SiteConfigKey = "owner_bio"
	KeyOwnerTitle      SiteConfigKey = "owner_title"
	KeyGithubURL       SiteConfigKey = "github_url"
	KeyLinkedinURL     SiteConfigKey = "linkedin_url"
	KeyEmail           SiteConfigKey = "email"
	KeyICPRecord       SiteConfigKey = "icp_record"
)

// siteConfigDefaults lists every known key in display order with its default value.
var siteConfigDefaults = []struct {
	key SiteConfigKey
	def string
}{
	{KeySiteName, "My Website"},
	{KeySiteDescription, "Welcome to my personal website"},
	{KeyOwnerName, "Your Name"},
	{KeyOwnerAvatar, "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=200"},
	{KeyOwnerBio, "Hello, I'm a developer."},
	{KeyOwnerTitle, "Full Stack Developer"},
	{KeyGithubURL, "https://github.com"},
	{KeyLinkedinURL, ""},
	{KeyEmail, "contact@example.com"},
	{KeyICPRecord, ""},
}

// SiteConfigKeys returns the known keys in display order.
func SiteConfigKeys() []SiteConfigKey {
	keys := make([]SiteConfigKey, 0, len(siteConfigDefaults))
	for _, d := range siteConfigDefaults {
		keys = append(keys, d.key)
	}
	return keys
}

// ParseSiteConfigKey accepts only known keys.
func ParseSiteConfigKey(s string) (SiteConfigKey, bool) {
	for _, d := range siteConfigDefaults {
		if string(d.key) == s {
			return d.key, true
		}
	}
	return "", false
}

// Default is the value used when the key has never been stored.
func (k SiteConfigKey) Default() string {
	for _, d := range siteConfigDefaults {
		if d.key == k {
			return d.def
		}
	}
	return ""
}

// SiteOverview is the public profile rendered on the home page.
type SiteOverview struct {
	SiteName        string `json:"site_name"`
	SiteDescription string `json:"site_description"`
	OwnerName       string `json:"owner_name"`
	OwnerAvatar     string `json:"owner_avatar"`
	OwnerBio        string `json:"owner_bio"`
	OwnerTitle      string `json:"owner_title"`
	GithubURL       string `json:"github_url"`
	LinkedinURL     string `json:"linkedin_url"`
	Email           string `json:"email"`
	ICPRecord       string `json:"icp_record"`
}

// SiteConfigItem is one setting as shown to the owner. UpdatedAt is nil for defaults.
type SiteConfigItem struct {
	Key       SiteConfigKey `json:"key"`
	Value     string        `json:"value"`
	UpdatedAt *time.Time    `json:"updated_at"`
}

// SiteConfigService reads and writes the site settings.
type SiteConfigService struct {
	store repository.SiteConfigStore
	clock Clock
	log   *zap.Logger
}

// NewSiteConfigService wires a SiteConfigService.
func NewSiteConfigService(store repository.SiteConfigStore, clock Clock, log *zap.Logger) *SiteConfigService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SiteConfigService{store: store, clock: clock, log: log}
}

// InitDefaults stores the default of every key not yet present.
func (s *SiteConfigService) InitDefaults(ctx context.Context) error {
	values := make(map[string]string, len(siteConfigDefaults))
	for _, d := range siteConfigDefaults {
		values[string(d.key)] = d.def
	}
	return s.store.InsertMissing(ctx, values, s.clock.Now())
}

// List returns every known key with its stored value or default.
func (s *SiteConfigService) List(ctx context.Context) ([]SiteConfigItem, error) {
	stored, err := s.stored(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SiteConfigItem, 0, len(siteConfigDefaults))
	for _, d := range siteConfigDefaults {
		if item, ok := stored[d.key]; ok {
			out = append(out, item)
			continue
		}
		out = append(out, SiteConfigItem{Key: d.key, Value: d.def})
	}
	return out, nil
}

// Overview returns the public site profile.
func (s *SiteConfigService) Overview(ctx context.Context) (*SiteOverview, error) {
	stored, err := s.stored(ctx)
	if err != nil {
		return nil, err
	}
	get := func(k SiteConfigKey) string {
		if item, ok := stored[k]; ok {
			return item.Value
		}
		return k.Default()
	}
	return &SiteOverview{
		SiteName:        get(KeySiteName),
		SiteDescription: get(KeySiteDescription),
		OwnerName:       get(KeyOwnerName),
		OwnerAvatar:     get(KeyOwnerAvatar),
		OwnerBio:        get(KeyOwnerBio),
		OwnerTitle:      get(KeyOwnerTitle),
		GithubURL:       get(KeyGithubURL),
		LinkedinURL:     get(KeyLinkedinURL),
		Email:           get(KeyEmail),
		ICPRecord:       get(KeyICPRecord),
	}, nil
}

// Update stores values keyed by raw key names. An unknown key rejects the whole update.
func (s *SiteConfigService) Update(ctx context.Context, values map[string]string) error {
	for k := range values {
		if _, ok := ParseSiteConfigKey(k); !ok {
			return invalid("key", "unknown site config key %q", k)
		}
	}
	if err := s.store.Upsert(ctx, values, s.clock.Now()); err != nil {
		return err
	}
	s.log.Info("site config updated", zap.Int("items", len(values)))
	return nil
}

func (s *SiteConfigService) stored(ctx context.Context) (map[SiteConfigKey]SiteConfigItem, error) {
	rows, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[SiteConfigKey]SiteConfigItem, len(rows))
	for _, r := range rows {
		k, ok := ParseSiteConfigKey(r.Key)
		if !ok {
			continue
		}
		at := r.UpdatedAt
		out[k] = SiteConfigItem{Key: k, Value: r.Value, UpdatedAt: &at}
	}
	return out, nil
}
