package config

import (
	"errors"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	JWTExpiryHours     int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Proxies whose X-Forwarded-For is believed; empty means the peer address is the client
	TrustedProxies []string
	TimeZone       string
	// Database: driver is "mysql" or "sqlite"
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	SQLitePath  string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis for list caching; empty host disables it
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheTTLSeconds int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Access log pipeline and retention
	AccessQueueSize     int
	AccessWorkers       int
	AccessRetentionDays int
	AccessRetentionCron string
	// Admins
	AdminUsernames []string
}

// envBindings maps viper keys onto the environment variables that override them.
var envBindings = map[string]string{
	"app.port":                 "APP_PORT",
	"app.jwtsecret":            "JWT_SECRET",
	"app.jwtexpiryhours":       "JWT_EXPIRY_HOURS",
	"app.ratelimitperminute":   "RATE_LIMIT_PER_MINUTE",
	"app.allowedorigins":       "ALLOWED_ORIGINS",
	"app.trustedproxies":       "TRUSTED_PROXIES",
	"app.timezone":             "APP_TIMEZONE",
	"app.adminusernames":       "ADMIN_USERNAMES",
	"gin.mode":                 "GIN_MODE",
	"gin.path":                 "GIN_PATH",
	"database.driver":          "DB_DRIVER",
	"database.uri":             "DATABASE_URI",
	"database.host":            "DB_HOST",
	"database.port":            "DB_PORT",
	"database.user":            "DB_USER",
	"database.password":        "DB_PASSWORD",
	"database.name":            "DB_NAME",
	"database.sqlitepath":      "SQLITE_PATH",
	"redis.host":               "REDIS_HOST",
	"redis.port":               "REDIS_PORT",
	"redis.db":                 "REDIS_DB",
	"redis.password":           "REDIS_PASSWORD",
	"redis.cachettlseconds":    "CACHE_TTL_SECONDS",
	"log.level":                "LOG_LEVEL",
	"log.path":                 "LOG_PATH",
	"log.maxsizemb":            "LOG_MAX_SIZE_MB",
	"log.maxbackups":           "LOG_MAX_BACKUPS",
	"log.maxagedays":           "LOG_MAX_AGE_DAYS",
	"log.compress":             "LOG_COMPRESS",
	"access.queuesize":         "ACCESS_QUEUE_SIZE",
	"access.workers":           "ACCESS_WORKERS",
	"access.retentiondays":     "ACCESS_RETENTION_DAYS",
	"access.retentioncron":     "ACCESS_RETENTION_CRON",
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: defaults -> config/config.json -> environment variable overrides
	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Used by tests and tools that build config in code.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// LoadFrom reads the grouped JSON file at path (missing file is fine), applies defaults and env overrides.
func LoadFrom(path string) (AppConfig, error) {
	vp := viper.New()
	applyDefaults(vp)

	vp.SetConfigFile(path)
	vp.SetConfigType("json")
	if err := vp.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return AppConfig{}, err
		}
	}

	for key, env := range envBindings {
		if err := vp.BindEnv(key, env); err != nil {
			return AppConfig{}, err
		}
	}

	return AppConfig{
		AppPort:             vp.GetString("app.port"),
		JWTSecret:           vp.GetString("app.jwtsecret"),
		JWTExpiryHours:      vp.GetInt("app.jwtexpiryhours"),
		RateLimitPerMinute:  vp.GetInt("app.ratelimitperminute"),
		AllowedOrigins:      readList(vp, "app.allowedorigins"),
		TrustedProxies:      readList(vp, "app.trustedproxies"),
		TimeZone:            vp.GetString("app.timezone"),
		AdminUsernames:      readList(vp, "app.adminusernames"),
		GinMode:             vp.GetString("gin.mode"),
		GinPath:             vp.GetString("gin.path"),
		DBDriver:            strings.ToLower(vp.GetString("database.driver")),
		DatabaseURI:         vp.GetString("database.uri"),
		DBHost:              vp.GetString("database.host"),
		DBPort:              vp.GetString("database.port"),
		DBUser:              vp.GetString("database.user"),
		DBPassword:          vp.GetString("database.password"),
		DBName:              vp.GetString("database.name"),
		SQLitePath:          vp.GetString("database.sqlitepath"),
		RedisHost:           vp.GetString("redis.host"),
		RedisPort:           vp.GetInt("redis.port"),
		RedisDB:             vp.GetInt("redis.db"),
		RedisPassword:       vp.GetString("redis.password"),
		CacheTTLSeconds:     vp.GetInt("redis.cachettlseconds"),
		LogLevel:            vp.GetString("log.level"),
		LogPath:             vp.GetString("log.path"),
		LogMaxSizeMB:        vp.GetInt("log.maxsizemb"),
		LogMaxBackups:       vp.GetInt("log.maxbackups"),
		LogMaxAgeDays:       vp.GetInt("log.maxagedays"),
		LogCompress:         vp.GetBool("log.compress"),
		AccessQueueSize:     vp.GetInt("access.queuesize"),
		AccessWorkers:       vp.GetInt("access.workers"),
		AccessRetentionDays: vp.GetInt("access.retentiondays"),
		AccessRetentionCron: vp.GetString("access.retentioncron"),
	}, nil
}

func applyDefaults(vp *viper.Viper) {
	vp.SetDefault("app.port", "8080")
	vp.SetDefault("app.jwtexpiryhours", 72)
	vp.SetDefault("app.ratelimitperminute", 60)
	vp.SetDefault("app.allowedorigins", []string{"*"})
	vp.SetDefault("app.timezone", "Local")
	vp.SetDefault("gin.mode", "release")
	vp.SetDefault("gin.path", "logs/go_gin.log")
	vp.SetDefault("database.driver", "mysql")
	vp.SetDefault("database.host", "127.0.0.1")
	vp.SetDefault("database.port", "3306")
	vp.SetDefault("database.user", "root")
	vp.SetDefault("database.name", "mywebsite")
	vp.SetDefault("database.sqlitepath", "data/mywebsite.db")
	vp.SetDefault("redis.port", 6379)
	vp.SetDefault("redis.cachettlseconds", 60)
	vp.SetDefault("log.level", "info")
	vp.SetDefault("log.maxsizemb", 100)
	vp.SetDefault("log.maxbackups", 3)
	vp.SetDefault("log.maxagedays", 7)
	vp.SetDefault("access.queuesize", 1024)
	vp.SetDefault("access.workers", 4)
	vp.SetDefault("access.retentiondays", 90)
	vp.SetDefault("access.retentioncron", "@daily")
}

// Location resolves TimeZone, falling back to the process local zone.
func (c AppConfig) Location() *time.Location {
	if c.TimeZone == "" || strings.EqualFold(c.TimeZone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Printf("unknown time zone %q, using local: %v", c.TimeZone, err)
		return time.Local
	}
	return loc
}

// readList accepts either a JSON array or a comma separated env string.
func readList(vp *viper.Viper, key string) []string {
	raw := vp.Get(key)
	var items []string
	switch v := raw.(type) {
	case string:
		items = strings.Split(v, ",")
	default:
		items = vp.GetStringSlice(key)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if t := strings.TrimSpace(it); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file") || strings.Contains(err.Error(), "cannot find the file")
}
