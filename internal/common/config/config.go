package config

import (
	"sort"
	"strings"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Security      SecurityConfig     `mapstructure:"security"`
	Forms         FormsConfig        `mapstructure:"forms"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Enabled switches the rate-limit and token stores between redis and the
	// in-process memory implementations.
	Enabled bool `mapstructure:"enabled"`
}

// --- Security Configuration ---

type SecurityConfig struct {
	Forgery   ForgeryConfig   `mapstructure:"forgery"`
	Recaptcha RecaptchaConfig `mapstructure:"recaptcha"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ForgeryConfig struct {
	// TokenTTL bounds how long a session token stays valid, milliseconds.
	TokenTTL    int    `mapstructure:"token_ttl"`
	FieldName   string `mapstructure:"field_name"`
	HeaderName  string `mapstructure:"header_name"`
	CookieName  string `mapstructure:"cookie_name"`
}

type RecaptchaConfig struct {
	SecretKey string  `mapstructure:"secret_key"`
	VerifyURL string  `mapstructure:"verify_url"`
	MinScore  float64 `mapstructure:"min_score"`
	Timeout   int     `mapstructure:"timeout"` // milliseconds
}

type RateLimitConfig struct {
	// Tiers are checked in order; a request must satisfy every tier.
	Tiers []RateLimitTierConfig `mapstructure:"tiers"`
}

type RateLimitTierConfig struct {
	Name        string `mapstructure:"name"`
	MaxRequests int    `mapstructure:"max_requests"`
	Window      int    `mapstructure:"window"` // milliseconds
}

// --- Forms Configuration ---

// CategoryConfig describes one selectable contact category. Built once at
// config load and never mutated afterwards.
type CategoryConfig struct {
	Label           string            `mapstructure:"label"`
	Description     string            `mapstructure:"description"`
	Fields          []string          `mapstructure:"fields"`
	ValidationRules map[string]string `mapstructure:"validation_rules"`
}

type FormsConfig struct {
	Categories      map[string]CategoryConfig `mapstructure:"categories"`
	BasePath        string                    `mapstructure:"base_path"`
	DefaultCategory string                    `mapstructure:"default_category"`
	SuccessPath     string                    `mapstructure:"success_path"`
	// LocalePrefix, when set (e.g. "en"), prefixes router paths with /<lang>.
	LocalePrefix string `mapstructure:"locale_prefix"`
}

// --- Notification Configuration ---

type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool   `mapstructure:"enabled"`
		ToPhone string `mapstructure:"to_phone"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SMTP struct {
		Host        string `mapstructure:"host"`
		Port        int    `mapstructure:"port"`
		Username    string `mapstructure:"username"`
		Password    string `mapstructure:"password"`
		DefaultFrom string `mapstructure:"default_from"`
	} `mapstructure:"smtp"`
	Timeout int `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// CanonicalSlug normalizes a category label into its slug alias: lowercase
// with whitespace runs collapsed to single hyphens.
func CanonicalSlug(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "-")
}

// DuplicateCanonicalSlugs returns canonical slugs shared by more than one
// configured category label. Lookup order between colliding categories is
// undefined, so collisions are reported as configuration warnings at startup.
func (f FormsConfig) DuplicateCanonicalSlugs() []string {
	seen := make(map[string][]string)
	for key, cat := range f.Categories {
		canonical := CanonicalSlug(cat.Label)
		seen[canonical] = append(seen[canonical], key)
	}

	var dupes []string
	for canonical, keys := range seen {
		if len(keys) > 1 {
			dupes = append(dupes, canonical)
		}
	}
	sort.Strings(dupes)
	return dupes
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
