package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads the layered configuration: base config.yaml, then the
// environment-specific overlay, then environment variable overrides.
func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like RECAPTCHA_SECRET_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // overlay is optional

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or any parent holding go.mod,
// so binaries and tests behave the same regardless of where they run from.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills secrets from the environment when the config file
// left them blank.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Security.Recaptcha.SecretKey == "" {
		if val := os.Getenv("RECAPTCHA_SECRET_KEY"); val != "" {
			cfg.Security.Recaptcha.SecretKey = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Notifications.SMTP.Password == "" {
		if val := os.Getenv("SMTP_PASSWORD"); val != "" {
			cfg.Notifications.SMTP.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}

	if cfg.Security.Forgery.TokenTTL == 0 {
		cfg.Security.Forgery.TokenTTL = 86400000 // one day
	}
	if cfg.Security.Forgery.FieldName == "" {
		cfg.Security.Forgery.FieldName = "csrf_token"
	}
	if cfg.Security.Forgery.HeaderName == "" {
		cfg.Security.Forgery.HeaderName = "X-CSRF-Token"
	}
	if cfg.Security.Forgery.CookieName == "" {
		cfg.Security.Forgery.CookieName = "session_id"
	}

	if cfg.Security.Recaptcha.VerifyURL == "" {
		cfg.Security.Recaptcha.VerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	}
	if cfg.Security.Recaptcha.MinScore == 0 {
		cfg.Security.Recaptcha.MinScore = 0.5
	}
	if cfg.Security.Recaptcha.Timeout == 0 {
		cfg.Security.Recaptcha.Timeout = 5000
	}

	if len(cfg.Security.RateLimit.Tiers) == 0 {
		cfg.Security.RateLimit.Tiers = []RateLimitTierConfig{
			{Name: "burst", MaxRequests: 5, Window: 60000},
			{Name: "hourly", MaxRequests: 20, Window: 3600000},
		}
	}

	if cfg.Forms.BasePath == "" {
		cfg.Forms.BasePath = "contact"
	}
	if cfg.Forms.DefaultCategory == "" {
		cfg.Forms.DefaultCategory = "general"
	}
	if cfg.Forms.SuccessPath == "" {
		cfg.Forms.SuccessPath = "success"
	}

	if cfg.Notifications.Timeout == 0 {
		cfg.Notifications.Timeout = 10000
	}
	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "us-east-1"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when redis is enabled")
	}

	if len(cfg.Forms.Categories) == 0 {
		return fmt.Errorf("forms.categories must define at least one category")
	}
	if _, ok := cfg.Forms.Categories[cfg.Forms.DefaultCategory]; !ok {
		return fmt.Errorf("forms.default_category %q is not a configured category", cfg.Forms.DefaultCategory)
	}

	for i, tier := range cfg.Security.RateLimit.Tiers {
		if tier.MaxRequests <= 0 {
			return fmt.Errorf("security.rate_limit.tiers[%d].max_requests must be positive", i)
		}
		if tier.Window <= 0 {
			return fmt.Errorf("security.rate_limit.tiers[%d].window must be positive", i)
		}
	}

	if cfg.Notifications.Email.Enabled && cfg.Notifications.Email.ToEmail == "" {
		return fmt.Errorf("notifications.email.to_email is required when email is enabled")
	}

	return nil
}
