package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Salesforce    SalesforceConfig
	Auth          AuthConfig
	Session       SessionConfig
	Schema        SchemaConfig
	Mailgun       MailgunConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	BaseURL        string
	FrontendURL    string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

type SalesforceConfig struct {
	ClientID      string
	ClientSecret  string
	CallbackURL   string
	LoginURL      string
	Username      string
	Password      string
	SecurityToken string
	APIVersion    string
}

type AuthConfig struct {
	APIBearerToken string
}

type SessionConfig struct {
	JWTSecret    string
	JWTIssuer    string
	TTLHours     int
	CookieDomain string
	CookieSecure bool
}

type SchemaConfig struct {
	CacheTTLSeconds  int // 0 disables the describe cache
	ContactChunkSize int
}

type MailgunConfig struct {
	APIKey  string
	Domain  string
	BaseURL string
	From    string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("FRONTEND_URL", "")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("SF_LOGIN_URL", "https://login.salesforce.com")
	v.SetDefault("SF_API_VERSION", "61.0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "") // OTLP over HTTP; empty disables tracing
	v.SetDefault("O11Y_BE_SERVICE_NAME", "attendance-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "aish-attendance")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "attendance-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,alloc_objects,goroutines,mutex,block")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	// Schema discovery defaults
	v.SetDefault("SCHEMA_CACHE_TTL", 0) // seconds; 0 re-describes on every request
	v.SetDefault("CONTACT_CHUNK_SIZE", 100)

	// Session defaults
	v.SetDefault("JWT_ISSUER", "attendance-api")
	v.SetDefault("SESSION_TTL_HOURS", 12)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SECURE", true)

	// Mailgun defaults
	v.SetDefault("MAILGUN_BASE_URL", "https://api.mailgun.net")

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	// Parse allowed CORS origins (comma-separated)
	allowedOrigins := []string{}
	originsStr := v.GetString("ALLOWED_CORS_ORIGINS")
	if originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins = append(allowedOrigins, origin)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			BaseURL:        v.GetString("BASE_URL"),
			FrontendURL:    v.GetString("FRONTEND_URL"),
			AllowedOrigins: allowedOrigins,
			MaxBodyBytes:   v.GetInt64("MAX_BODY_BYTES"),
		},
		Salesforce: SalesforceConfig{
			ClientID:      v.GetString("SF_CLIENT_ID"),
			ClientSecret:  v.GetString("SF_CLIENT_SECRET"),
			CallbackURL:   v.GetString("SF_CALLBACK_URL"),
			LoginURL:      v.GetString("SF_LOGIN_URL"),
			Username:      v.GetString("SF_USERNAME"),
			Password:      v.GetString("SF_PASSWORD"),
			SecurityToken: v.GetString("SF_SECURITY_TOKEN"),
			APIVersion:    v.GetString("SF_API_VERSION"),
		},
		Auth: AuthConfig{
			APIBearerToken: v.GetString("API_BEARER_TOKEN"),
		},
		Session: SessionConfig{
			JWTSecret:    v.GetString("JWT_SECRET"),
			JWTIssuer:    v.GetString("JWT_ISSUER"),
			TTLHours:     v.GetInt("SESSION_TTL_HOURS"),
			CookieDomain: v.GetString("COOKIE_DOMAIN"),
			CookieSecure: v.GetBool("COOKIE_SECURE"),
		},
		Schema: SchemaConfig{
			CacheTTLSeconds:  v.GetInt("SCHEMA_CACHE_TTL"),
			ContactChunkSize: v.GetInt("CONTACT_CHUNK_SIZE"),
		},
		Mailgun: MailgunConfig{
			APIKey:  v.GetString("MAILGUN_API_KEY"),
			Domain:  v.GetString("MAILGUN_DOMAIN"),
			BaseURL: v.GetString("MAILGUN_BASE_URL"),
			From:    v.GetString("MAILGUN_FROM"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	// Connected app configuration
	if c.Salesforce.ClientID == "" {
		return fmt.Errorf("SF_CLIENT_ID is required")
	}
	if c.Salesforce.ClientSecret == "" {
		return fmt.Errorf("SF_CLIENT_SECRET is required")
	}
	if c.Salesforce.CallbackURL == "" {
		return fmt.Errorf("SF_CALLBACK_URL is required")
	}

	// Authentication
	if c.Auth.APIBearerToken == "" {
		return fmt.Errorf("API_BEARER_TOKEN is required")
	}
	if c.Session.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	// Server configuration
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}
