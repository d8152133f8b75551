package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MongoURI:               DefaultMongoURI,
		MongoDatabaseName:      DefaultMongoDatabaseName,
		MongoConnTimeout:       DefaultMongoConnTimeout,
		Port:                   DefaultPort,
		AuthJWTSecret:          strings.Repeat("s", 32),
		RoomTokenTTL:           DefaultRoomTokenTTL,
		PlaceholderEmailDomain: DefaultPlaceholderEmailDomain,
		NotificationTimeout:    DefaultNotificationTimeout,
		EmailAPIURL:            DefaultEmailAPIURL,
		EmailRateLimit:         DefaultEmailRateLimit,
		EmailAPITimeout:        DefaultEmailAPITimeout,
		RateLimitRequests:      DefaultRateLimitRequests,
		RateLimitWindow:        DefaultRateLimitWindow,
		RequestTimeout:         DefaultRequestTimeout,
		IdempotencyTTL:         DefaultIdempotencyTTL,
		MaxRequestSize:         DefaultMaxRequestSize,
		ReadTimeout:            DefaultReadTimeout,
		WriteTimeout:           DefaultWriteTimeout,
		IdleTimeout:            DefaultIdleTimeout,
		ShutdownTimeout:        DefaultShutdownTimeout,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults with secret", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Port = "99999" }, wantErr: "Port"},
		{name: "bad mongo uri", mutate: func(c *Config) { c.MongoURI = "postgres://x" }, wantErr: "MongoURI"},
		{name: "short jwt secret", mutate: func(c *Config) { c.AuthJWTSecret = "short" }, wantErr: "AuthJWTSecret"},
		{name: "short room secret", mutate: func(c *Config) { c.RoomTokenSecret = "short" }, wantErr: "RoomTokenSecret"},
		{name: "placeholder with at", mutate: func(c *Config) { c.PlaceholderEmailDomain = "a@b" }, wantErr: "PlaceholderEmailDomain"},
		{name: "email url scheme", mutate: func(c *Config) { c.EmailAPIURL = "ftp://mail" }, wantErr: "EmailAPIURL"},
		{name: "zero notification timeout", mutate: func(c *Config) { c.NotificationTimeout = 0 }, wantErr: "NotificationTimeout"},
		{name: "negative ttl", mutate: func(c *Config) { c.RoomTokenTTL = -time.Second }, wantErr: "RoomTokenTTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvPlaceholderEmailDomain, "Example.Invalid")
	t.Setenv(EnvEmailAPIURL, "http://mail.local/")
	t.Setenv(EnvRoomTokenTTL, "30m")
	t.Setenv(EnvEmailRateLimit, "not-a-number")

	cfg := FromEnv("test")

	if cfg.PlaceholderEmailDomain != "example.invalid" {
		t.Errorf("expected lowercased domain, got %s", cfg.PlaceholderEmailDomain)
	}
	if cfg.EmailAPIURL != "http://mail.local" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.EmailAPIURL)
	}
	if cfg.RoomTokenTTL != 30*time.Minute {
		t.Errorf("expected 30m ttl, got %s", cfg.RoomTokenTTL)
	}
	if cfg.EmailRateLimit != DefaultEmailRateLimit {
		t.Errorf("expected fallback rate, got %d", cfg.EmailRateLimit)
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:hunter2@db:27017")
	if strings.Contains(got, "hunter2") {
		t.Errorf("password leaked: %s", got)
	}
}
