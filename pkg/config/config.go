package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"counsel/pkg/client"
	"counsel/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	AuthJWTSecret string
	AuthJWTIssuer string

	RoomTokenSecret string
	RoomAPIKey      string
	RoomTokenTTL    time.Duration

	PlaceholderEmailDomain string
	NotificationTimeout    time.Duration

	EmailAPIURL     string
	EmailAPIKey     string
	EmailFrom       string
	EmailRateLimit  int
	EmailAPITimeout time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the configuration from the environment and exits the process
// when it does not validate.
func Load(serviceName string) *Config {
	cfg := FromEnv(serviceName)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv reads the configuration without validating it.
func FromEnv(serviceName string) *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		AuthJWTSecret: getEnvStr(EnvAuthJWTSecret, ""),
		AuthJWTIssuer: getEnvStr(EnvAuthJWTIssuer, ""),

		RoomTokenSecret: getEnvStr(EnvRoomTokenSecret, ""),
		RoomAPIKey:      getEnvStr(EnvRoomAPIKey, ""),
		RoomTokenTTL:    getEnvDuration(EnvRoomTokenTTL, DefaultRoomTokenTTL),

		PlaceholderEmailDomain: strings.ToLower(getEnvStr(EnvPlaceholderEmailDomain, DefaultPlaceholderEmailDomain)),
		NotificationTimeout:    getEnvDuration(EnvNotificationTimeout, DefaultNotificationTimeout),

		EmailAPIURL:     strings.TrimRight(getEnvStr(EnvEmailAPIURL, DefaultEmailAPIURL), "/"),
		EmailAPIKey:     getEnvStr(EnvEmailAPIKey, ""),
		EmailFrom:       getEnvStr(EnvEmailFrom, DefaultEmailFrom),
		EmailRateLimit:  getEnvNum(EnvEmailRateLimit, DefaultEmailRateLimit),
		EmailAPITimeout: getEnvDuration(EnvEmailAPITimeout, DefaultEmailAPITimeout),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if len(cfg.AuthJWTSecret) < 32 {
		errors = append(errors, "AuthJWTSecret must be at least 32 characters")
	}
	if cfg.RoomTokenSecret != "" && len(cfg.RoomTokenSecret) < 32 {
		errors = append(errors, "RoomTokenSecret must be at least 32 characters when set")
	}
	if cfg.PlaceholderEmailDomain == "" || strings.Contains(cfg.PlaceholderEmailDomain, "@") {
		errors = append(errors, fmt.Sprintf("PlaceholderEmailDomain must be a bare domain, got: %q", cfg.PlaceholderEmailDomain))
	}
	if !strings.HasPrefix(cfg.EmailAPIURL, "http://") && !strings.HasPrefix(cfg.EmailAPIURL, "https://") {
		errors = append(errors, fmt.Sprintf("EmailAPIURL must be an http(s) URL, got: %s", cfg.EmailAPIURL))
	}
	if cfg.EmailRateLimit <= 0 {
		errors = append(errors, fmt.Sprintf("EmailRateLimit must be positive, got: %d", cfg.EmailRateLimit))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RoomTokenTTL", cfg.RoomTokenTTL},
		{"NotificationTimeout", cfg.NotificationTimeout},
		{"EmailAPITimeout", cfg.EmailAPITimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"auth_jwt_secret_set", cfg.AuthJWTSecret != "",
		"auth_jwt_issuer", cfg.AuthJWTIssuer,
		"room_token_secret_set", cfg.RoomTokenSecret != "",
		"room_token_ttl", cfg.RoomTokenTTL,
		"placeholder_email_domain", cfg.PlaceholderEmailDomain,
		"notification_timeout", cfg.NotificationTimeout,
		"email_api_url", cfg.EmailAPIURL,
		"email_api_key_set", cfg.EmailAPIKey != "",
		"email_rate_limit", cfg.EmailRateLimit,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}
