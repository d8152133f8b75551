package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "counsel"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRoomTokenTTL = 1 * time.Hour

	DefaultPlaceholderEmailDomain = "users.counsel.invalid"
	DefaultNotificationTimeout    = 3 * time.Second

	DefaultEmailAPIURL     = "https://api.resend.com"
	DefaultEmailFrom       = "Counsel <noreply@counsel.app>"
	DefaultEmailRateLimit  = 2
	DefaultEmailAPITimeout = 10 * time.Second

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
