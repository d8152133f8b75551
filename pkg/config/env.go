package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvAuthJWTSecret = "AUTH_JWT_SECRET"
	EnvAuthJWTIssuer = "AUTH_JWT_ISSUER"

	EnvRoomTokenSecret = "ROOM_TOKEN_SECRET"
	EnvRoomAPIKey      = "ROOM_API_KEY"
	EnvRoomTokenTTL    = "ROOM_TOKEN_TTL"

	EnvPlaceholderEmailDomain = "PLACEHOLDER_EMAIL_DOMAIN"
	EnvNotificationTimeout    = "NOTIFICATION_TIMEOUT"

	EnvEmailAPIURL     = "EMAIL_API_URL"
	EnvEmailAPIKey     = "EMAIL_API_KEY"
	EnvEmailFrom       = "EMAIL_FROM"
	EnvEmailRateLimit  = "EMAIL_RATE_LIMIT"
	EnvEmailAPITimeout = "EMAIL_API_TIMEOUT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
