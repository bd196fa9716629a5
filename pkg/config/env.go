package config

const (
	EnvPrefix = "STOREORDERS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREORDERS_APP_ENV"
	EnvPort     = "STOREORDERS_APP_PORT"
	EnvLogLevel = "STOREORDERS_LOG_LEVEL"

	EnvDBDSN  = "STOREORDERS_DB_DSN"
	EnvDBHost = "STOREORDERS_DB_HOST"
	EnvDBUser = "STOREORDERS_DB_USER"
	EnvDBName = "STOREORDERS_DB_NAME"

	EnvRedisURL = "STOREORDERS_REDIS_URL"

	EnvJWTSecret = "STOREORDERS_JWT_SECRET"
	EnvJWTIssuer = "STOREORDERS_JWT_ISSUER"

	EnvGCPProjectID = "STOREORDERS_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic      = "STOREORDERS_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotificationSub  = "STOREORDERS_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvCompletionPollInterval = "STOREORDERS_COMPLETION_POLL_INTERVAL"

	EnvOutboxMaxAttempts = "STOREORDERS_OUTBOX_MAX_ATTEMPTS"
	EnvCronInterval      = "STOREORDERS_CRON_INTERVAL"
	EnvCronLockTTL       = "STOREORDERS_CRON_LOCK_TTL"
)
