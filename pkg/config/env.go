package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvAppURL   = "STOREFRONT_APP_URL"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvUseSQLite = "STOREFRONT_USE_SQLITE"

	EnvCheckoutCurrency              = "STOREFRONT_CHECKOUT_CURRENCY"
	EnvCheckoutShippingFee           = "STOREFRONT_CHECKOUT_SHIPPING_FEE"
	EnvCheckoutFreeShippingThreshold = "STOREFRONT_CHECKOUT_FREE_SHIPPING_THRESHOLD"
	EnvCheckoutAllowedCountries      = "STOREFRONT_CHECKOUT_ALLOWED_COUNTRIES"

	EnvStripeAPIKey        = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "STOREFRONT_STRIPE_WEBHOOK_SECRET"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
