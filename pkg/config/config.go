package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	Tenancy      TenancyConfig
	Cart         CartConfig
	Checkout     CheckoutConfig
	Stripe       StripeConfig
	Sendgrid     SendgridConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"STOREFRONT_APP_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BaseURL returns the public storefront URL without a trailing slash.
func (a AppConfig) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(a.PublicURL), "/")
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"STOREFRONT_REDIS_KEY_PREFIX" default:"sf"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" default:"storefront"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"480"`
}

// TTL returns the admin token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	ContactWindow   time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_CONTACT_WINDOW" default:"10s"`
	ContactLimit    int           `envconfig:"STOREFRONT_RATE_LIMIT_CONTACT_LIMIT" default:"10"`
	NewsletterLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_NEWSLETTER_LIMIT" default:"10"`
	LoginWindow     time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"STOREFRONT_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type TenancyConfig struct {
	BaseDomain    string `envconfig:"STOREFRONT_TENANCY_BASE_DOMAIN" default:"rapidsites.com.au"`
	DefaultTenant string `envconfig:"STOREFRONT_TENANCY_DEFAULT_TENANT" default:"opals"`
}

type CartConfig struct {
	TTL          time.Duration `envconfig:"STOREFRONT_CART_TTL" default:"168h"`
	CookieName   string        `envconfig:"STOREFRONT_CART_COOKIE_NAME" default:"cart_session"`
	CookieDomain string        `envconfig:"STOREFRONT_CART_COOKIE_DOMAIN"`
}

type CheckoutConfig struct {
	Currency              string   `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"aud"`
	ShippingFee           string   `envconfig:"STOREFRONT_CHECKOUT_SHIPPING_FEE" default:"15"`
	FreeShippingThreshold string   `envconfig:"STOREFRONT_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"500"`
	AllowedCountries      []string `envconfig:"STOREFRONT_CHECKOUT_ALLOWED_COUNTRIES" default:"AU,NZ,US,GB,CA,SG,HK,JP"`
	OrderNumberPrefix     string   `envconfig:"STOREFRONT_CHECKOUT_ORDER_PREFIX" default:"OPAL"`
}

// Fee returns the flat shipping fee.
func (c CheckoutConfig) Fee() decimal.Decimal {
	return decimal.RequireFromString(c.ShippingFee)
}

// Threshold returns the subtotal at which shipping becomes free.
func (c CheckoutConfig) Threshold() decimal.Decimal {
	return decimal.RequireFromString(c.FreeShippingThreshold)
}

func (c CheckoutConfig) validate() error {
	fee, err := decimal.NewFromString(c.ShippingFee)
	if err != nil || fee.IsNegative() {
		return fmt.Errorf("%s must be a non-negative amount", EnvCheckoutShippingFee)
	}
	threshold, err := decimal.NewFromString(c.FreeShippingThreshold)
	if err != nil || threshold.IsNegative() {
		return fmt.Errorf("%s must be a non-negative amount", EnvCheckoutFreeShippingThreshold)
	}
	if len(strings.TrimSpace(c.Currency)) != 3 {
		return fmt.Errorf("%s must be a 3-letter currency code", EnvCheckoutCurrency)
	}
	return nil
}

type StripeConfig struct {
	APIKey         string        `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	WebhookSecret  string        `envconfig:"STOREFRONT_STRIPE_WEBHOOK_SECRET"`
	Env            string        `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
	EventRetention time.Duration `envconfig:"STOREFRONT_STRIPE_EVENT_RETENTION" default:"72h"`
	BreakerTrips   uint32        `envconfig:"STOREFRONT_STRIPE_BREAKER_FAILURES" default:"5"`
	BreakerCool    time.Duration `envconfig:"STOREFRONT_STRIPE_BREAKER_COOLDOWN" default:"30s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// SigningSecret returns the trimmed webhook signing secret.
func (s StripeConfig) SigningSecret() string {
	return strings.TrimSpace(s.WebhookSecret)
}

// Configured reports whether hosted checkout can be offered.
func (s StripeConfig) Configured() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type SendgridConfig struct {
	APIKey      string `envconfig:"STOREFRONT_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"STOREFRONT_SENDGRID_FROM_EMAIL" default:"noreply@rapidsites.com.au"`
	FromName    string `envconfig:"STOREFRONT_SENDGRID_FROM_NAME" default:"Rapid Sites"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"STOREFRONT_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" || sqlite {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
