package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Orders        OrdersConfig
	Idempotency   IdempotencyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadClient reads only the settings the terminal client needs, so it runs
// without any server secrets in its environment.
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("%s is not a valid url: %w", EnvClientAPIBaseURL, err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CANTEEN_APP_ENV" required:"true"`
	Port         string `envconfig:"CANTEEN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CANTEEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CANTEEN_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"CANTEEN_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

type DBConfig struct {
	DSN        string `envconfig:"CANTEEN_DB_DSN"`
	Driver     string `envconfig:"CANTEEN_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"CANTEEN_DB_SQLITE_PATH" default:"canteen.db"`

	MaxOpenConns    int           `envconfig:"CANTEEN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CANTEEN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CANTEEN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CANTEEN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CANTEEN_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"CANTEEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CANTEEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CANTEEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CANTEEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CANTEEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CANTEEN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CANTEEN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CANTEEN_JWT_EXPIRATION_MINUTES" default:"480"`
}

func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CANTEEN_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CANTEEN_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CANTEEN_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CANTEEN_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CANTEEN_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CANTEEN_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CANTEEN_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CANTEEN_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CANTEEN_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CANTEEN_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CANTEEN_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite        bool `envconfig:"CANTEEN_USE_SQLITE" default:"false"`
	AutoMigrate      bool `envconfig:"CANTEEN_AUTO_MIGRATE" default:"false"`
	AllowStaffSignup bool `envconfig:"CANTEEN_ALLOW_STAFF_SIGNUP" default:"false"`
}

type OrdersConfig struct {
	DefaultPageSize int `envconfig:"CANTEEN_ORDERS_DEFAULT_PAGE_SIZE" default:"50"`
	MaxPageSize     int `envconfig:"CANTEEN_ORDERS_MAX_PAGE_SIZE" default:"100"`
	MaxLineQuantity int `envconfig:"CANTEEN_ORDERS_MAX_LINE_QUANTITY" default:"99"`
}

func (o OrdersConfig) validate() error {
	if o.DefaultPageSize <= 0 || o.MaxPageSize < o.DefaultPageSize {
		return fmt.Errorf("%s must be positive and not exceed %s", EnvOrdersDefaultPageSize, EnvOrdersMaxPageSize)
	}
	if o.MaxLineQuantity <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersMaxLineQuantity)
	}
	return nil
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"CANTEEN_IDEMPOTENCY_TTL" default:"24h"`
}

type ClientConfig struct {
	APIBaseURL     string        `envconfig:"CANTEEN_CLIENT_API_BASE_URL" default:"http://localhost:8080"`
	RedisURL       string        `envconfig:"CANTEEN_CLIENT_REDIS_URL"`
	CartNamespace  string        `envconfig:"CANTEEN_CLIENT_CART_NAMESPACE" default:"app.cart"`
	CartTTL        time.Duration `envconfig:"CANTEEN_CLIENT_CART_TTL" default:"168h"`
	SessionID      string        `envconfig:"CANTEEN_CLIENT_SESSION" default:"default"`
	RequestTimeout time.Duration `envconfig:"CANTEEN_CLIENT_REQUEST_TIMEOUT" default:"0s"`
	LogLevel       string        `envconfig:"CANTEEN_LOG_LEVEL" default:"warn"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN == "" {
		return fmt.Errorf("%s is required unless %s is set", EnvDBDSN, EnvUseSQLite)
	}
	if _, err := url.Parse(db.DSN); err != nil {
		return fmt.Errorf("%s is not a valid url: %w", EnvDBDSN, err)
	}
	return nil
}
