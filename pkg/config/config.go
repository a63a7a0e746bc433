package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/novatra-store/novatra-backend/pkg/enums"
)

// EnvPrefix namespaces every Novatra environment variable.
const EnvPrefix = "NOVATRA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	OTP          OTPConfig
	RateLimit    RateLimitConfig
	Payments     PaymentsConfig
	Gateway      GatewayConfig
	SMTP         SMTPConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if !cfg.Payments.CapturePolicy().IsValid() {
		return nil, fmt.Errorf("invalid capture policy %q", cfg.Payments.RawCapturePolicy)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NOVATRA_APP_ENV" required:"true"`
	Port         string `envconfig:"NOVATRA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"NOVATRA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"NOVATRA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"NOVATRA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NOVATRA_DB_DSN"`
	Driver string `envconfig:"NOVATRA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"NOVATRA_DB_HOST"`
	Port     int    `envconfig:"NOVATRA_DB_PORT" default:"5432"`
	User     string `envconfig:"NOVATRA_DB_USER"`
	Password string `envconfig:"NOVATRA_DB_PASSWORD"`
	Name     string `envconfig:"NOVATRA_DB_NAME"`
	SSLMode  string `envconfig:"NOVATRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NOVATRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NOVATRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NOVATRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NOVATRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NOVATRA_REDIS_URL"`
	Address      string        `envconfig:"NOVATRA_REDIS_ADDR"`
	Password     string        `envconfig:"NOVATRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"NOVATRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NOVATRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NOVATRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NOVATRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NOVATRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NOVATRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NOVATRA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NOVATRA_JWT_ISSUER" default:"novatra"`
	ExpirationMinutes int    `envconfig:"NOVATRA_JWT_EXPIRATION_MINUTES" default:"10080"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"NOVATRA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"NOVATRA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"NOVATRA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"NOVATRA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"NOVATRA_ARGON_KEY_LEN" default:"32"`
}

type OTPConfig struct {
	TTL         time.Duration `envconfig:"NOVATRA_OTP_TTL" default:"10m"`
	SendWindow  time.Duration `envconfig:"NOVATRA_OTP_SEND_WINDOW" default:"5m"`
	SendLimit   int           `envconfig:"NOVATRA_OTP_SEND_LIMIT" default:"3"`
	VerifyLimit int           `envconfig:"NOVATRA_OTP_VERIFY_LIMIT" default:"10"`
}

type RateLimitConfig struct {
	Window   time.Duration `envconfig:"NOVATRA_RATE_LIMIT_WINDOW" default:"15m"`
	Requests int           `envconfig:"NOVATRA_RATE_LIMIT_REQUESTS" default:"100"`
}

type PaymentsConfig struct {
	RawCapturePolicy string `envconfig:"NOVATRA_PAYMENTS_CAPTURE_POLICY" default:"verified_capture"`
}

// CapturePolicy returns the typed capture policy for online orders.
func (p PaymentsConfig) CapturePolicy() enums.CapturePolicy {
	return enums.CapturePolicy(strings.TrimSpace(strings.ToLower(p.RawCapturePolicy)))
}

type GatewayConfig struct {
	BaseURL       string        `envconfig:"NOVATRA_GATEWAY_BASE_URL" default:"https://api.novapay.test"`
	KeyID         string        `envconfig:"NOVATRA_GATEWAY_KEY_ID"`
	KeySecret     string        `envconfig:"NOVATRA_GATEWAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"NOVATRA_GATEWAY_WEBHOOK_SECRET"`
	Currency      string        `envconfig:"NOVATRA_GATEWAY_CURRENCY" default:"INR"`
	Timeout       time.Duration `envconfig:"NOVATRA_GATEWAY_TIMEOUT" default:"10s"`
	MaxAttempts   int           `envconfig:"NOVATRA_GATEWAY_MAX_ATTEMPTS" default:"3"`
}

type SMTPConfig struct {
	Host     string `envconfig:"NOVATRA_SMTP_HOST"`
	Port     int    `envconfig:"NOVATRA_SMTP_PORT" default:"587"`
	Username string `envconfig:"NOVATRA_SMTP_USERNAME"`
	Password string `envconfig:"NOVATRA_SMTP_PASSWORD"`
	From     string `envconfig:"NOVATRA_SMTP_FROM" default:"Novatra Store <no-reply@novatra.store>"`
}

type CORSConfig struct {
	FrontendURL string `envconfig:"NOVATRA_FRONTEND_URL" default:"http://localhost:5173"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NOVATRA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NOVATRA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"NOVATRA_DB_HOST": db.Host,
		"NOVATRA_DB_USER": db.User,
		"NOVATRA_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either NOVATRA_DB_DSN or %s are required", strings.Join(missing, ", "))
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
