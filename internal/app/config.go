package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

type Config struct {
	Env  string `env:"APP_ENV,default=dev"`
	Port string `env:"APP_PORT,default=8080"`

	DSN string `env:"DB_DSN,default=host=localhost user=postgres password=postgres dbname=biomarket port=5432 sslmode=disable"`

	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"TOKEN_TTL,default=24h"`
	CookieSecure bool          `env:"COOKIE_SECURE,default=false"`
	BcryptCost   int           `env:"BCRYPT_COST,default=10"`

	UploadDir      string `env:"UPLOAD_DIR,default=uploads"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES,default=16777216"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT,default=25"`
	SMTPFrom string `env:"SMTP_FROM,default=noreply@biomarket.local"`

	CORSOrigins     string `env:"CORS_ORIGINS,default=http://localhost:5173"`
	LoginRatePerMin int    `env:"LOGIN_RATE_PER_MIN,default=30"`
	LogLevel        string `env:"LOG_LEVEL,default=info"`
}

const devSecret = "dev-secret-change-me"

func (c Config) IsProd() bool { return c.Env == "prod" }

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LoadConfig reads the environment. Outside prod a missing JWT_SECRET falls
// back to a fixed development secret.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProd() {
			return Config{}, errors.New("JWT_SECRET is required in prod")
		}
		cfg.JWTSecret = devSecret
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}
	if cfg.LoginRatePerMin <= 0 {
		return Config{}, fmt.Errorf("LOGIN_RATE_PER_MIN must be positive, got %d", cfg.LoginRatePerMin)
	}
	return cfg, nil
}
