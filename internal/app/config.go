package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Storage backend names.
const (
	StoragePostgres = "postgres"
	StorageJSONFile = "jsonfile"
)

// Config holds the complete application configuration, loadable from
// environment variables (CRAFT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage     string `default:"postgres" usage:"Storage backend: postgres or jsonfile"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CRAFT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	StorePath   string `default:"marketplace.json" usage:"Data file path for the jsonfile backend" flag:"store-path"`
	ShippingFeeRaw string `default:"150" usage:"Flat shipping fee added to every order" flag:"shipping-fee" env:"SHIPPING_FEE" yaml:"shipping_fee"`
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig

	shippingFee decimal.Decimal
}

// JWTConfig controls token minting.
type JWTConfig struct {
	Secret     string        `usage:"HS256 signing secret (CRAFT_JWT_SECRET)" flag:"jwt-secret"`
	AccessTTL  time.Duration `default:"15m"  usage:"Access token lifetime" flag:"access-ttl"`
	RefreshTTL time.Duration `default:"720h" usage:"Refresh token lifetime" flag:"refresh-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// ShippingFee returns the parsed flat shipping fee.
func (c *Config) ShippingFee() decimal.Decimal {
	return c.shippingFee
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CRAFT",
		Files:     []string{"config.yaml", "/etc/craft/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("database URL is required: set CRAFT_DATABASE_URL or DATABASE_URL")
		}
	case StorageJSONFile:
		if cfg.StorePath == "" {
			return nil, errors.New("store path is required for the jsonfile backend")
		}
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Storage)
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT secret is required: set CRAFT_JWT_SECRET")
	}

	fee, err := decimal.NewFromString(cfg.ShippingFeeRaw)
	if err != nil || fee.IsNegative() {
		return nil, errors.Errorf("invalid shipping fee %q", cfg.ShippingFeeRaw)
	}
	cfg.shippingFee = fee

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the CRAFT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
