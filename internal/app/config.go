package app

import (
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/order"
)

const defaultAddr = "0.0.0.0:3001"

// Config holds the complete application configuration, loadable from
// environment variables (POS_ prefix), flags, a .env file or YAML config
// files.
type Config struct {
	Addr        string        `default:"0.0.0.0:3001" usage:"API server listen address"`
	DatabaseURL string        `usage:"PostgreSQL connection URL (POS_DATABASE_URL, DATABASE_URL or DB_*)" flag:"database-url"`
	StockPolicy string        `default:"advisory" usage:"Behaviour on insufficient stock: advisory or strict" flag:"stock-policy"`
	TxTimeout   time.Duration `default:"10s" usage:"Upper bound for one order transaction" flag:"tx-timeout"`
	DB          DBConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// DBConfig tunes the connection pool.
type DBConfig struct {
	MaxConns        int32         `default:"10" usage:"Maximum pool connections"`
	MaxConnIdleTime time.Duration `default:"5m" usage:"Idle connection lifetime"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"300" usage:"Max requests per window, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"http://localhost:3000" usage:"Allowed frontend origins (FRONTEND_URL)"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads .env, then configuration files, environment variables
// and flags, and applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(false)
}

func loadConfig(skipFlags bool) (*Config, error) {
	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "POS",
		SkipFlags: skipFlags,
		Files:     []string{"config.yaml", "/etc/pos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set POS_DATABASE_URL, DATABASE_URL or DB_HOST/DB_NAME")
	}
	if _, err := order.ParseStockPolicy(c.StockPolicy); err != nil {
		return errors.Wrap(err, "stock policy")
	}
	if c.RateLimit.Max > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps the variable names used by hosting platforms
// and by existing deployments onto the POS_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = databaseURLFromParts()
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = net.JoinHostPort("0.0.0.0", port)
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.Origins = origins
	}
}

// databaseURLFromParts builds a connection URL from DB_USER, DB_PASSWORD,
// DB_HOST, DB_PORT, DB_NAME and DB_SSL. It returns "" without DB_HOST.
func databaseURLFromParts() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + os.Getenv("DB_NAME"),
	}
	if user := os.Getenv("DB_USER"); user != "" {
		if pass, ok := os.LookupEnv("DB_PASSWORD"); ok {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}

	sslmode := "disable"
	if os.Getenv("DB_SSL") == "true" {
		// Encrypted, without certificate verification.
		sslmode = "require"
	}
	u.RawQuery = url.Values{"sslmode": {sslmode}}.Encode()
	return u.String()
}
