package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ModeDemo       = "demo"
	ModeProduction = "production"

	DriverMemory   = "memory"
	DriverLibSQL   = "libsql"
	DriverPostgres = "postgres"

	RewardSimulation = "simulation"
	RewardLive       = "live"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":3000"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	Mode     string     `env:"APP_MODE" envDefault:"demo"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../client/dist"`

	JWTSecret    string        `env:"JWT_SECRET" envDefault:"epic-vibe-demo-secret"`
	JWTTTL       time.Duration `env:"JWT_TTL" envDefault:"24h"`
	DemoPassword string        `env:"DEMO_PASSWORD" envDefault:"epicvibe"`

	CatalogDriver string `env:"CATALOG_DRIVER" envDefault:"memory"`
	DBPath        string `env:"DB_PATH" envDefault:"data/epicvibe.db"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SeedSamples   bool   `env:"SEED_SAMPLES" envDefault:"true"`

	RedisURL string `env:"REDIS_URL"`

	RewardMode   string        `env:"REWARD_MODE" envDefault:"simulation"`
	ChainRPCURL  string        `env:"CHAIN_RPC_URL" envDefault:"http://localhost:8899"`
	ChainTimeout time.Duration `env:"CHAIN_TIMEOUT" envDefault:"10s"`
	TokenMint    string        `env:"EPIC_TOKEN_MINT" envDefault:"EPiCXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"`
	RewardPool   string        `env:"REWARD_POOL_ADDRESS" envDefault:"RWD1XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"`
	LedgerDir    string        `env:"LEDGER_DIR"`

	GenerationDelay time.Duration `env:"GENERATION_DELAY" envDefault:"0s"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Production() bool { return c.Mode == ModeProduction }

func (c *Config) validate() error {
	switch c.Mode {
	case ModeDemo, ModeProduction:
	default:
		return fmt.Errorf("APP_MODE must be %s or %s, got %q", ModeDemo, ModeProduction, c.Mode)
	}

	switch c.CatalogDriver {
	case DriverMemory, DriverLibSQL:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when CATALOG_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown CATALOG_DRIVER %q", c.CatalogDriver)
	}

	switch c.RewardMode {
	case RewardSimulation:
	case RewardLive:
		if c.LedgerDir == "" {
			return errors.New("LEDGER_DIR is required when REWARD_MODE=live")
		}
	default:
		return fmt.Errorf("REWARD_MODE must be %s or %s, got %q", RewardSimulation, RewardLive, c.RewardMode)
	}
	return nil
}
