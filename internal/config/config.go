package frsod

import (
	"github.com/go-sod/frsod/internal/database"
	"github.com/go-sod/frsod/internal/metrics"
	"github.com/go-sod/frsod/internal/model/cache"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/internal/registry"
	"github.com/go-sod/frsod/internal/score"
	"github.com/go-sod/frsod/internal/setup"
)

var (
	_ setup.LoggingConfigProvider   = (*Config)(nil)
	_ setup.StoreConfigProvider     = (*Config)(nil)
	_ setup.DatabaseConfigProvider  = (*Config)(nil)
	_ setup.CacheConfigProvider     = (*Config)(nil)
	_ setup.PredictorConfigProvider = (*Config)(nil)
	_ setup.RegistryConfigProvider  = (*Config)(nil)
	_ setup.MetricsConfigProvider   = (*Config)(nil)
	_ setup.ScoreConfigProvider     = (*Config)(nil)
)

type Config struct {
	SrvAddr   string `envconfig:"FRSOD_ADDR" default:":8787"`
	GRPCAddr  string `envconfig:"FRSOD_GRPC_ADDR" default:":8788"`
	MaxConns  int    `envconfig:"FRSOD_MAX_CONNS" default:"0"`
	Store     string `envconfig:"FRSOD_STORE_TYPE" default:"BOLT"`
	Seed      string `envconfig:"FRSOD_SEED_FILE"`
	Level     string `envconfig:"FRSOD_LOG_LEVEL" default:"info"`
	Dev       bool   `envconfig:"FRSOD_LOG_DEV" default:"false"`
	Score     score.Config
	Database  database.Config
	Cache     cache.Config
	Predictor predictor.Config
	Registry  registry.Config
	Metrics   metrics.Config
}

func (c *Config) LogLevel() string {
	return c.Level
}

func (c *Config) LogDevelopment() bool {
	return c.Dev
}

func (c *Config) StoreType() string {
	return c.Store
}

func (c *Config) SeedFile() string {
	return c.Seed
}

func (c *Config) ScoreConfig() *score.Config {
	return &c.Score
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c *Config) CacheConfig() *cache.Config {
	return &c.Cache
}

func (c *Config) PredictConfig() *predictor.Config {
	return &c.Predictor
}

func (c *Config) RegistryConfig() *registry.Config {
	return &c.Registry
}

func (c *Config) MetricsConfig() *metrics.Config {
	return &c.Metrics
}
