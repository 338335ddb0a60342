// Package setup processes the environment and builds the server's
// dependencies from whichever config providers the config implements.
package setup

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sod/frsod/internal/database"
	"github.com/go-sod/frsod/internal/logging"
	"github.com/go-sod/frsod/internal/metrics"
	"github.com/go-sod/frsod/internal/model"
	"github.com/go-sod/frsod/internal/model/cache"
	modeldb "github.com/go-sod/frsod/internal/model/database"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/internal/registry"
	"github.com/go-sod/frsod/internal/score"
	"github.com/go-sod/frsod/internal/srvenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreTypeBolt  string = "BOLT"
	StoreTypeRedis string = "REDIS"
)

type LoggingConfigProvider interface {
	LogLevel() string
	LogDevelopment() bool
}

type StoreConfigProvider interface {
	StoreType() string
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

type CacheConfigProvider interface {
	CacheConfig() *cache.Config
}

type PredictorConfigProvider interface {
	PredictConfig() *predictor.Config
}

type RegistryConfigProvider interface {
	RegistryConfig() *registry.Config
	SeedFile() string
}

type MetricsConfigProvider interface {
	MetricsConfig() *metrics.Config
}

type ScoreConfigProvider interface {
	ScoreConfig() *score.Config
}

// Setup builds the env for config. Connections opened before a failure
// are closed again.
func Setup(ctx context.Context, config interface{}) (_ *srvenv.SrvEnv, err error) {
	var serverEnvOpts []srvenv.Option
	defer func() {
		if err != nil {
			_ = srvenv.New(serverEnvOpts...).Close(ctx)
		}
	}()
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	if logProvider, ok := config.(LoggingConfigProvider); ok {
		l := logging.NewLogger(logProvider.LogLevel(), logProvider.LogDevelopment())
		ctx = logging.WithLogger(ctx, l)
		serverEnvOpts = append(serverEnvOpts, srvenv.WithLogger(l))
	}
	logger := logging.FromContext(ctx)

	if scoreProvider, ok := config.(ScoreConfigProvider); ok {
		if err := envconfig.Process("", scoreProvider.ScoreConfig()); err != nil {
			return nil, fmt.Errorf("dont process score env: %w", err)
		}
	}

	var store model.Store
	if storeProvider, ok := config.(StoreConfigProvider); ok {
		logger.Infof("Configuring %s store", storeProvider.StoreType())
		opts, s, err := ProvideStoreFor(ctx, storeProvider.StoreType(), config)
		if err != nil {
			return nil, err
		}
		store = s
		serverEnvOpts = append(serverEnvOpts, opts...)
		serverEnvOpts = append(serverEnvOpts, srvenv.WithStore(store))
	}

	if metricsProvider, ok := config.(MetricsConfigProvider); ok {
		logger.Info("Configuring metrics")
		cfg := metricsProvider.MetricsConfig()
		if err := envconfig.Process("", cfg); err != nil {
			return nil, fmt.Errorf("dont process metrics env: %w", err)
		}
		h, err := metrics.NewHandler(cfg)
		if err != nil {
			return nil, fmt.Errorf("unable to create metrics handler: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithMetrics(h))
	}

	if registryProvider, ok := config.(RegistryConfigProvider); ok {
		logger.Info("Configuring registry")
		if store == nil {
			return nil, fmt.Errorf("registry requires a model store")
		}
		predictorProvider, ok := config.(PredictorConfigProvider)
		if !ok {
			return nil, fmt.Errorf("unable read predictor config")
		}
		provideFn, err := ProvideRegistryFor(registryProvider, predictorProvider, store)
		if err != nil {
			return nil, fmt.Errorf("unable create registry provide function: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithRegistry(provideFn))
	}
	return srvenv.New(serverEnvOpts...), nil
}

// ProvideStoreFor opens the model store selected by storeType. The returned
// options hand the opened connection to the env so it gets closed.
func ProvideStoreFor(ctx context.Context, storeType string, config interface{}) ([]srvenv.Option, model.Store, error) {
	switch strings.ToUpper(storeType) {
	case StoreTypeBolt:
		dbProvider, ok := config.(DatabaseConfigProvider)
		if !ok {
			return nil, nil, fmt.Errorf("unable read db config")
		}
		cfg := dbProvider.DatabaseConfig()
		if err := envconfig.Process("", cfg); err != nil {
			return nil, nil, fmt.Errorf("dont process db env: %w", err)
		}
		db, err := database.NewFromEnv(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		return []srvenv.Option{srvenv.WithDatabase(db)}, modeldb.New(db), nil
	case StoreTypeRedis:
		cacheProvider, ok := config.(CacheConfigProvider)
		if !ok {
			return nil, nil, fmt.Errorf("unable read redis config")
		}
		cfg := cacheProvider.CacheConfig()
		if err := envconfig.Process("", cfg); err != nil {
			return nil, nil, fmt.Errorf("dont process redis env: %w", err)
		}
		c := cache.New(cache.NewClient(cfg))
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, nil, fmt.Errorf("unable to connect to redis: %w", err)
		}
		return []srvenv.Option{srvenv.WithCache(c)}, c, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type: %s", storeType)
	}
}

func ProvideRegistryFor(provider RegistryConfigProvider, predictorProvider PredictorConfigProvider, store model.Store) (registry.ProvideFn, error) {
	cfg := provider.RegistryConfig()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("dont process registry env: %w", err)
	}
	predictorCfg := predictorProvider.PredictConfig()
	if err := envconfig.Process("", predictorCfg); err != nil {
		return nil, fmt.Errorf("dont process predictor env: %w", err)
	}
	defaults, err := predictorCfg.Parse()
	if err != nil {
		return nil, fmt.Errorf("invalid predictor config: %w", err)
	}

	var seeds []*model.Spec
	if path := provider.SeedFile(); path != "" {
		if seeds, err = model.LoadSeed(path); err != nil {
			return nil, err
		}
	}

	return func() (registry.Manager, error) {
		m, err := registry.New(
			store,
			registry.WithDefaults(defaults),
			registry.WithWorkers(defaults.IndexWorkers),
			registry.WithLoadConcurrency(cfg.LoadConcurrency),
			registry.WithSeeds(seeds...),
		)
		if err != nil {
			return nil, err
		}
		return m, nil
	}, nil
}
