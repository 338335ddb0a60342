// Package srvenv holds the dependencies built by setup for the server.
package srvenv

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-sod/frsod/internal/database"
	"github.com/go-sod/frsod/internal/model"
	"github.com/go-sod/frsod/internal/model/cache"
	"github.com/go-sod/frsod/internal/registry"
	"go.uber.org/zap"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	logger   *zap.SugaredLogger
	database *database.DB
	cache    *cache.Cache
	store    model.Store
	registry registry.ProvideFn
	metrics  http.Handler
}

func (s *SrvEnv) Logger() *zap.SugaredLogger {
	return s.logger
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func (s *SrvEnv) Store() model.Store {
	return s.store
}

func (s *SrvEnv) ProvideRegistry() registry.ProvideFn {
	return s.registry
}

// MetricsHandler is nil when metrics are not configured.
func (s *SrvEnv) MetricsHandler() http.Handler {
	return s.metrics
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.logger = l
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func WithCache(c *cache.Cache) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.cache = c
		return s
	}
}

func WithStore(store model.Store) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.store = store
		return s
	}
}

func WithRegistry(fn registry.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.registry = fn
		return s
	}
}

func WithMetrics(h http.Handler) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.metrics = h
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs []error
	if s.database != nil {
		if err := s.database.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error close redis connection: %w", err))
		}
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	return errors.Join(errs...)
}
