// Package cache stores model specs in redis so several service replicas can
// share one model catalogue.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/go-sod/frsod/internal/model"
	"github.com/google/uuid"
)

var _ model.Store = (*Cache)(nil)

const (
	keyPrefix = "frsod:model:"
	keySet    = "frsod:models"
)

type Config struct {
	Addr     string `envconfig:"FRSOD_REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"FRSOD_REDIS_PASSWORD"`
	DB       int    `envconfig:"FRSOD_REDIS_DB" default:"0"`
}

func NewClient(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func New(client redis.UniversalClient) *Cache {
	return &Cache{client: client}
}

type Cache struct {
	client redis.UniversalClient
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Store(ctx context.Context, spec *model.Spec) error {
	b, err := model.Encode(spec)
	if err != nil {
		return err
	}
	if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key(spec.ID), b, 0)
		pipe.SAdd(ctx, keySet, spec.ID.String())
		return nil
	}); err != nil {
		return fmt.Errorf("unable to store model %s: %w", spec.ID, err)
	}
	return nil
}

func (c *Cache) Find(ctx context.Context, id uuid.UUID) (*model.Spec, error) {
	b, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to fetch model %s: %w", id, err)
	}
	return model.Decode(b)
}

func (c *Cache) FindAll(ctx context.Context, filter model.FilterFn) ([]*model.Spec, error) {
	ids, err := c.client.SMembers(ctx, keySet).Result()
	if err != nil {
		return nil, fmt.Errorf("unable to list models: %w", err)
	}
	var specs []*model.Spec
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("malformed model id %q: %w", raw, err)
		}
		s, err := c.Find(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter == nil || filter(s) {
			specs = append(specs, s)
		}
	}
	return specs, nil
}

func (c *Cache) Delete(ctx context.Context, id uuid.UUID) error {
	var del *redis.IntCmd
	if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, key(id))
		pipe.SRem(ctx, keySet, id.String())
		return nil
	}); err != nil {
		return fmt.Errorf("unable to delete model %s: %w", id, err)
	}
	if del.Val() == 0 {
		return model.ErrNotFound
	}
	return nil
}
