package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sod/frsod/internal/logging"
	bolt "go.etcd.io/bbolt"
)

type Config struct {
	FileName    string        `envconfig:"FRSOD_DB_FILE" default:"frsod.db"`
	OpenTimeout time.Duration `envconfig:"FRSOD_DB_OPEN_TIMEOUT" default:"1s"`
}

type DB struct {
	DB *bolt.DB
}

func NewFromEnv(ctx context.Context, config *Config) (*DB, error) {
	logger := logging.FromContext(ctx)
	logger.Infof("opening db %s", config.FileName)

	db, err := bolt.Open(config.FileName, 0600, &bolt.Options{Timeout: config.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("creating connection Db: %w", err)
	}

	return &DB{DB: db}, nil
}

func (db *DB) Close(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	logger.Infof("closing DB connection")

	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("error close Db connection: %w", err)
	}

	return nil
}
