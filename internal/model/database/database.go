package database

import (
	"context"
	"fmt"

	"github.com/go-sod/frsod/internal/database"
	"github.com/go-sod/frsod/internal/model"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var _ model.Store = (*DB)(nil)

const bucket = "models"

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

// DB stores XDR-encoded specs in a single bucket keyed by model id.
type DB struct {
	sDB *database.DB
}

func (db *DB) Keys() ([]uuid.UUID, error) {
	var keys []uuid.UUID
	err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			id, err := uuid.FromBytes(k)
			if err != nil {
				return fmt.Errorf("malformed key %x: %w", k, err)
			}
			keys = append(keys, id)
			return nil
		})
	})

	return keys, err
}

func (db *DB) Store(_ context.Context, spec *model.Spec) error {
	bytes, err := model.Encode(spec)
	if err != nil {
		return err
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		if err := b.Put(spec.ID[:], bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) Find(_ context.Context, id uuid.UUID) (*model.Spec, error) {
	var spec *model.Spec
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return model.ErrNotFound
		}
		v := b.Get(id[:])
		if v == nil {
			return model.ErrNotFound
		}
		s, err := model.Decode(v)
		if err != nil {
			return err
		}
		spec = s
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return spec, nil
}

func (db *DB) FindAll(_ context.Context, filter model.FilterFn) ([]*model.Spec, error) {
	var specs []*model.Spec
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			s, err := model.Decode(v)
			if err != nil {
				return fmt.Errorf("model %x: %w", k, err)
			}
			if filter == nil || filter(s) {
				specs = append(specs, s)
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return specs, nil
}

func (db *DB) Delete(_ context.Context, id uuid.UUID) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil || b.Get(id[:]) == nil {
			return model.ErrNotFound
		}
		return b.Delete(id[:])
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) Count() (int, error) {
	var n int
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(bucket)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %w", err)
	}

	return n, nil
}
