package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"
)

var errLockHeld = errors.New("lock held")

type badgerCache struct {
	db *badger.DB
}

// NewBadger opens an embedded cache at path. An empty path keeps everything
// in memory, which suits single-process deployments and tests.
func NewBadger(path string) (Cache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}
	log.Info("Opened embedded Badger cache", "path", path, "in_memory", path == "")
	return &badgerCache{db: db}, nil
}

func (c *badgerCache) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	return out, nil
}

func (c *badgerCache) Set(_ context.Context, key string, value []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (c *badgerCache) AcquireLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	err := c.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return errLockHeld
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(badger.NewEntry([]byte(key), []byte(token)).WithTTL(ttl))
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errLockHeld), errors.Is(err, badger.ErrConflict):
		return false, nil
	default:
		return false, fmt.Errorf("badger lock %s: %w", key, err)
	}
}

func (c *badgerCache) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	released := false
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		current, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(current) != token {
			return nil
		}
		released = true
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return false, fmt.Errorf("badger release %s: %w", key, err)
	}
	return released, nil
}

func (c *badgerCache) Close() error {
	return c.db.Close()
}
