// Package cache persists serialized resolved contexts in a bolt database,
// keyed by the requirement set that produced them, so an unchanged request
// can skip the solve entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/bpabel/rez/version"
)

var bucketName = []byte("contexts:v1")

// Cache is a bolt-backed store of serialized contexts. It is safe for
// concurrent use by multiple goroutines; bolt serializes writers
// internally.
type Cache struct {
	db *bolt.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening context cache %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, berr := tx.CreateBucketIfNotExists(bucketName)
		return berr
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing context cache")
	}
	return &Cache{db: db}, nil
}

// Key derives the cache key for a requirement set. The canonical
// requirement strings are sorted first, so textual reordering of the same
// request hits the same entry.
func Key(reqs []version.Requirement) []byte {
	canon := make([]string, len(reqs))
	for i, r := range reqs {
		canon[i] = r.String()
	}
	sort.Strings(canon)
	h := sha256.New()
	for _, s := range canon {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return []byte(hex.EncodeToString(sum))
}

// Get returns the cached context bytes for key, or nil when absent.
func (c *Cache) Get(key []byte) ([]byte, error) {
	var out []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get(key); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading context cache")
	}
	return out, nil
}

// Put stores the context bytes under key, replacing any prior entry.
func (c *Cache) Put(key, data []byte) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, data)
	})
	return errors.Wrap(err, "writing context cache")
}

// Close releases the database file.
func (c *Cache) Close() error {
	return c.db.Close()
}
