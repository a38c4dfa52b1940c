package docstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/taskledger/domain"
)

var stateKey = []byte("state")

// BoltStore keeps the ledger document as one JSON value inside a BoltDB file.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBolt initializes the BoltDB file and ensures the bucket exists.
func OpenBolt(path string, bucket string) (*BoltStore, error) {
	if bucket == "" {
		bucket = "ledger"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Load reads the stored document.
func (s *BoltStore) Load(ctx context.Context) (*Document, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(s.bucket).Get(stateKey); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decode(payload)
}

// Save replaces the stored document when doc.Version matches the stored version.
func (s *BoltStore) Save(ctx context.Context, doc *Document) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if doc == nil {
		return domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	next := *doc
	next.Version = doc.Version + 1
	payload, err := json.Marshal(&next)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		current, err := decode(b.Get(stateKey))
		if err != nil {
			return err
		}
		if current.Version != doc.Version {
			return domain.ErrVersionConflict
		}
		return b.Put(stateKey, payload)
	})
	if err != nil {
		return err
	}
	doc.Version = next.Version
	return nil
}

// Ping verifies the database file is readable.
func (s *BoltStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(s.bucket) == nil {
			return bolt.ErrBucketNotFound
		}
		return nil
	})
}

// Close closes the Bolt database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stats exposes Bolt statistics for monitoring endpoints.
func (s *BoltStore) Stats() bolt.Stats {
	if s == nil || s.db == nil {
		return bolt.Stats{}
	}
	return s.db.Stats()
}

var _ Backend = (*BoltStore)(nil)
