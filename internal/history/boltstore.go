// internal/history/boltstore.go - BoltDB-backed notification archive
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"hostsentry/internal/alert"
)

var (
	NotificationsBucket = []byte("notifications")
	MetaBucket          = []byte("meta")
)

// Entry is one archived notification.
type Entry struct {
	ID        string     `json:"id"`
	Key       string     `json:"key"`
	Type      alert.Type `json:"type"`
	Message   string     `json:"message"`
	Recovery  bool       `json:"recovery"`
	Timestamp time.Time  `json:"timestamp"`
}

// Store archives every delivered notification so the web API can serve a
// browsable history independent of the active-alert ledger.
type Store struct {
	db   *bbolt.DB
	path string
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return store, nil
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{NotificationsBucket, MetaBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record archives a delivered notification. Failures are logged rather than
// propagated: the archive must never block alert delivery.
func (s *Store) Record(key string, typ alert.Type, message string, recovery bool, at time.Time) {
	entry := Entry{
		ID:        uuid.New().String(),
		Key:       key,
		Type:      typ,
		Message:   message,
		Recovery:  recovery,
		Timestamp: at,
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(NotificationsBucket)
		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		// Keys sort chronologically; the UUID suffix keeps same-nanosecond
		// entries distinct.
		storageKey := fmt.Sprintf("%020d_%s", at.UnixNano(), entry.ID)
		return b.Put([]byte(storageKey), data)
	})
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to archive notification")
	}
}

// Recent returns up to limit archived notifications, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []Entry

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(NotificationsBucket).Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				logrus.WithField("key", string(k)).Warn("Skipping corrupt history entry")
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Cleanup removes archived notifications older than retention.
func (s *Store) Cleanup(retention time.Duration) (int, error) {
	cutoff := fmt.Sprintf("%020d", time.Now().Add(-retention).UnixNano())
	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket(NotificationsBucket).Cursor()
		for k, _ := c.First(); k != nil && string(k) < cutoff; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("failed to clean up history: %w", err)
	}
	if deleted > 0 {
		logrus.WithField("deleted", deleted).Info("History cleanup completed")
	}
	return deleted, nil
}
