// Package store persists per-nickname user records in a bolt database.
package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/boltdb/bolt"
)

var usersBucket = []byte("users")

// UserRecord is the stored shape for one nickname. Messages holds the last
// N messages in arrival order, oldest first.
type UserRecord struct {
	Name        string    `json:"name"`
	LastSeen    time.Time `json:"lastseen"`
	LastMessage string    `json:"lastmessage"`
	Messages    []string  `json:"messages"`
}

// Users is a durable user store keyed by nickname (case-sensitive as
// received). Records are never deleted.
type Users struct {
	db      *bolt.DB
	logSize int
}

// Open opens (or creates) the database at path. logSize bounds the
// per-user message log.
func Open(path string, logSize int) (*Users, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open user database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(usersBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create users bucket: %w", err)
	}
	return &Users{db: db, logSize: logSize}, nil
}

// Close closes the underlying database.
func (u *Users) Close() error {
	return u.db.Close()
}

// Upsert records a message from name, creating the record on first sight
// and evicting the oldest log entry once the log is at capacity.
func (u *Users) Upsert(name, message string, when time.Time) error {
	return u.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(usersBucket)

		rec := UserRecord{Name: name}
		if raw := b.Get([]byte(name)); raw != nil {
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("corrupt record for %q: %w", name, err)
			}
		}

		rec.LastSeen = when
		rec.LastMessage = message
		rec.Messages = append(rec.Messages, message)
		if len(rec.Messages) > u.logSize {
			rec.Messages = rec.Messages[len(rec.Messages)-u.logSize:]
		}

		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(name), raw)
	})
}

// Get returns the record for the exact nickname, or nil if unseen.
func (u *Users) Get(name string) (*UserRecord, error) {
	var rec *UserRecord
	err := u.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(usersBucket).Get([]byte(name))
		if raw == nil {
			return nil
		}
		rec = &UserRecord{}
		return json.Unmarshal(raw, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Lookup returns the record whose name matches case-insensitively.
// An exact match wins over a folded one.
func (u *Users) Lookup(name string) (*UserRecord, error) {
	if rec, err := u.Get(name); err != nil || rec != nil {
		return rec, err
	}
	var rec *UserRecord
	err := u.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(usersBucket).ForEach(func(k, v []byte) error {
			if rec == nil && strings.EqualFold(string(k), name) {
				rec = &UserRecord{}
				return json.Unmarshal(v, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
