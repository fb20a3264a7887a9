package feed

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var checkpointBucket = []byte("walk_checkpoint")

// BoltJournal persists walk checkpoints in a bolt database, one key namespace
// per account. It implements Journal.
type BoltJournal struct {
	db      *bolt.DB
	account string
}

// OpenBoltJournal opens (creating if necessary) the checkpoint database at
// dbPath, scoped to the given account.
func OpenBoltJournal(dbPath, account string) (*BoltJournal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create directory for checkpoint db: %w", err)
	}
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(checkpointBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint bucket: %w", err)
	}
	return &BoltJournal{db: db, account: account}, nil
}

func (j *BoltJournal) cursorKey() []byte {
	return []byte("cursor:" + j.account)
}

func (j *BoltJournal) seenPrefix() []byte {
	return []byte("seen:" + j.account + ":")
}

// Load returns the saved cursor and seen ids for the account; ok is false when
// no checkpoint has been written.
func (j *BoltJournal) Load() (int64, []string, bool, error) {
	var (
		cursor int64
		seen   []string
		ok     bool
	)
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(checkpointBucket)
		raw := b.Get(j.cursorKey())
		if raw == nil {
			return nil
		}
		if len(raw) != 8 {
			return fmt.Errorf("corrupt cursor checkpoint for %s", j.account)
		}
		cursor = int64(binary.BigEndian.Uint64(raw))
		ok = true

		prefix := j.seenPrefix()
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			seen = append(seen, string(k[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return 0, nil, false, err
	}
	return cursor, seen, ok, nil
}

// Save records the current cursor and marks newly seen ids.
func (j *BoltJournal) Save(cursor int64, newIDs []string) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(checkpointBucket)
		raw := make([]byte, 8)
		binary.BigEndian.PutUint64(raw, uint64(cursor))
		if err := b.Put(j.cursorKey(), raw); err != nil {
			return err
		}
		prefix := j.seenPrefix()
		for _, id := range newIDs {
			key := append(append([]byte{}, prefix...), id...)
			if err := b.Put(key, []byte{1}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear drops the account's checkpoint after a completed walk.
func (j *BoltJournal) Clear() error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(checkpointBucket)
		if err := b.Delete(j.cursorKey()); err != nil {
			return err
		}
		prefix := j.seenPrefix()
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *BoltJournal) Close() error {
	return j.db.Close()
}
