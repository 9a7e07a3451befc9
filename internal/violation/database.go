package violation

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketName    = "violations"
	keyBucketName = "violation_keys"
)

// DB defines the interface for violation storage
type DB interface {
	// Save stores a violation, failing with ErrDuplicate when another
	// violation already has the same key
	Save(v *Violation) error

	// Get retrieves a violation by ID
	Get(id string) (*Violation, error)

	// Exists reports whether a violation with the given key is stored
	Exists(key string) (bool, error)

	// List returns all violations, newest first
	List() ([]*Violation, error)

	// Delete removes a violation and its key
	Delete(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(keyBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// Save stores a violation and claims its key in one transaction. Saving
// the same ID again overwrites the record.
func (b *BoltDB) Save(v *Violation) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		keys := tx.Bucket([]byte(keyBucketName))

		key := []byte(v.Key())
		if owner := keys.Get(key); owner != nil && string(owner) != v.ID {
			return fmt.Errorf("%w: %s (%d)", ErrDuplicate, v.Defendant, v.Year)
		}

		// release the old key when an update changed it
		if old := bucket.Get([]byte(v.ID)); old != nil {
			var prev Violation
			if err := json.Unmarshal(old, &prev); err != nil {
				return fmt.Errorf("unmarshaling violation: %w", err)
			}
			if prev.Key() != v.Key() {
				if err := keys.Delete([]byte(prev.Key())); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling violation: %w", err)
		}
		if err := bucket.Put([]byte(v.ID), data); err != nil {
			return err
		}
		return keys.Put(key, []byte(v.ID))
	})
}

// Get retrieves a violation by ID
func (b *BoltDB) Get(id string) (*Violation, error) {
	var v *Violation
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Exists reports whether key is claimed
func (b *BoltDB) Exists(key string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket([]byte(keyBucketName)).Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

// List returns all violations, newest first
func (b *BoltDB) List() ([]*Violation, error) {
	violations := make([]*Violation, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, data []byte) error {
			var v Violation
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("unmarshaling violation: %w", err)
			}
			violations = append(violations, &v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].CreatedAt.After(violations[j].CreatedAt)
	})
	return violations, nil
}

// Delete removes a violation and releases its key
func (b *BoltDB) Delete(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		var v Violation
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("unmarshaling violation: %w", err)
		}
		if err := tx.Bucket([]byte(keyBucketName)).Delete([]byte(v.Key())); err != nil {
			return err
		}
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
