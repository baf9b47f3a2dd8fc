// Package state persists the locally launched instance list. It is read
// once at the start of an operation and reconciled once at the end; no
// concurrent writers exist within one CLI invocation.
package state

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"

	"strato/fleet"
)

const keyPrefix = "instance:"

// Store is a badger-backed instance list keyed by instance id.
type Store struct {
	db *badger.DB
}

func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir))
	opts.Logger = nil
	opts = opts.WithValueLogFileSize(1 << 20)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func instanceKey(id string) []byte { return []byte(keyPrefix + id) }

// Load returns every recorded instance, sorted by region then id.
func (s *Store) Load() ([]fleet.InstanceRecord, error) {
	var records []fleet.InstanceRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var rec fleet.InstanceRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load instances: %w", err)
	}
	fleet.SortRecords(records)
	return records, nil
}

// Put records instances, overwriting existing entries with the same id.
func (s *Store) Put(records ...fleet.InstanceRecord) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := txn.Set(instanceKey(rec.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Save replaces the whole instance list. There is no partial-update API:
// callers load wholesale and save wholesale.
func (s *Store) Save(records []fleet.InstanceRecord) error {
	existing, err := s.Load()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, rec := range existing {
			if err := txn.Delete(instanceKey(rec.ID)); err != nil {
				return err
			}
		}
		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := txn.Set(instanceKey(rec.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove deletes records by id. Missing ids are not errors.
func (s *Store) Remove(ids []string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete(instanceKey(id)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
}
