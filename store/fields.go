// Package store provides the persistence backends: a
// Badger-backed traveltime field store, a directory-based
// snapshot writer and a CSV data source.
package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/seismon/vorotomo/tomo"
)

// FieldStore persists gob-encoded traveltime fields in a
// Badger database. Field implementations must be registered
// with the gob package; the rays package registers its own.
type FieldStore struct {
	db *badger.DB
}

// OpenFieldStore opens or creates the field database at
// dir.
func OpenFieldStore(dir string) (*FieldStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open field store: %w", err)
	}
	return &FieldStore{db: db}, nil
}

// Close releases the database.
func (s *FieldStore) Close() error {
	return s.db.Close()
}

// Put stores a field, replacing any previous field under
// the same key.
func (s *FieldStore) Put(key tomo.FieldKey, field tomo.Field) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&field); err != nil {
		return fmt.Errorf("encode field %s: %w", key, err)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key.String()), buf.Bytes())
	})
	if err != nil {
		return fmt.Errorf("store field %s: %w", key, err)
	}
	return nil
}

// Get loads a field. A missing key reports
// tomo.ErrFieldNotFound.
func (s *FieldStore) Get(key tomo.FieldKey) (tomo.Field, error) {
	var field tomo.Field
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&field)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("%w: %s", tomo.ErrFieldNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load field %s: %w", key, err)
	}
	return field, nil
}

// MemFieldStore is an in-memory FieldStore for runs that do
// not need fields to survive the process. It is safe for
// concurrent use by the worker goroutines.
type MemFieldStore struct {
	mu     sync.RWMutex
	fields map[tomo.FieldKey]tomo.Field
}

// NewMemFieldStore returns an empty in-memory store.
func NewMemFieldStore() *MemFieldStore {
	return &MemFieldStore{fields: map[tomo.FieldKey]tomo.Field{}}
}

// Put stores a field.
func (s *MemFieldStore) Put(key tomo.FieldKey, field tomo.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields[key] = field
	return nil
}

// Get loads a field. A missing key reports
// tomo.ErrFieldNotFound.
func (s *MemFieldStore) Get(key tomo.FieldKey) (tomo.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	field, ok := s.fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tomo.ErrFieldNotFound, key)
	}
	return field, nil
}
