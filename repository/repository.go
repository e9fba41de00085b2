package repository

import (
	"encoding/json"
	"errors"

	"credential-ledger/db"
	"credential-ledger/models"
)

// Entry is one key-value pair returned by Scan
type Entry struct {
	Key   string
	Value []byte
}

// It abstracts the storage layer from the ledger
type StateRepositoryInterface interface {
	Get(key string) ([]byte, bool, error)
	Scan(prefix string) ([]Entry, error)
	Commit(puts map[string][]byte) error
	GetLatestCheckpoint() (*models.Checkpoint, error)
}

// StateRepository implements the StateRepositoryInterface using LevelDB as the storage backend
type StateRepository struct {
	db *db.LevelDB
}

// NewStateRepository creates and returns a new StateRepository instance
func NewStateRepository(db *db.LevelDB) *StateRepository {
	return &StateRepository{db: db}
}

// Get retrieves the raw value stored under key; ok is false when the key is absent
func (r *StateRepository) Get(key string) ([]byte, bool, error) {
	data, err := r.db.Get([]byte(key))
	if errors.Is(err, db.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Scan returns all entries whose key starts with prefix, in key order
func (r *StateRepository) Scan(prefix string) ([]Entry, error) {
	iter := r.db.NewPrefixIterator([]byte(prefix))
	defer iter.Release()

	var entries []Entry
	for iter.Next() {
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		entries = append(entries, Entry{Key: string(iter.Key()), Value: value})
	}
	return entries, iter.Error()
}

// Commit writes all puts atomically; either every key is written or none is
func (r *StateRepository) Commit(puts map[string][]byte) error {
	if len(puts) == 0 {
		return nil
	}
	return r.db.Write(puts)
}

// Retrieves the ledger head checkpoint to resume the receipt chain after a restart
func (r *StateRepository) GetLatestCheckpoint() (*models.Checkpoint, error) {
	data, ok, err := r.Get(CheckpointKey)
	if err != nil || !ok {
		return nil, err
	}
	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
