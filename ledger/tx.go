package ledger

import (
	"encoding/json"
	"sort"
	"strings"

	"credential-ledger/apperrors"
	"credential-ledger/models"
	"credential-ledger/repository"
)

// Reader is the read-only view of ledger state shared by Tx and snapshot views.
type Reader interface {
	// Now is the ledger timestamp in unix seconds.
	Now() int64
	// Get decodes the JSON value under key into v; ok is false when absent.
	Get(key string, v any) (ok bool, err error)
	// Scan calls fn for every key with prefix, in key order.
	Scan(prefix string, fn func(key string, data []byte) error) error
}

// view reads straight from the repository with a fixed timestamp.
type view struct {
	repo repository.StateRepositoryInterface
	now  int64
}

func (v *view) Now() int64 {
	return v.now
}

func (v *view) Get(key string, out any) (bool, error) {
	data, ok, err := v.repo.Get(key)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeInternal, "read "+key)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeInternal, "decode "+key)
	}
	return true, nil
}

func (v *view) Scan(prefix string, fn func(string, []byte) error) error {
	entries, err := v.repo.Scan(prefix)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "scan "+prefix)
	}
	for _, e := range entries {
		if err := fn(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Tx is the execution context of one submitted operation. Writes are staged and only
// reach storage if the operation returns nil; reads see the staged writes.
type Tx struct {
	view
	caller  models.Address
	pending map[string][]byte
	events  []models.Event
}

func newTx(repo repository.StateRepositoryInterface, caller models.Address, now int64) *Tx {
	return &Tx{
		view:    view{repo: repo, now: now},
		caller:  caller,
		pending: make(map[string][]byte),
	}
}

// Caller is the authenticated identity the operation is attributed to.
func (tx *Tx) Caller() models.Address {
	return tx.caller
}

func (tx *Tx) Get(key string, out any) (bool, error) {
	if data, ok := tx.pending[key]; ok {
		if err := json.Unmarshal(data, out); err != nil {
			return false, apperrors.Wrap(err, apperrors.CodeInternal, "decode "+key)
		}
		return true, nil
	}
	return tx.view.Get(key, out)
}

func (tx *Tx) Scan(prefix string, fn func(string, []byte) error) error {
	merged := make(map[string][]byte)
	if err := tx.view.Scan(prefix, func(k string, data []byte) error {
		merged[k] = data
		return nil
	}); err != nil {
		return err
	}
	for k, data := range tx.pending {
		if strings.HasPrefix(k, prefix) {
			merged[k] = data
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k, merged[k]); err != nil {
			return err
		}
	}
	return nil
}

// Put stages v under key.
func (tx *Tx) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "encode "+key)
	}
	tx.pending[key] = data
	return nil
}

// NextID increments the named counter and returns the new value. The first id is 1.
func (tx *Tx) NextID(counter string) (uint64, error) {
	var current uint64
	if _, err := tx.Get(repository.CounterKey(counter), &current); err != nil {
		return 0, err
	}
	current++
	if err := tx.Put(repository.CounterKey(counter), current); err != nil {
		return 0, err
	}
	return current, nil
}

// Emit records a structured event on the operation's receipt.
// Key/value pairs are given flat: Emit(t, "id", "1", "holder", h).
func (tx *Tx) Emit(eventType models.EventType, kv ...string) {
	evt := models.Event{Type: eventType}
	if len(kv) > 0 {
		evt.Attributes = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			evt.Attributes[kv[i]] = kv[i+1]
		}
	}
	tx.events = append(tx.events, evt)
}
