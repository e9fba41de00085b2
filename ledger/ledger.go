package ledger

import (
	"encoding/binary"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"credential-ledger/apperrors"
	"credential-ledger/logger"
	"credential-ledger/models"
	"credential-ledger/repository"
)

// Ledger executes submitted operations one at a time in a single total order.
// Each operation either commits all of its writes together with its receipt or
// commits nothing but a failure receipt. Read views run in parallel with each
// other and never observe a partially applied operation.
type Ledger struct {
	repo      repository.StateRepositoryInterface
	clock     Clock
	mux       sync.RWMutex
	seq       uint64
	head      models.Hash
	observers []func(*models.Receipt)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithObserver registers a callback invoked with every receipt after it is persisted.
func WithObserver(fn func(*models.Receipt)) Option {
	return func(l *Ledger) {
		l.observers = append(l.observers, fn)
	}
}

// NewLedger resumes from the stored head checkpoint, if any.
func NewLedger(repo repository.StateRepositoryInterface, clock Clock, opts ...Option) (*Ledger, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	l := &Ledger{repo: repo, clock: clock}
	for _, opt := range opts {
		opt(l)
	}
	cp, err := repo.GetLatestCheckpoint()
	if err != nil {
		return nil, err
	}
	if cp != nil {
		l.seq = cp.Seq
		l.head = cp.Head
	}
	return l, nil
}

// Submit runs fn as one atomic operation attributed to caller and returns its receipt.
// The returned error is the operation's own failure; the receipt records it either way.
func (l *Ledger) Submit(caller models.Address, op string, fn func(tx *Tx) error) (*models.Receipt, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	now := l.clock.Now().Unix()
	tx := newTx(l.repo, caller, now)

	var opErr error
	if !caller.Valid() {
		opErr = apperrors.ErrInvalidIdentity
	} else {
		opErr = fn(tx)
	}

	receipt := &models.Receipt{
		Seq:       l.seq + 1,
		Op:        op,
		Caller:    caller,
		Timestamp: now,
		Success:   opErr == nil,
		Parent:    l.head,
	}
	puts := tx.pending
	if opErr != nil {
		receipt.Error = opErr.Error()
		receipt.ErrorCode = string(apperrors.CodeOf(opErr))
		puts = make(map[string][]byte)
	} else {
		receipt.Events = tx.events
	}
	receipt.Hash = hashReceipt(receipt)

	if err := l.stageReceipt(puts, receipt); err != nil {
		return nil, err
	}
	if err := l.repo.Commit(puts); err != nil {
		logger.Logger.Error("Failed to commit operation",
			zap.String("op", op), zap.String("caller", caller.String()), zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "commit "+op)
	}
	l.seq = receipt.Seq
	l.head = receipt.Hash

	if opErr != nil {
		logger.Logger.Warn("Operation rejected",
			zap.Uint64("seq", receipt.Seq), zap.String("op", op),
			zap.String("caller", caller.String()), zap.Error(opErr))
	} else {
		logger.Logger.Info("Operation committed",
			zap.Uint64("seq", receipt.Seq), zap.String("op", op),
			zap.String("caller", caller.String()), zap.Int("events", len(receipt.Events)))
	}
	for _, obs := range l.observers {
		obs(receipt)
	}
	return receipt, opErr
}

func (l *Ledger) stageReceipt(puts map[string][]byte, receipt *models.Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "encode receipt")
	}
	puts[repository.ReceiptKey(receipt.Seq)] = data

	cp, err := json.Marshal(models.Checkpoint{Seq: receipt.Seq, Head: receipt.Hash, Timestamp: receipt.Timestamp})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "encode checkpoint")
	}
	puts[repository.CheckpointKey] = cp
	return nil
}

// View runs fn against a consistent snapshot of committed state.
func (l *Ledger) View(fn func(r Reader) error) error {
	l.mux.RLock()
	defer l.mux.RUnlock()
	return fn(&view{repo: l.repo, now: l.clock.Now().Unix()})
}

// Receipt returns the receipt with the given sequence number.
func (l *Ledger) Receipt(seq uint64) (*models.Receipt, error) {
	var receipt models.Receipt
	err := l.View(func(r Reader) error {
		ok, err := r.Get(repository.ReceiptKey(seq), &receipt)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrReceiptNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Head returns the latest checkpoint.
func (l *Ledger) Head() models.Checkpoint {
	l.mux.RLock()
	defer l.mux.RUnlock()
	return models.Checkpoint{Seq: l.seq, Head: l.head}
}

// hashReceipt chains the receipt to its parent: keccak256(parent || seq || body).
func hashReceipt(r *models.Receipt) models.Hash {
	body := *r
	body.Hash = models.Hash{}
	data, _ := json.Marshal(body)

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], r.Seq)

	h := sha3.NewLegacyKeccak256()
	h.Write(r.Parent[:])
	h.Write(seq[:])
	h.Write(data)

	var out models.Hash
	copy(out[:], h.Sum(nil))
	return out
}
