// Package verifier composes issuer and credential state into verification verdicts.
// It holds no state of its own and never mutates the ledger.
package verifier

import (
	"context"

	"golang.org/x/sync/errgroup"

	"credential-ledger/apperrors"
	"credential-ledger/credentials"
	"credential-ledger/ledger"
	"credential-ledger/models"
	"credential-ledger/registry"
)

const (
	DefaultBatchConcurrency = 8
	DefaultMaxBatchSize     = 500
)

type Verifier struct {
	ledger       *ledger.Ledger
	concurrency  int
	maxBatchSize int
	observers    []func(models.Verdict)
}

type Option func(*Verifier)

// WithBatchConcurrency bounds the goroutines used by VerifyBatch.
func WithBatchConcurrency(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithMaxBatchSize caps the number of ids VerifyBatch accepts.
func WithMaxBatchSize(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.maxBatchSize = n
		}
	}
}

// WithObserver registers fn to receive every verdict served.
func WithObserver(fn func(models.Verdict)) Option {
	return func(v *Verifier) {
		v.observers = append(v.observers, fn)
	}
}

func New(l *ledger.Ledger, opts ...Option) *Verifier {
	v := &Verifier{
		ledger:       l,
		concurrency:  DefaultBatchConcurrency,
		maxBatchSize: DefaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Evaluate computes the verdict for id against r. Missing credentials yield an all-false verdict.
// issuerAccredited reflects the issuer's accreditation now, not at mint time.
func Evaluate(r ledger.Reader, id uint64) (models.Verdict, error) {
	now := r.Now()
	verdict := models.Verdict{CredentialID: id, CheckedAt: now}

	cred, err := credentials.Load(r, id)
	if err != nil {
		return verdict, err
	}
	if cred == nil {
		return verdict, nil
	}
	accredited, err := registry.IsAccredited(r, cred.Issuer)
	if err != nil {
		return verdict, err
	}

	verdict.Exists = true
	verdict.IsRevoked = cred.IsRevoked
	verdict.IsExpired = cred.IsExpired(now)
	verdict.IsActive = cred.IsActive(now)
	verdict.IssuerAccredited = accredited
	verdict.IsValid = verdict.Exists && verdict.IsActive && !verdict.IsExpired && !verdict.IsRevoked && verdict.IssuerAccredited
	verdict.Issuer = cred.Issuer
	verdict.Holder = cred.Holder
	verdict.ExpiresAt = cred.ExpiresAt
	return verdict, nil
}

// Verify returns the full verdict for one credential id.
func (v *Verifier) Verify(id uint64) (models.Verdict, error) {
	var verdict models.Verdict
	err := v.ledger.View(func(r ledger.Reader) error {
		var err error
		verdict, err = Evaluate(r, id)
		return err
	})
	if err == nil {
		v.notify(verdict)
	}
	return verdict, err
}

// QuickValidate returns only the validity bit.
func (v *Verifier) QuickValidate(id uint64) (bool, error) {
	verdict, err := v.Verify(id)
	return verdict.IsValid, err
}

// VerifyOwnership reports whether the credential exists and is held by claimedHolder.
func (v *Verifier) VerifyOwnership(id uint64, claimedHolder models.Address) (bool, error) {
	var owned bool
	err := v.ledger.View(func(r ledger.Reader) error {
		cred, err := credentials.Load(r, id)
		if err != nil {
			return err
		}
		owned = cred != nil && cred.Holder == claimedHolder
		return nil
	})
	return owned, err
}

// VerifyBatch evaluates every id independently against one snapshot, preserving input order.
// An invalid or unknown id only affects its own verdict.
func (v *Verifier) VerifyBatch(ctx context.Context, ids []uint64) ([]models.Verdict, error) {
	if len(ids) > v.maxBatchSize {
		return nil, apperrors.ErrBatchTooLarge
	}
	verdicts := make([]models.Verdict, len(ids))
	err := v.ledger.View(func(r ledger.Reader) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(v.concurrency)
		for i, id := range ids {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				verdict, err := Evaluate(r, id)
				if err != nil {
					return err
				}
				verdicts[i] = verdict
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	v.notify(verdicts...)
	return verdicts, nil
}

func (v *Verifier) notify(verdicts ...models.Verdict) {
	for _, verdict := range verdicts {
		for _, fn := range v.observers {
			fn(verdict)
		}
	}
}
