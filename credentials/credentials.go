package credentials

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"credential-ledger/apperrors"
	"credential-ledger/ledger"
	"credential-ledger/models"
	"credential-ledger/registry"
	"credential-ledger/repository"
)

// Operation names recorded on receipts.
const (
	OpIssue  = "credentials.issue"
	OpRevoke = "credentials.revoke"
	OpRenew  = "credentials.renew"
)

const idCounter = "credential"

// IssueRequest carries the caller-supplied fields of a new credential.
type IssueRequest struct {
	Holder      models.Address        `json:"holder"`
	Type        models.CredentialType `json:"type"`
	MetadataRef string                `json:"metadata_ref"`
	ExpiresAt   int64                 `json:"expires_at"`
	Revocable   bool                  `json:"revocable"`
	ContentHash models.Hash           `json:"content_hash"`
}

// Ledger mints, renews and revokes credentials. Only minting is gated on the
// issuer's current accreditation; revoke and renew only require that the caller
// is the credential's original issuer.
type Ledger struct {
	ledger *ledger.Ledger
}

func NewLedger(l *ledger.Ledger) *Ledger {
	return &Ledger{ledger: l}
}

// Issue mints a credential from caller to req.Holder and returns the new id.
func (c *Ledger) Issue(caller models.Address, req IssueRequest) (uint64, *models.Receipt, error) {
	var id uint64
	receipt, err := c.ledger.Submit(caller, OpIssue, func(tx *ledger.Tx) error {
		var err error
		id, err = issue(tx, req)
		return err
	})
	if err != nil {
		return 0, receipt, err
	}
	return id, receipt, nil
}

func issue(tx *ledger.Tx, req IssueRequest) (uint64, error) {
	issuer := tx.Caller()
	accredited, err := registry.IsAccredited(tx, issuer)
	if err != nil {
		return 0, err
	}
	if !accredited {
		return 0, apperrors.ErrIssuerNotAccredited
	}
	if !req.Holder.Valid() {
		return 0, apperrors.ErrInvalidHolder
	}
	if req.MetadataRef == "" {
		return 0, apperrors.ErrEmptyMetadata
	}
	if req.ContentHash.IsZero() {
		return 0, apperrors.ErrInvalidContentHash
	}
	if !req.Type.Valid() {
		return 0, apperrors.ErrInvalidCredentialType
	}
	if req.ExpiresAt != 0 && req.ExpiresAt <= tx.Now() {
		return 0, apperrors.ErrInvalidExpiration
	}

	id, err := tx.NextID(idCounter)
	if err != nil {
		return 0, err
	}
	cred := models.Credential{
		ID:          id,
		Issuer:      issuer,
		Holder:      req.Holder,
		Type:        req.Type,
		MetadataRef: req.MetadataRef,
		ContentHash: req.ContentHash,
		IssuedAt:    tx.Now(),
		ExpiresAt:   req.ExpiresAt,
		Revocable:   req.Revocable,
	}
	if err := tx.Put(repository.CredentialKey(id), cred); err != nil {
		return 0, err
	}
	if err := appendIndex(tx, repository.HolderIndexKey(req.Holder), id); err != nil {
		return 0, err
	}
	if err := appendIndex(tx, repository.IssuerIndexKey(issuer), id); err != nil {
		return 0, err
	}
	tx.Emit(models.EventCredentialIssued,
		"id", strconv.FormatUint(id, 10),
		"issuer", issuer.String(),
		"holder", req.Holder.String())
	return id, nil
}

// Revoke permanently invalidates a credential. Only its issuer may do so.
func (c *Ledger) Revoke(caller models.Address, id uint64, reason string) (*models.Receipt, error) {
	return c.ledger.Submit(caller, OpRevoke, func(tx *ledger.Tx) error {
		cred, err := loadOwned(tx, id)
		if err != nil {
			return err
		}
		if !cred.Revocable {
			return apperrors.ErrNotRevocable
		}
		if cred.IsRevoked {
			return apperrors.ErrAlreadyRevoked
		}
		cred.IsRevoked = true
		cred.RevocationReason = reason
		cred.RevokedAt = tx.Now()
		if err := tx.Put(repository.CredentialKey(id), cred); err != nil {
			return err
		}
		tx.Emit(models.EventCredentialRevoked, "id", strconv.FormatUint(id, 10), "reason", reason)
		return nil
	})
}

// Renew moves the expiry of a non-revoked credential. IssuedAt is unchanged.
func (c *Ledger) Renew(caller models.Address, id uint64, newExpiresAt int64) (*models.Receipt, error) {
	return c.ledger.Submit(caller, OpRenew, func(tx *ledger.Tx) error {
		cred, err := loadOwned(tx, id)
		if err != nil {
			return err
		}
		if newExpiresAt <= tx.Now() {
			return apperrors.ErrInvalidExpiration
		}
		if cred.IsRevoked {
			return apperrors.ErrCannotRenewRevoked
		}
		cred.ExpiresAt = newExpiresAt
		if err := tx.Put(repository.CredentialKey(id), cred); err != nil {
			return err
		}
		tx.Emit(models.EventCredentialRenewed,
			"id", strconv.FormatUint(id, 10),
			"expires_at", strconv.FormatInt(newExpiresAt, 10))
		return nil
	})
}

// loadOwned fetches a credential and checks the caller issued it.
func loadOwned(tx *ledger.Tx, id uint64) (*models.Credential, error) {
	cred, err := Load(tx, id)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, apperrors.ErrCredentialNotFound
	}
	if cred.Issuer != tx.Caller() {
		return nil, apperrors.ErrNotIssuer
	}
	return cred, nil
}

func appendIndex(tx *ledger.Tx, key string, id uint64) error {
	ids, err := loadIndex(tx, key)
	if err != nil {
		return err
	}
	return tx.Put(key, append(ids, id))
}

func loadIndex(r ledger.Reader, key string) ([]uint64, error) {
	ids := []uint64{}
	if _, err := r.Get(key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Load returns the credential with id, or nil if it does not exist.
func Load(r ledger.Reader, id uint64) (*models.Credential, error) {
	var cred models.Credential
	ok, err := r.Get(repository.CredentialKey(id), &cred)
	if err != nil || !ok {
		return nil, err
	}
	return &cred, nil
}

// Get returns the credential or ErrCredentialNotFound.
func (c *Ledger) Get(id uint64) (*models.Credential, error) {
	var cred *models.Credential
	err := c.ledger.View(func(r ledger.Reader) error {
		var err error
		cred, err = Load(r, id)
		if err == nil && cred == nil {
			err = apperrors.ErrCredentialNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// IsExpired reports expiresAt != 0 and now > expiresAt.
func (c *Ledger) IsExpired(id uint64) (bool, error) {
	var expired bool
	err := c.ledger.View(func(r ledger.Reader) error {
		cred, err := Load(r, id)
		if err != nil {
			return err
		}
		if cred == nil {
			return apperrors.ErrCredentialNotFound
		}
		expired = cred.IsExpired(r.Now())
		return nil
	})
	return expired, err
}

// CredentialsByHolder returns the ids held by holder in mint order.
func (c *Ledger) CredentialsByHolder(holder models.Address) ([]uint64, error) {
	return c.index(repository.HolderIndexKey(holder))
}

// CredentialsByIssuer returns the ids minted by issuer in mint order.
func (c *Ledger) CredentialsByIssuer(issuer models.Address) ([]uint64, error) {
	return c.index(repository.IssuerIndexKey(issuer))
}

func (c *Ledger) index(key string) ([]uint64, error) {
	var ids []uint64
	err := c.ledger.View(func(r ledger.Reader) error {
		var err error
		ids, err = loadIndex(r, key)
		return err
	})
	return ids, err
}

// TotalCount is the number of credentials ever minted.
func (c *Ledger) TotalCount() (uint64, error) {
	var total uint64
	err := c.ledger.View(func(r ledger.Reader) error {
		_, err := r.Get(repository.CounterKey(idCounter), &total)
		return err
	})
	return total, err
}

// CheckIndexes verifies that the holder and issuer indexes list exactly the
// credentials in the canonical set, in mint order.
func (c *Ledger) CheckIndexes() error {
	return c.ledger.View(func(r ledger.Reader) error {
		byHolder := make(map[models.Address][]uint64)
		byIssuer := make(map[models.Address][]uint64)
		err := r.Scan(repository.CredentialPrefix, func(key string, data []byte) error {
			var cred models.Credential
			if err := json.Unmarshal(data, &cred); err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "decode "+key)
			}
			byHolder[cred.Holder] = append(byHolder[cred.Holder], cred.ID)
			byIssuer[cred.Issuer] = append(byIssuer[cred.Issuer], cred.ID)
			return nil
		})
		if err != nil {
			return err
		}
		if err := compareIndex(r, repository.HolderIndexPrefix, byHolder); err != nil {
			return err
		}
		return compareIndex(r, repository.IssuerIndexPrefix, byIssuer)
	})
}

func compareIndex(r ledger.Reader, prefix string, want map[models.Address][]uint64) error {
	seen := 0
	err := r.Scan(prefix, func(key string, data []byte) error {
		var ids []uint64
		if err := json.Unmarshal(data, &ids); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "decode "+key)
		}
		expected := want[models.Address(strings.TrimPrefix(key, prefix))]
		if !slices.Equal(ids, expected) {
			return fmt.Errorf("index %s out of sync: have %v, want %v", key, ids, expected)
		}
		seen++
		return nil
	})
	if err != nil {
		return err
	}
	if seen != len(want) {
		return fmt.Errorf("index %s has %d entries, want %d", prefix, seen, len(want))
	}
	return nil
}
