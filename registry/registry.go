// Package registry tracks issuer identities and their accreditation status.
//
// Every mutation requires an Authority, the capability minted once by New.
// Whoever is handed the Authority (the governance DAO, or an Operator in
// direct admin mode) is the only party able to change accreditation.
package registry

import (
	"credential-ledger/apperrors"
	"credential-ledger/ledger"
	"credential-ledger/models"
	"credential-ledger/repository"
)

// Operation names recorded on receipts.
const (
	OpRegister   = "registry.register"
	OpAccredit   = "registry.accredit"
	OpSuspend    = "registry.suspend"
	OpReactivate = "registry.reactivate"
	OpRevoke     = "registry.revoke"
)

// Authority is the capability to perform privileged registry mutations.
// The zero value authorizes nothing.
type Authority struct {
	registry *Registry
	holder   models.Address
}

// Holder is the identity the authority was bound to.
func (a Authority) Holder() models.Address {
	return a.holder
}

type Registry struct {
	ledger *ledger.Ledger
}

// New creates the registry and its single Authority bound to holder.
func New(l *ledger.Ledger, holder models.Address) (*Registry, Authority) {
	r := &Registry{ledger: l}
	return r, Authority{registry: r, holder: holder}
}

func (r *Registry) authorize(auth Authority) error {
	if auth.registry != r {
		return apperrors.ErrUnauthorized
	}
	return nil
}

// Register records a new issuer in the Registered state.
func (r *Registry) Register(tx *ledger.Tx, auth Authority, issuer models.Address, name, metadataRef string) error {
	if err := r.authorize(auth); err != nil {
		return err
	}
	rec, err := models.NewIssuer(issuer, name, metadataRef, tx.Now())
	if err != nil {
		return err
	}
	existing, err := load(tx, issuer)
	if err != nil {
		return err
	}
	if existing.Status != models.IssuerUnregistered {
		return apperrors.ErrAlreadyRegistered
	}
	if err := tx.Put(repository.IssuerKey(issuer), rec); err != nil {
		return err
	}
	tx.Emit(models.EventIssuerRegistered, "issuer", issuer.String(), "name", name)
	return nil
}

// Accredit grants minting authority to a Registered issuer.
func (r *Registry) Accredit(tx *ledger.Tx, auth Authority, issuer models.Address) error {
	return r.transition(tx, auth, issuer, func(rec *models.Issuer) error {
		if err := rec.Accredit(tx.Now()); err != nil {
			return err
		}
		tx.Emit(models.EventIssuerAccredited, "issuer", issuer.String())
		return nil
	})
}

// Suspend blocks new minting by an Accredited issuer.
func (r *Registry) Suspend(tx *ledger.Tx, auth Authority, issuer models.Address, reason string) error {
	return r.transition(tx, auth, issuer, func(rec *models.Issuer) error {
		if err := rec.Suspend(reason, tx.Now()); err != nil {
			return err
		}
		tx.Emit(models.EventIssuerSuspended, "issuer", issuer.String(), "reason", reason)
		return nil
	})
}

func (r *Registry) Reactivate(tx *ledger.Tx, auth Authority, issuer models.Address) error {
	return r.transition(tx, auth, issuer, func(rec *models.Issuer) error {
		if err := rec.Reactivate(); err != nil {
			return err
		}
		tx.Emit(models.EventIssuerReactivated, "issuer", issuer.String())
		return nil
	})
}

// Revoke ends an issuer's accreditation. Credentials it already minted are left alone.
func (r *Registry) Revoke(tx *ledger.Tx, auth Authority, issuer models.Address, reason string) error {
	return r.transition(tx, auth, issuer, func(rec *models.Issuer) error {
		if err := rec.Revoke(reason, tx.Now()); err != nil {
			return err
		}
		tx.Emit(models.EventIssuerRevoked, "issuer", issuer.String(), "reason", reason)
		return nil
	})
}

// Apply dispatches a governance action to the matching mutation.
func (r *Registry) Apply(tx *ledger.Tx, auth Authority, action models.Action) error {
	if err := action.Validate(); err != nil {
		return err
	}
	switch action.Kind {
	case models.ActionRegisterIssuer:
		return r.Register(tx, auth, action.Issuer, action.Name, action.MetadataRef)
	case models.ActionAccreditIssuer:
		return r.Accredit(tx, auth, action.Issuer)
	case models.ActionSuspendIssuer:
		return r.Suspend(tx, auth, action.Issuer, action.Reason)
	case models.ActionReactivateIssuer:
		return r.Reactivate(tx, auth, action.Issuer)
	case models.ActionRevokeIssuer:
		return r.Revoke(tx, auth, action.Issuer, action.Reason)
	}
	return apperrors.ErrInvalidAction
}

func (r *Registry) transition(tx *ledger.Tx, auth Authority, issuer models.Address, fn func(*models.Issuer) error) error {
	if err := r.authorize(auth); err != nil {
		return err
	}
	if !issuer.Valid() {
		return apperrors.ErrInvalidIdentity
	}
	rec, err := load(tx, issuer)
	if err != nil {
		return err
	}
	if err := fn(rec); err != nil {
		return err
	}
	return tx.Put(repository.IssuerKey(issuer), rec)
}

// IsAccredited reads the issuer's current status from the view.
func (r *Registry) IsAccredited(issuer models.Address) (bool, error) {
	var accredited bool
	err := r.ledger.View(func(rd ledger.Reader) error {
		var err error
		accredited, err = IsAccredited(rd, issuer)
		return err
	})
	return accredited, err
}

// Get returns the issuer record or ErrIssuerNotFound.
func (r *Registry) Get(issuer models.Address) (*models.Issuer, error) {
	var rec *models.Issuer
	err := r.ledger.View(func(rd ledger.Reader) error {
		var err error
		rec, err = load(rd, issuer)
		if err == nil && rec.Status == models.IssuerUnregistered {
			err = apperrors.ErrIssuerNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns every known issuer in address order.
func (r *Registry) List() ([]*models.Issuer, error) {
	var out []*models.Issuer
	err := r.ledger.View(func(rd ledger.Reader) error {
		return scanIssuers(rd, func(rec *models.Issuer) {
			out = append(out, rec)
		})
	})
	return out, err
}
