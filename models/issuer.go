package models

import "credential-ledger/apperrors"

// IssuerStatus is the accreditation state of an issuer. The states are mutually exclusive.
type IssuerStatus string

const (
	IssuerUnregistered IssuerStatus = "unregistered"
	IssuerRegistered   IssuerStatus = "registered"
	IssuerAccredited   IssuerStatus = "accredited"
	IssuerSuspended    IssuerStatus = "suspended"
	IssuerRevoked      IssuerStatus = "revoked"
)

type Issuer struct {
	Address      Address      `json:"address"`
	Name         string       `json:"name"`
	MetadataRef  string       `json:"metadata_ref"`
	Status       IssuerStatus `json:"status"`
	StatusReason string       `json:"status_reason,omitempty"`
	RegisteredAt int64        `json:"registered_at"`           // unix seconds
	AccreditedAt int64        `json:"accredited_at,omitempty"` // unix seconds
	SuspendedAt  int64        `json:"suspended_at,omitempty"`  // unix seconds
	RevokedAt    int64        `json:"revoked_at,omitempty"`    // unix seconds
}

// NewIssuer builds a Registered issuer.
func NewIssuer(addr Address, name, metadataRef string, now int64) (*Issuer, error) {
	if !addr.Valid() {
		return nil, apperrors.ErrInvalidIdentity
	}
	if name == "" {
		return nil, apperrors.ErrEmptyName
	}
	return &Issuer{
		Address:      addr,
		Name:         name,
		MetadataRef:  metadataRef,
		Status:       IssuerRegistered,
		RegisteredAt: now,
	}, nil
}

func (i *Issuer) IsAccredited() bool {
	return i != nil && i.Status == IssuerAccredited
}

// Accredit moves a Registered issuer to Accredited.
func (i *Issuer) Accredit(now int64) error {
	switch i.Status {
	case IssuerAccredited:
		return apperrors.ErrAlreadyAccredited
	case IssuerRegistered:
	default:
		return apperrors.ErrNotRegistered
	}
	i.Status = IssuerAccredited
	i.AccreditedAt = now
	return nil
}

// Suspend blocks minting while keeping the record intact.
func (i *Issuer) Suspend(reason string, now int64) error {
	if i.Status != IssuerAccredited {
		return apperrors.ErrNotAccredited
	}
	i.Status = IssuerSuspended
	i.StatusReason = reason
	i.SuspendedAt = now
	return nil
}

func (i *Issuer) Reactivate() error {
	if i.Status != IssuerSuspended {
		return apperrors.ErrNotSuspended
	}
	i.Status = IssuerAccredited
	i.StatusReason = ""
	i.SuspendedAt = 0
	return nil
}

// Revoke ends the accreditation episode. Already-minted credentials are untouched.
func (i *Issuer) Revoke(reason string, now int64) error {
	if i.Status != IssuerAccredited {
		return apperrors.ErrNotAccredited
	}
	i.Status = IssuerRevoked
	i.StatusReason = reason
	i.RevokedAt = now
	return nil
}
