package apperrors

import "errors"

// Kind groups error codes by how a caller should react to them.
type Kind string

const (
	// KindAuthorization: caller lacks the right to perform the operation.
	KindAuthorization Kind = "authorization"
	// KindConflict: the intended transition is already satisfied or impossible from the current state.
	KindConflict Kind = "conflict"
	// KindTemporal: depends on the current time and may become satisfiable later.
	KindTemporal Kind = "temporal"
	// KindValidation: malformed caller input.
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Code is a stable machine-readable error identifier.
type Code string

const (
	CodeInternal Code = "internal_error"
)

// Error is a typed domain error. Errors compare equal under errors.Is when their codes match.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a domain error.
func New(kind Kind, code Code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Wrap creates a domain error around err.
// If err already carries a domain error, its kind and code are preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Kind: existing.Kind, Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Kind: KindInternal, Code: code, Message: msg, Err: err}
}

// KindOf returns the kind of the first domain error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first domain error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Authorization errors
var (
	ErrUnauthorized              = New(KindAuthorization, "unauthorized", "caller is not authorized for this operation")
	ErrIssuerNotAccredited       = New(KindAuthorization, "issuer_not_accredited", "issuer is not accredited")
	ErrNotIssuer                 = New(KindAuthorization, "not_issuer", "caller is not the credential issuer")
	ErrInsufficientProposerPower = New(KindAuthorization, "insufficient_proposer_power", "proposer voting power below threshold")
	ErrNoVotingPower             = New(KindAuthorization, "no_voting_power", "caller has no voting power")
)

// State-conflict errors
var (
	ErrAlreadyRegistered    = New(KindConflict, "already_registered", "issuer is already registered")
	ErrNotRegistered        = New(KindConflict, "not_registered", "issuer is not in registered state")
	ErrAlreadyAccredited    = New(KindConflict, "already_accredited", "issuer is already accredited")
	ErrNotAccredited        = New(KindConflict, "not_accredited", "issuer is not in accredited state")
	ErrNotSuspended         = New(KindConflict, "not_suspended", "issuer is not suspended")
	ErrAlreadyRevoked       = New(KindConflict, "already_revoked", "already revoked")
	ErrNotRevocable         = New(KindConflict, "not_revocable", "credential is not revocable")
	ErrCannotRenewRevoked   = New(KindConflict, "cannot_renew_revoked", "revoked credential cannot be renewed")
	ErrAlreadyVoted         = New(KindConflict, "already_voted", "caller has already voted on this proposal")
	ErrAlreadyTallied       = New(KindConflict, "already_tallied", "proposal has already been tallied")
	ErrAlreadyQueued        = New(KindConflict, "already_queued", "action is already queued in the timelock")
	ErrProposalNotSucceeded = New(KindConflict, "proposal_not_succeeded", "proposal has not succeeded")
	ErrProposalNotQueued    = New(KindConflict, "proposal_not_queued", "proposal is not queued")
	ErrProposalFinalized    = New(KindConflict, "proposal_finalized", "proposal is already executed or canceled")
	ErrGenesisApplied       = New(KindConflict, "genesis_applied", "voting power genesis already applied")
)

// Temporal errors
var (
	ErrInvalidExpiration = New(KindTemporal, "invalid_expiration", "expiration must be zero or in the future")
	ErrProposalNotActive = New(KindTemporal, "proposal_not_active", "proposal is not open for voting")
	ErrVotingNotEnded    = New(KindTemporal, "voting_not_ended", "voting period has not ended")
	ErrTimelockNotDue    = New(KindTemporal, "timelock_not_due", "timelock delay has not elapsed")
	ErrProposalExpired   = New(KindTemporal, "proposal_expired", "queued proposal passed its grace period")
)

// Input-validation errors
var (
	ErrInvalidIdentity       = New(KindValidation, "invalid_identity", "identity is not a valid address")
	ErrInvalidHolder         = New(KindValidation, "invalid_holder", "holder is not a valid address")
	ErrEmptyName             = New(KindValidation, "empty_name", "name must not be empty")
	ErrEmptyMetadata         = New(KindValidation, "empty_metadata", "metadata reference must not be empty")
	ErrInvalidContentHash    = New(KindValidation, "invalid_content_hash", "content hash must be a non-zero 32-byte digest")
	ErrInvalidCredentialType = New(KindValidation, "invalid_credential_type", "credential type is not a known category")
	ErrVotingPowerOverflow   = New(KindValidation, "voting_power_overflow", "total voting power overflows")
	ErrInvalidAction         = New(KindValidation, "invalid_action", "governance action is malformed")
	ErrBatchTooLarge         = New(KindValidation, "batch_too_large", "too many ids in batch")
)

// Not-found errors
var (
	ErrCredentialNotFound = New(KindNotFound, "credential_not_found", "credential does not exist")
	ErrIssuerNotFound     = New(KindNotFound, "issuer_not_found", "issuer does not exist")
	ErrProposalNotFound   = New(KindNotFound, "proposal_not_found", "proposal does not exist")
	ErrReceiptNotFound    = New(KindNotFound, "receipt_not_found", "receipt does not exist")
)
