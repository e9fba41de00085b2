package registry

import (
	"credential-ledger/apperrors"
	"credential-ledger/ledger"
	"credential-ledger/models"
)

// Operator submits registry mutations directly on behalf of the Authority holder.
// It backs the admin deployment mode; in DAO mode the Authority goes to governance instead.
type Operator struct {
	registry *Registry
	auth     Authority
}

func NewOperator(reg *Registry, auth Authority) *Operator {
	return &Operator{registry: reg, auth: auth}
}

func (o *Operator) submit(caller models.Address, op string, fn func(tx *ledger.Tx) error) (*models.Receipt, error) {
	return o.registry.ledger.Submit(caller, op, func(tx *ledger.Tx) error {
		if tx.Caller() != o.auth.holder {
			return apperrors.ErrUnauthorized
		}
		return fn(tx)
	})
}

func (o *Operator) Register(caller, issuer models.Address, name, metadataRef string) (*models.Receipt, error) {
	return o.submit(caller, OpRegister, func(tx *ledger.Tx) error {
		return o.registry.Register(tx, o.auth, issuer, name, metadataRef)
	})
}

func (o *Operator) Accredit(caller, issuer models.Address) (*models.Receipt, error) {
	return o.submit(caller, OpAccredit, func(tx *ledger.Tx) error {
		return o.registry.Accredit(tx, o.auth, issuer)
	})
}

func (o *Operator) Suspend(caller, issuer models.Address, reason string) (*models.Receipt, error) {
	return o.submit(caller, OpSuspend, func(tx *ledger.Tx) error {
		return o.registry.Suspend(tx, o.auth, issuer, reason)
	})
}

func (o *Operator) Reactivate(caller, issuer models.Address) (*models.Receipt, error) {
	return o.submit(caller, OpReactivate, func(tx *ledger.Tx) error {
		return o.registry.Reactivate(tx, o.auth, issuer)
	})
}

func (o *Operator) Revoke(caller, issuer models.Address, reason string) (*models.Receipt, error) {
	return o.submit(caller, OpRevoke, func(tx *ledger.Tx) error {
		return o.registry.Revoke(tx, o.auth, issuer, reason)
	})
}

// Apply submits an encoded action, the same shape governance executes.
func (o *Operator) Apply(caller models.Address, action models.Action) (*models.Receipt, error) {
	return o.submit(caller, OpFor(action.Kind), func(tx *ledger.Tx) error {
		return o.registry.Apply(tx, o.auth, action)
	})
}

// OpFor maps an action kind to its receipt operation name.
func OpFor(kind models.ActionKind) string {
	switch kind {
	case models.ActionRegisterIssuer:
		return OpRegister
	case models.ActionAccreditIssuer:
		return OpAccredit
	case models.ActionSuspendIssuer:
		return OpSuspend
	case models.ActionReactivateIssuer:
		return OpReactivate
	case models.ActionRevokeIssuer:
		return OpRevoke
	}
	return "registry.unknown"
}
