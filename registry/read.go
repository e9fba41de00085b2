package registry

import (
	"encoding/json"

	"credential-ledger/apperrors"
	"credential-ledger/ledger"
	"credential-ledger/models"
	"credential-ledger/repository"
)

// load returns the stored issuer, or an Unregistered placeholder when none exists.
func load(r ledger.Reader, issuer models.Address) (*models.Issuer, error) {
	var rec models.Issuer
	ok, err := r.Get(repository.IssuerKey(issuer), &rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &models.Issuer{Address: issuer, Status: models.IssuerUnregistered}, nil
	}
	return &rec, nil
}

// IsAccredited is true iff the issuer's status is Accredited. Suspended issuers read as not accredited.
func IsAccredited(r ledger.Reader, issuer models.Address) (bool, error) {
	if !issuer.Valid() {
		return false, nil
	}
	rec, err := load(r, issuer)
	if err != nil {
		return false, err
	}
	return rec.IsAccredited(), nil
}

func scanIssuers(r ledger.Reader, fn func(*models.Issuer)) error {
	return r.Scan(repository.IssuerPrefix, func(key string, data []byte) error {
		var rec models.Issuer
		if err := json.Unmarshal(data, &rec); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "decode "+key)
		}
		fn(&rec)
		return nil
	})
}
