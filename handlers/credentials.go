package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"credential-ledger/apperrors"
	"credential-ledger/credentials"
	"credential-ledger/logger"
	"credential-ledger/models"
)

type issueRequest struct {
	Holder      string                `json:"holder"`
	Type        models.CredentialType `json:"type"`
	MetadataRef string                `json:"metadata_ref"`
	ExpiresAt   int64                 `json:"expires_at"`
	Revocable   bool                  `json:"revocable"`
	ContentHash string                `json:"content_hash"`
}

type renewRequest struct {
	ExpiresAt int64 `json:"expires_at"`
}

// IssueCredential handles POST requests minting a credential from the caller
func (h *Handler) IssueCredential(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		writeError(w, "Missing caller", err, nil)
		return
	}
	var body issueRequest
	if err := decode(r, &body); err != nil {
		writeError(w, "Failed to decode credential", err, nil)
		return
	}
	req := credentials.IssueRequest{
		Holder:      models.Address(body.Holder),
		Type:        body.Type,
		MetadataRef: body.MetadataRef,
		ExpiresAt:   body.ExpiresAt,
		Revocable:   body.Revocable,
	}
	if holder, ok := models.ParseAddress(body.Holder); ok {
		req.Holder = holder
	}
	// An absent digest stays zero and is rejected by Issue after the accreditation check.
	if body.ContentHash != "" {
		hash, err := models.ParseHash(body.ContentHash)
		if err != nil {
			writeError(w, "Invalid content hash",
				apperrors.New(apperrors.KindValidation, codeInvalidPayload, err.Error()), nil)
			return
		}
		req.ContentHash = hash
	}

	id, receipt, err := h.Credentials.Issue(caller, req)
	if err == nil {
		logger.Logger.Info("Issued credential", zap.Uint64("id", id),
			zap.String("issuer", caller.String()), zap.String("holder", req.Holder.String()))
	}
	respond(w, "Failed to issue credential", receipt, err, http.StatusCreated, map[string]any{"id": id})
}

// GetCredential returns the stored credential record
func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) {
	id, err := uintVar(r, "id")
	if err != nil {
		writeError(w, "Invalid credential id", err, nil)
		return
	}
	cred, err := h.Credentials.Get(id)
	if err != nil {
		writeError(w, "Failed to get credential", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

// RevokeCredential handles POST requests revoking a credential; only its issuer may call it
func (h *Handler) RevokeCredential(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		writeError(w, "Missing caller", err, nil)
		return
	}
	id, err := uintVar(r, "id")
	if err != nil {
		writeError(w, "Invalid credential id", err, nil)
		return
	}
	var req reasonRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "Failed to decode revocation", err, nil)
		return
	}
	receipt, err := h.Credentials.Revoke(caller, id, req.Reason)
	if err == nil {
		logger.Logger.Info("Revoked credential", zap.Uint64("id", id), zap.String("reason", req.Reason))
	}
	respond(w, "Failed to revoke credential", receipt, err, http.StatusOK, nil)
}

// RenewCredential handles POST requests moving a credential's expiry
func (h *Handler) RenewCredential(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		writeError(w, "Missing caller", err, nil)
		return
	}
	id, err := uintVar(r, "id")
	if err != nil {
		writeError(w, "Invalid credential id", err, nil)
		return
	}
	var req renewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "Failed to decode renewal", err, nil)
		return
	}
	receipt, err := h.Credentials.Renew(caller, id, req.ExpiresAt)
	respond(w, "Failed to renew credential", receipt, err, http.StatusOK, nil)
}

func (h *Handler) CredentialsByHolder(w http.ResponseWriter, r *http.Request) {
	h.listIDs(w, r, h.Credentials.CredentialsByHolder)
}

func (h *Handler) CredentialsByIssuer(w http.ResponseWriter, r *http.Request) {
	h.listIDs(w, r, h.Credentials.CredentialsByIssuer)
}

func (h *Handler) listIDs(w http.ResponseWriter, r *http.Request, fn func(models.Address) ([]uint64, error)) {
	addr, err := addressVar(r, "address")
	if err != nil {
		writeError(w, "Invalid address", err, nil)
		return
	}
	ids, err := fn(addr)
	if err != nil {
		writeError(w, "Failed to list credentials", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr, "ids": ids})
}

// CredentialCount returns the number of credentials ever minted
func (h *Handler) CredentialCount(w http.ResponseWriter, r *http.Request) {
	total, err := h.Credentials.TotalCount()
	if err != nil {
		writeError(w, "Failed to count credentials", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"total": total})
}
