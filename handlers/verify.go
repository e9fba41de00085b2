package handlers

import (
	"net/http"

	"credential-ledger/apperrors"
	"credential-ledger/models"
)

type batchRequest struct {
	IDs []uint64 `json:"ids"`
}

// Verify returns the full verdict. Unknown ids yield exists=false, never an error status.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := uintVar(r, "id")
	if err != nil {
		writeError(w, "Invalid credential id", err, nil)
		return
	}
	verdict, err := h.Verifier.Verify(id)
	if err != nil {
		writeError(w, "Failed to verify credential", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (h *Handler) QuickValidate(w http.ResponseWriter, r *http.Request) {
	id, err := uintVar(r, "id")
	if err != nil {
		writeError(w, "Invalid credential id", err, nil)
		return
	}
	valid, err := h.Verifier.QuickValidate(id)
	if err != nil {
		writeError(w, "Failed to validate credential", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credential_id": id, "is_valid": valid})
}

// VerifyOwnership checks the credential against the holder query parameter
func (h *Handler) VerifyOwnership(w http.ResponseWriter, r *http.Request) {
	id, err := uintVar(r, "id")
	if err != nil {
		writeError(w, "Invalid credential id", err, nil)
		return
	}
	holder, ok := models.ParseAddress(r.URL.Query().Get("holder"))
	if !ok {
		writeError(w, "Invalid holder", apperrors.ErrInvalidHolder, nil)
		return
	}
	owned, err := h.Verifier.VerifyOwnership(id, holder)
	if err != nil {
		writeError(w, "Failed to verify ownership", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credential_id": id, "holder": holder, "owned": owned})
}

// VerifyBatch evaluates every id independently; verdicts keep request order
func (h *Handler) VerifyBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "Failed to decode batch", err, nil)
		return
	}
	verdicts, err := h.Verifier.VerifyBatch(r.Context(), req.IDs)
	if err != nil {
		writeError(w, "Failed to verify batch", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"verdicts": verdicts})
}
