package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"credential-ledger/apperrors"
	"credential-ledger/credentials"
	"credential-ledger/governance"
	"credential-ledger/ledger"
	"credential-ledger/logger"
	"credential-ledger/models"
	"credential-ledger/registry"
	"credential-ledger/verifier"
)

// CallerHeader carries the identity the request is attributed to.
// Authentication happens upstream; the handlers only authorize.
const CallerHeader = "X-Caller-Address"

// Handler contains the HTTP handlers for the ledger API endpoints.
// DAO is set in dao mode and Operator in admin mode; the other stays nil.
type Handler struct {
	Ledger      *ledger.Ledger
	Registry    *registry.Registry
	Credentials *credentials.Ledger
	Verifier    *verifier.Verifier
	DAO         *governance.DAO
	Operator    *registry.Operator
}

// NewHandler creates and returns a new Handler instance
func NewHandler(l *ledger.Ledger, reg *registry.Registry, creds *credentials.Ledger, v *verifier.Verifier) *Handler {
	return &Handler{Ledger: l, Registry: reg, Credentials: creds, Verifier: v}
}

const codeInvalidPayload apperrors.Code = "invalid_payload"

func statusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindTemporal:
		return http.StatusUnprocessableEntity
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps a domain error to its status. A failure receipt, when present, is returned alongside.
func writeError(w http.ResponseWriter, msg string, err error, receipt *models.Receipt) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Logger.Error(msg, zap.Error(err))
	} else {
		logger.Logger.Debug(msg, zap.Error(err))
	}
	body := map[string]any{
		"error": err.Error(),
		"code":  apperrors.CodeOf(err),
	}
	if receipt != nil {
		body["receipt"] = receipt
	}
	writeJSON(w, status, body)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.New(apperrors.KindValidation, codeInvalidPayload, "Invalid request payload: "+err.Error())
	}
	return nil
}

func callerOf(r *http.Request) (models.Address, error) {
	addr, ok := models.ParseAddress(r.Header.Get(CallerHeader))
	if !ok {
		return "", apperrors.ErrInvalidIdentity
	}
	return addr, nil
}

func addressVar(r *http.Request, name string) (models.Address, error) {
	addr, ok := models.ParseAddress(mux.Vars(r)[name])
	if !ok {
		return "", apperrors.ErrInvalidIdentity
	}
	return addr, nil
}

func uintVar(r *http.Request, name string) (uint64, error) {
	n, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, apperrors.New(apperrors.KindValidation, codeInvalidPayload, "invalid "+name)
	}
	return n, nil
}

// Health reports liveness together with the ledger head.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"head":   h.Ledger.Head(),
	})
}

// GetHead returns the latest checkpoint of the receipt chain
func (h *Handler) GetHead(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Ledger.Head())
}

// GetReceipt returns the receipt recorded at a sequence number
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	seq, err := uintVar(r, "seq")
	if err != nil {
		writeError(w, "Invalid receipt sequence", err, nil)
		return
	}
	receipt, err := h.Ledger.Receipt(seq)
	if err != nil {
		writeError(w, "Failed to get receipt", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// respond writes the outcome of a submitted operation
func respond(w http.ResponseWriter, msg string, receipt *models.Receipt, err error, status int, body map[string]any) {
	if err != nil {
		writeError(w, msg, err, receipt)
		return
	}
	if body == nil {
		body = make(map[string]any)
	}
	body["receipt"] = receipt
	writeJSON(w, status, body)
}
