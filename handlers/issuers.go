package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"credential-ledger/logger"
	"credential-ledger/models"
)

type registerIssuerRequest struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	MetadataRef string `json:"metadata_ref"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// ListIssuers returns every issuer known to the registry
func (h *Handler) ListIssuers(w http.ResponseWriter, r *http.Request) {
	issuers, err := h.Registry.List()
	if err != nil {
		writeError(w, "Failed to list issuers", err, nil)
		return
	}
	if issuers == nil {
		issuers = []*models.Issuer{}
	}
	writeJSON(w, http.StatusOK, issuers)
}

// GetIssuer returns one issuer record
func (h *Handler) GetIssuer(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r, "address")
	if err != nil {
		writeError(w, "Invalid issuer address", err, nil)
		return
	}
	issuer, err := h.Registry.Get(addr)
	if err != nil {
		writeError(w, "Failed to get issuer", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, issuer)
}

// IsAccredited answers whether an identity may currently mint credentials
func (h *Handler) IsAccredited(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r, "address")
	if err != nil {
		writeError(w, "Invalid issuer address", err, nil)
		return
	}
	ok, err := h.Registry.IsAccredited(addr)
	if err != nil {
		writeError(w, "Failed to check accreditation", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"issuer": addr, "accredited": ok})
}

// RegisterIssuer handles POST requests registering an issuer directly (admin mode)
func (h *Handler) RegisterIssuer(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		writeError(w, "Missing caller", err, nil)
		return
	}
	var req registerIssuerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "Failed to decode issuer", err, nil)
		return
	}
	issuer, ok := models.ParseAddress(req.Address)
	if !ok {
		issuer = models.Address(req.Address)
	}
	receipt, err := h.Operator.Register(caller, issuer, req.Name, req.MetadataRef)
	if err == nil {
		logger.Logger.Info("Registered issuer", zap.String("issuer", issuer.String()))
	}
	respond(w, "Failed to register issuer", receipt, err, http.StatusCreated, nil)
}

// AccreditIssuer handles POST requests accrediting a registered issuer (admin mode)
func (h *Handler) AccreditIssuer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accredit", func(caller, issuer models.Address, _ string) (*models.Receipt, error) {
		return h.Operator.Accredit(caller, issuer)
	})
}

func (h *Handler) SuspendIssuer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "suspend", h.Operator.Suspend)
}

func (h *Handler) ReactivateIssuer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reactivate", func(caller, issuer models.Address, _ string) (*models.Receipt, error) {
		return h.Operator.Reactivate(caller, issuer)
	})
}

func (h *Handler) RevokeIssuer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "revoke", h.Operator.Revoke)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, verb string,
	fn func(caller, issuer models.Address, reason string) (*models.Receipt, error)) {
	caller, err := callerOf(r)
	if err != nil {
		writeError(w, "Missing caller", err, nil)
		return
	}
	issuer, err := addressVar(r, "address")
	if err != nil {
		writeError(w, "Invalid issuer address", err, nil)
		return
	}
	var req reasonRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, "Failed to decode reason", err, nil)
			return
		}
	}
	receipt, err := fn(caller, issuer, req.Reason)
	if err == nil {
		logger.Logger.Info("Issuer status changed", zap.String("action", verb), zap.String("issuer", issuer.String()))
	}
	respond(w, "Failed to "+verb+" issuer", receipt, err, http.StatusOK, nil)
}
