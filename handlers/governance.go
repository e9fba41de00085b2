package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"credential-ledger/apperrors"
	"credential-ledger/logger"
	"credential-ledger/models"
)

type proposeRequest struct {
	Description string        `json:"description"`
	Action      models.Action `json:"action"`
}

type voteRequest struct {
	Support bool `json:"support"`
}

// Propose opens a governance proposal carrying a registry action
func (h *Handler) Propose(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		writeError(w, "Missing caller", err, nil)
		return
	}
	var req proposeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "Failed to decode proposal", err, nil)
		return
	}
	if addr, ok := models.ParseAddress(string(req.Action.Issuer)); ok {
		req.Action.Issuer = addr
	}
	id, receipt, err := h.DAO.Propose(caller, req.Description, req.Action)
	if err == nil {
		logger.Logger.Info("Proposal created", zap.Uint64("id", id),
			zap.String("proposer", caller.String()), zap.String("action", string(req.Action.Kind)))
	}
	respond(w, "Failed to create proposal", receipt, err, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.DAO.Proposals()
	if err != nil {
		writeError(w, "Failed to list proposals", err, nil)
		return
	}
	if proposals == nil {
		proposals = []models.ProposalView{}
	}
	writeJSON(w, http.StatusOK, proposals)
}

func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := uintVar(r, "id")
	if err != nil {
		writeError(w, "Invalid proposal id", err, nil)
		return
	}
	p, err := h.DAO.Proposal(id)
	if err != nil {
		writeError(w, "Failed to get proposal", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CastVote records the caller's ballot weighted by its voting power
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		writeError(w, "Missing caller", err, nil)
		return
	}
	id, err := uintVar(r, "id")
	if err != nil {
		writeError(w, "Invalid proposal id", err, nil)
		return
	}
	var req voteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "Failed to decode vote", err, nil)
		return
	}
	receipt, err := h.DAO.CastVote(caller, id, req.Support)
	respond(w, "Failed to cast vote", receipt, err, http.StatusOK, nil)
}

func (h *Handler) ListVotes(w http.ResponseWriter, r *http.Request) {
	id, err := uintVar(r, "id")
	if err != nil {
		writeError(w, "Invalid proposal id", err, nil)
		return
	}
	votes, err := h.DAO.Votes(id)
	if err != nil {
		writeError(w, "Failed to list votes", err, nil)
		return
	}
	if votes == nil {
		votes = []models.Vote{}
	}
	writeJSON(w, http.StatusOK, votes)
}

func (h *Handler) Tally(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "tally", func(caller models.Address, id uint64) (map[string]any, *models.Receipt, error) {
		outcome, receipt, err := h.DAO.Tally(caller, id)
		return map[string]any{"state": outcome}, receipt, err
	})
}

func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "queue", func(caller models.Address, id uint64) (map[string]any, *models.Receipt, error) {
		eta, receipt, err := h.DAO.Queue(caller, id)
		return map[string]any{"eta": eta}, receipt, err
	})
}

func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "execute", func(caller models.Address, id uint64) (map[string]any, *models.Receipt, error) {
		receipt, err := h.DAO.Execute(caller, id)
		return nil, receipt, err
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "cancel", func(caller models.Address, id uint64) (map[string]any, *models.Receipt, error) {
		receipt, err := h.DAO.Cancel(caller, id)
		return nil, receipt, err
	})
}

// trigger runs a lifecycle step that anyone (or the proposer, for cancel) may submit
func (h *Handler) trigger(w http.ResponseWriter, r *http.Request, step string,
	fn func(caller models.Address, id uint64) (map[string]any, *models.Receipt, error)) {
	caller, err := callerOf(r)
	if err != nil {
		writeError(w, "Missing caller", err, nil)
		return
	}
	id, err := uintVar(r, "id")
	if err != nil {
		writeError(w, "Invalid proposal id", err, nil)
		return
	}
	body, receipt, err := fn(caller, id)
	if err == nil {
		logger.Logger.Info("Proposal advanced", zap.String("step", step), zap.Uint64("id", id))
	}
	respond(w, "Failed to "+step+" proposal", receipt, err, http.StatusOK, body)
}

func (h *Handler) VotingPower(w http.ResponseWriter, r *http.Request) {
	addr, err := addressVar(r, "address")
	if err != nil {
		writeError(w, "Invalid address", err, nil)
		return
	}
	power, err := h.DAO.VotingPower(addr)
	if err != nil {
		writeError(w, "Failed to get voting power", err, nil)
		return
	}
	total, err := h.DAO.TotalVotingPower()
	if err != nil {
		writeError(w, "Failed to get voting power", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr, "power": power, "total": total})
}

// GovernanceInfo describes the DAO identity, its parameters and the current quorum
func (h *Handler) GovernanceInfo(w http.ResponseWriter, r *http.Request) {
	quorum, err := h.DAO.Quorum()
	if err != nil {
		writeError(w, "Failed to compute quorum", err, nil)
		return
	}
	p := h.DAO.Params()
	writeJSON(w, http.StatusOK, map[string]any{
		"address":            h.DAO.Address(),
		"quorum":             quorum,
		"quorum_percent":     p.QuorumPercent,
		"proposal_threshold": p.ProposalThreshold,
		"voting_delay":       p.VotingDelay.String(),
		"voting_period":      p.VotingPeriod.String(),
		"min_delay":          p.MinDelay.String(),
		"grace_period":       p.GracePeriod.String(),
	})
}

func (h *Handler) GetTimelockEntry(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("operation")
	opID, err := models.ParseHash(raw)
	if err != nil {
		writeError(w, "Invalid operation id",
			apperrors.New(apperrors.KindValidation, codeInvalidPayload, err.Error()), nil)
		return
	}
	entry, err := h.DAO.TimelockEntry(opID)
	if err != nil {
		writeError(w, "Failed to get timelock entry", err, nil)
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "operation is not scheduled"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
