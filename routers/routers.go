package routers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"credential-ledger/handlers"
	"credential-ledger/logger"
)

// RequestIDHeader is echoed back on every response
const RequestIDHeader = "X-Request-ID"

// RegisterRoutes sets up all the HTTP routes for the ledger.
// Governance routes exist only in dao mode and direct registry routes only in admin mode.
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {
	r.Use(requestLogger)

	r.HandleFunc("/health", h.Health).Methods("GET")

	// Receipt chain
	r.HandleFunc("/ledger/head", h.GetHead).Methods("GET")
	r.HandleFunc("/ledger/receipts/{seq:[0-9]+}", h.GetReceipt).Methods("GET")

	// Issuer registry reads
	r.HandleFunc("/issuers", h.ListIssuers).Methods("GET")
	r.HandleFunc("/issuers/{address}", h.GetIssuer).Methods("GET")
	r.HandleFunc("/issuers/{address}/accredited", h.IsAccredited).Methods("GET")
	r.HandleFunc("/issuers/{address}/credentials", h.CredentialsByIssuer).Methods("GET")

	// Credential lifecycle; the caller header names the issuer
	r.HandleFunc("/credentials", h.IssueCredential).Methods("POST")
	r.HandleFunc("/credentials/count", h.CredentialCount).Methods("GET")
	r.HandleFunc("/credentials/{id:[0-9]+}", h.GetCredential).Methods("GET")
	r.HandleFunc("/credentials/{id:[0-9]+}/revoke", h.RevokeCredential).Methods("POST")
	r.HandleFunc("/credentials/{id:[0-9]+}/renew", h.RenewCredential).Methods("POST")
	r.HandleFunc("/holders/{address}/credentials", h.CredentialsByHolder).Methods("GET")

	// Verification, safe for unauthenticated callers
	r.HandleFunc("/verify/batch", h.VerifyBatch).Methods("POST")
	r.HandleFunc("/verify/{id:[0-9]+}", h.Verify).Methods("GET")
	r.HandleFunc("/verify/{id:[0-9]+}/quick", h.QuickValidate).Methods("GET")
	r.HandleFunc("/verify/{id:[0-9]+}/ownership", h.VerifyOwnership).Methods("GET")

	if h.Operator != nil {
		r.HandleFunc("/admin/issuers", h.RegisterIssuer).Methods("POST")
		r.HandleFunc("/admin/issuers/{address}/accredit", h.AccreditIssuer).Methods("POST")
		r.HandleFunc("/admin/issuers/{address}/suspend", h.SuspendIssuer).Methods("POST")
		r.HandleFunc("/admin/issuers/{address}/reactivate", h.ReactivateIssuer).Methods("POST")
		r.HandleFunc("/admin/issuers/{address}/revoke", h.RevokeIssuer).Methods("POST")
	}

	if h.DAO != nil {
		r.HandleFunc("/governance", h.GovernanceInfo).Methods("GET")
		r.HandleFunc("/governance/power/{address}", h.VotingPower).Methods("GET")
		r.HandleFunc("/governance/timelock", h.GetTimelockEntry).Methods("GET")
		r.HandleFunc("/governance/proposals", h.Propose).Methods("POST")
		r.HandleFunc("/governance/proposals", h.ListProposals).Methods("GET")
		r.HandleFunc("/governance/proposals/{id:[0-9]+}", h.GetProposal).Methods("GET")
		r.HandleFunc("/governance/proposals/{id:[0-9]+}/votes", h.CastVote).Methods("POST")
		r.HandleFunc("/governance/proposals/{id:[0-9]+}/votes", h.ListVotes).Methods("GET")
		r.HandleFunc("/governance/proposals/{id:[0-9]+}/tally", h.Tally).Methods("POST")
		r.HandleFunc("/governance/proposals/{id:[0-9]+}/queue", h.Queue).Methods("POST")
		r.HandleFunc("/governance/proposals/{id:[0-9]+}/execute", h.Execute).Methods("POST")
		r.HandleFunc("/governance/proposals/{id:[0-9]+}/cancel", h.Cancel).Methods("POST")
	}
}

// RegisterMetrics exposes the collectors of g in Prometheus text format
func RegisterMetrics(r *mux.Router, g prometheus.Gatherer) {
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods("GET")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with an id and logs its outcome
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.Logger.Info("HTTP request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
