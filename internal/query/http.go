package query

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"SynthLedger/internal/ledger"
	"SynthLedger/internal/observability"
	"SynthLedger/internal/oracle"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// HTTPHandler exposes the query service over HTTP/JSON.
type HTTPHandler struct {
	svc     *Service
	metrics *observability.Metrics
}

func NewHTTPHandler(svc *Service, metrics *observability.Metrics) *HTTPHandler {
	return &HTTPHandler{svc: svc, metrics: metrics}
}

// Register mounts the query routes on the router.
func (h *HTTPHandler) Register(r *mux.Router) {
	r.HandleFunc("/v1/params", h.instrument("params", h.handleParams)).Methods(http.MethodGet)
	r.HandleFunc("/v1/assets", h.instrument("assets", h.handleAssets)).Methods(http.MethodGet)
	r.HandleFunc("/v1/solvency", h.instrument("solvency", h.handleSolvency)).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{id}", h.instrument("account", h.handleAccount)).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{id}/health", h.instrument("account_health", h.handleAccountHealth)).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{id}/operations", h.instrument("account_operations", h.handleOperations)).Methods(http.MethodGet)
	r.HandleFunc("/v1/operations/{op_id}/journals", h.instrument("operation_journals", h.handleJournals)).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleParams(w http.ResponseWriter, r *http.Request) int {
	return h.writeJSON(w, http.StatusOK, h.svc.Params())
}

func (h *HTTPHandler) handleAssets(w http.ResponseWriter, r *http.Request) int {
	return h.writeJSON(w, http.StatusOK, map[string]interface{}{"assets": h.svc.Assets()})
}

func (h *HTTPHandler) handleSolvency(w http.ResponseWriter, r *http.Request) int {
	view, err := h.svc.Solvency(r.Context())
	if err != nil {
		return h.writeError(w, err)
	}
	return h.writeJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) handleAccount(w http.ResponseWriter, r *http.Request) int {
	user, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return h.writeJSON(w, http.StatusBadRequest, errorBody("invalid account id"))
	}

	summary, err := h.svc.Account(r.Context(), user)
	if err != nil {
		return h.writeError(w, err)
	}
	return h.writeJSON(w, http.StatusOK, summary)
}

func (h *HTTPHandler) handleAccountHealth(w http.ResponseWriter, r *http.Request) int {
	user, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return h.writeJSON(w, http.StatusBadRequest, errorBody("invalid account id"))
	}

	hf, err := h.svc.HealthFactor(r.Context(), user)
	if err != nil {
		return h.writeError(w, err)
	}
	return h.writeJSON(w, http.StatusOK, map[string]string{
		"account":       user.String(),
		"health_factor": hf.String(),
	})
}

func (h *HTTPHandler) handleOperations(w http.ResponseWriter, r *http.Request) int {
	user, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return h.writeJSON(w, http.StatusBadRequest, errorBody("invalid account id"))
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	beforeUs, _ := strconv.ParseInt(r.URL.Query().Get("before_us"), 10, 64)

	ops, err := h.svc.OperationHistory(r.Context(), user, limit, beforeUs)
	if err != nil {
		return h.writeError(w, err)
	}
	if ops == nil {
		ops = []OperationView{}
	}
	return h.writeJSON(w, http.StatusOK, map[string]interface{}{"operations": ops})
}

func (h *HTTPHandler) handleJournals(w http.ResponseWriter, r *http.Request) int {
	opID, err := uuid.Parse(mux.Vars(r)["op_id"])
	if err != nil {
		return h.writeJSON(w, http.StatusBadRequest, errorBody("invalid operation id"))
	}

	journals, err := h.svc.OperationJournals(r.Context(), opID)
	if err != nil {
		return h.writeError(w, err)
	}
	if journals == nil {
		journals = []JournalView{}
	}
	return h.writeJSON(w, http.StatusOK, map[string]interface{}{"journals": journals})
}

// instrument wraps a handler with request counting and latency metrics.
func (h *HTTPHandler) instrument(endpoint string, fn func(http.ResponseWriter, *http.Request) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := fn(w, r)
		if h.metrics != nil {
			h.metrics.QueryRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
			h.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
	}
}

// writeError maps service errors to HTTP statuses: stale or missing
// prices are a temporary upstream condition, not a client fault.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) int {
	switch {
	case errors.Is(err, oracle.ErrStalePrice), errors.Is(err, oracle.ErrNoQuote):
		return h.writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	case errors.Is(err, ledger.ErrAssetNotRegistered):
		return h.writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, ErrHistoryUnavailable):
		return h.writeJSON(w, http.StatusNotImplemented, errorBody(err.Error()))
	default:
		return h.writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
	return status
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
