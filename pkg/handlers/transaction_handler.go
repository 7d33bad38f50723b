package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/auth"
	"github.com/heraerp/hera-engine/pkg/models"
	"github.com/heraerp/hera-engine/pkg/services"
)

// TransactionHandler serves the transaction engine endpoints.
type TransactionHandler struct {
	service services.TransactionService
	logger  *zap.Logger
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(service services.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, logger: logger}
}

// RegisterRoutes registers transaction routes on the given mux.
func (h *TransactionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/v1/organizations/{oid}/transactions"
	mux.HandleFunc("POST "+base, authMiddleware.RequireActor(h.Create))
	mux.HandleFunc("GET "+base, authMiddleware.RequireActor(h.List))
	mux.HandleFunc("GET "+base+"/{tid}", authMiddleware.RequireActor(h.Get))
	mux.HandleFunc("POST "+base+"/{tid}/post", authMiddleware.RequireActor(h.Post))
	mux.HandleFunc("POST "+base+"/{tid}/void", authMiddleware.RequireActor(h.Void))
}

// Create handles POST /api/v1/organizations/{oid}/transactions.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	actorID, err := auth.RequireActorID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	var input services.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	tx, err := h.service.Create(r.Context(), orgID, actorID, input)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, tx)
}

// Get handles GET /api/v1/organizations/{oid}/transactions/{tid}.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	txID, err := pathUUID(r, "tid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	tx, err := h.service.Get(r.Context(), orgID, txID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, tx)
}

// List handles GET /api/v1/organizations/{oid}/transactions with optional
// transaction_type, status and date range filters (RFC 3339).
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	q := r.URL.Query()
	filter := models.TransactionFilter{
		TransactionType: q.Get("transaction_type"),
		Status:          q.Get("status"),
	}
	if raw := q.Get("date_from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid date_from")
			return
		}
		filter.DateFrom = ts
	}
	if raw := q.Get("date_to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid date_to")
			return
		}
		filter.DateTo = ts
	}

	txs, err := h.service.List(r.Context(), orgID, filter)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, txs)
}

// Post handles POST /api/v1/organizations/{oid}/transactions/{tid}/post,
// deriving balanced ledger lines and moving the transaction to posted.
func (h *TransactionHandler) Post(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	txID, err := pathUUID(r, "tid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	tx, err := h.service.PostToLedger(r.Context(), orgID, txID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, tx)
}

type voidRequest struct {
	Reason string `json:"reason"`
}

// Void handles POST /api/v1/organizations/{oid}/transactions/{tid}/void,
// returning the reversing transaction.
func (h *TransactionHandler) Void(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	txID, err := pathUUID(r, "tid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	actorID, err := auth.RequireActorID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	var req voidRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	reversal, err := h.service.Void(r.Context(), orgID, actorID, txID, req.Reason)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, reversal)
}
