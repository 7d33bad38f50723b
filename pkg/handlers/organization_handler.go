package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/auth"
	"github.com/heraerp/hera-engine/pkg/services"
)

// OrganizationHandler serves the organization endpoints.
type OrganizationHandler struct {
	service services.OrganizationService
	logger  *zap.Logger
}

// NewOrganizationHandler creates an OrganizationHandler.
func NewOrganizationHandler(service services.OrganizationService, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{service: service, logger: logger}
}

// RegisterRoutes registers organization routes on the given mux.
func (h *OrganizationHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/v1/organizations", authMiddleware.RequireActor(h.Create))
	mux.HandleFunc("GET /api/v1/organizations", authMiddleware.RequireActor(h.List))
	mux.HandleFunc("GET /api/v1/organizations/{oid}", authMiddleware.RequireActor(h.Get))
}

// Create handles POST /api/v1/organizations.
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.OrganizationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	org, err := h.service.Create(r.Context(), input)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, org)
}

// Get handles GET /api/v1/organizations/{oid}.
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	org, err := h.service.Get(r.Context(), orgID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, org)
}

// List handles GET /api/v1/organizations.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.service.List(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, orgs)
}
