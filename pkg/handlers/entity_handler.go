package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/auth"
	"github.com/heraerp/hera-engine/pkg/models"
	"github.com/heraerp/hera-engine/pkg/services"
)

// EntityHandler serves the entity engine endpoints.
type EntityHandler struct {
	service services.EntityService
	logger  *zap.Logger
}

// NewEntityHandler creates an EntityHandler.
func NewEntityHandler(service services.EntityService, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{service: service, logger: logger}
}

// RegisterRoutes registers entity routes on the given mux.
func (h *EntityHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/v1/organizations/{oid}/entities"
	mux.HandleFunc("POST "+base, authMiddleware.RequireActor(h.Upsert))
	mux.HandleFunc("GET "+base, authMiddleware.RequireActor(h.List))
	mux.HandleFunc("GET "+base+"/{eid}", authMiddleware.RequireActor(h.Get))
	mux.HandleFunc("DELETE "+base+"/{eid}", authMiddleware.RequireActor(h.Delete))
}

// Upsert handles POST /api/v1/organizations/{oid}/entities. The payload's id
// decides between insert and update.
func (h *EntityHandler) Upsert(w http.ResponseWriter, r *http.Request) {
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

	var payload services.EntityUpsert
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	entity, err := h.service.Upsert(r.Context(), orgID, actorID, payload)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if entity.Version == 1 {
		status = http.StatusCreated
	}
	_ = WriteJSON(w, status, entity)
}

// Get handles GET /api/v1/organizations/{oid}/entities/{eid}.
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	entityID, err := pathUUID(r, "eid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	entity, err := h.service.Get(r.Context(), orgID, entityID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, entity)
}

// List handles GET /api/v1/organizations/{oid}/entities with optional
// entity_type, entity_code, status and name query filters.
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	q := r.URL.Query()
	filter := models.EntityFilter{
		EntityType: q.Get("entity_type"),
		Code:       q.Get("entity_code"),
		Status:     q.Get("status"),
		NameLike:   q.Get("name"),
	}

	entities, err := h.service.List(r.Context(), orgID, filter)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, entities)
}

// Delete handles DELETE /api/v1/organizations/{oid}/entities/{eid}.
// Archival by default; ?hard=true removes the entity and its graph.
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	entityID, err := pathUUID(r, "eid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	actorID, err := auth.RequireActorID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	hard := r.URL.Query().Get("hard") == "true"
	if err := h.service.Delete(r.Context(), orgID, actorID, entityID, hard); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
