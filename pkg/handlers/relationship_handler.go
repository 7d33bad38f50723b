package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/auth"
	"github.com/heraerp/hera-engine/pkg/models"
	"github.com/heraerp/hera-engine/pkg/services"
)

// RelationshipHandler serves the relationship engine endpoints.
type RelationshipHandler struct {
	service services.RelationshipService
	logger  *zap.Logger
}

// NewRelationshipHandler creates a RelationshipHandler.
func NewRelationshipHandler(service services.RelationshipService, logger *zap.Logger) *RelationshipHandler {
	return &RelationshipHandler{service: service, logger: logger}
}

// RegisterRoutes registers relationship routes on the given mux.
func (h *RelationshipHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/v1/organizations/{oid}/relationships"
	mux.HandleFunc("POST "+base, authMiddleware.RequireActor(h.Create))
	mux.HandleFunc("GET "+base, authMiddleware.RequireActor(h.List))
	mux.HandleFunc("DELETE "+base+"/{rid}", authMiddleware.RequireActor(h.Delete))
	mux.HandleFunc("GET /api/v1/organizations/{oid}/entities/{eid}/rollup",
		authMiddleware.RequireActor(h.Rollup))
}

// Create handles POST /api/v1/organizations/{oid}/relationships.
func (h *RelationshipHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var input services.RelationshipInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	rel, err := h.service.Create(r.Context(), orgID, actorID, input)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, rel)
}

// List handles GET /api/v1/organizations/{oid}/relationships with optional
// from, to, relationship_type and active query filters.
func (h *RelationshipHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	q := r.URL.Query()
	filter := models.RelationshipFilter{
		RelationshipType: q.Get("relationship_type"),
		ActiveOnly:       q.Get("active") == "true",
	}
	if raw := q.Get("from"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid from filter")
			return
		}
		filter.FromEntityID = id
	}
	if raw := q.Get("to"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid to filter")
			return
		}
		filter.ToEntityID = id
	}

	rels, err := h.service.List(r.Context(), orgID, filter)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, rels)
}

// Delete handles DELETE /api/v1/organizations/{oid}/relationships/{rid}.
func (h *RelationshipHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "oid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	relID, err := pathUUID(r, "rid")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), orgID, relID); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rollup handles GET /api/v1/organizations/{oid}/entities/{eid}/rollup,
// returning the descendant tree under the entity for one relationship type.
func (h *RelationshipHandler) Rollup(w http.ResponseWriter, r *http.Request) {
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
	relType := r.URL.Query().Get("relationship_type")
	if relType == "" {
		relType = models.RelTypeParentOf
	}

	tree, err := h.service.Rollup(r.Context(), orgID, entityID, relType)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, tree)
}
