package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/auth"
	"github.com/heraerp/hera-engine/pkg/services"
)

// IntrospectHandler serves the authorization resolver endpoint.
type IntrospectHandler struct {
	service services.IntrospectionService
	logger  *zap.Logger
}

// NewIntrospectHandler creates an IntrospectHandler.
func NewIntrospectHandler(service services.IntrospectionService, logger *zap.Logger) *IntrospectHandler {
	return &IntrospectHandler{service: service, logger: logger}
}

// RegisterRoutes registers the introspection route on the given mux.
func (h *IntrospectHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/v1/auth/introspect", authMiddleware.RequireActor(h.Introspect))
}

// Introspect handles GET /api/v1/auth/introspect. The actor comes from the
// bearer token; the response lists every organization the actor can act in,
// with role and app grants.
func (h *IntrospectHandler) Introspect(w http.ResponseWriter, r *http.Request) {
	actorID, err := auth.RequireActorID(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	access, err := h.service.Introspect(r.Context(), actorID)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, access)
}
