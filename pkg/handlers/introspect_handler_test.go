package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/apperrors"
	"github.com/heraerp/hera-engine/pkg/auth"
	"github.com/heraerp/hera-engine/pkg/models"
)

func TestIntrospectHandler_ReturnsAccess(t *testing.T) {
	actorID := uuid.New()
	service := &mockIntrospectionService{
		access: &models.ActorAccess{
			ActorID: actorID,
			Organizations: []*models.OrgAccess{
				{OrganizationID: uuid.New(), Code: "DEMO-SALON", Name: "Demo Salon", Role: "ORG_OWNER", Apps: []string{"SALON"}},
			},
		},
	}
	h := NewIntrospectHandler(service, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/introspect", nil)
	req = req.WithContext(auth.WithActorID(req.Context(), actorID))
	rec := httptest.NewRecorder()
	h.Introspect(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if service.capturedActorID != actorID {
		t.Errorf("expected actor %v, got %v", actorID, service.capturedActorID)
	}

	var got models.ActorAccess
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(got.Organizations) != 1 || got.Organizations[0].Role != "ORG_OWNER" {
		t.Errorf("unexpected access payload: %+v", got)
	}
}

func TestIntrospectHandler_ActorNotFound(t *testing.T) {
	service := &mockIntrospectionService{err: &apperrors.ActorNotFoundError{ActorID: uuid.New()}}
	h := NewIntrospectHandler(service, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/introspect", nil)
	req = req.WithContext(auth.WithActorID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	h.Introspect(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestIntrospectHandler_NoActor(t *testing.T) {
	h := NewIntrospectHandler(&mockIntrospectionService{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Introspect(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/introspect", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
