package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Middleware resolves the bearer token to an actor entity id and stores it
// in the request context. It stays thin; token mechanics live in Verifier.
type Middleware struct {
	verifier *Verifier
	logger   *zap.Logger
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(verifier *Verifier, logger *zap.Logger) *Middleware {
	return &Middleware{verifier: verifier, logger: logger}
}

// RequireActor rejects requests without a parseable bearer token and puts
// the actor entity id in the context for downstream handlers.
func (m *Middleware) RequireActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			m.unauthorized(w, "Authentication required")
			return
		}

		claims, err := m.verifier.ParseToken(tokenString)
		if err != nil {
			m.logger.Debug("token rejected", zap.Error(err))
			m.unauthorized(w, "Invalid token")
			return
		}
		actorID, err := claims.ActorID()
		if err != nil {
			m.unauthorized(w, "Token does not identify an actor")
			return
		}

		next(w, r.WithContext(WithActorID(r.Context(), actorID)))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
