package testhelpers

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// GenerateTestJWT creates an unsigned token (alg none) identifying the given
// actor entity. Use with a Verifier that has verification disabled.
func GenerateTestJWT(actorID uuid.UUID) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":"%s"}`, actorID)))
	return fmt.Sprintf("%s.%s.", header, payload)
}

// GenerateTestJWTWithBearer returns the token with the "Bearer " prefix for
// the Authorization header.
func GenerateTestJWTWithBearer(actorID uuid.UUID) string {
	return "Bearer " + GenerateTestJWT(actorID)
}
