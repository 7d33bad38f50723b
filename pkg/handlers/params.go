package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// pathUUID parses a UUID path parameter set by the Go 1.22 ServeMux.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}
