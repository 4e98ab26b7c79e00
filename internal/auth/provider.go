package auth

import (
	"context"
	"net/http"
)

// TokenProvider is one rung of the acquisition cascade. A provider either
// produces a credential or reports failure; it must never panic the caller.
type TokenProvider interface {
	Name() string
	Acquire(ctx context.Context) (Credential, error)
}

// Headers builds the outbound header set for a credential: bearer token
// plus the subject-identity header the upstream requires on some queries.
func Headers(cred Credential) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+cred.Token)
	if cred.OwnerID != "" {
		h.Set("x-hasura-owner-id", cred.OwnerID)
	}
	return h
}
