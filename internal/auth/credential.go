// Package auth acquires and caches the bearer credential for the upstream
// GraphQL API. Acquisition is a cascade of independent strategies tried in
// priority order; the cascade itself never fails.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// hasuraClaimsKey is the custom-claims namespace the upstream token uses.
const hasuraClaimsKey = "https://hasura.io/jwt/claims"

// Credential is the single bearer credential this system works with.
type Credential struct {
	Token      string
	OwnerID    string
	AcquiredAt time.Time
}

// IsZero reports whether the credential carries no token.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// LooksLikeJWT reports whether s has the two-dot eyJ shape of a JWT.
func LooksLikeJWT(s string) bool {
	return strings.HasPrefix(s, "eyJ") && strings.Count(s, ".") == 2
}

// OwnerIDFromToken decodes the token's claims segment without verifying the
// signature and returns the owner id, looking first at the top-level
// owner_id claim and then inside the Hasura custom-claims map. Returns ""
// when the token cannot be decoded or carries neither claim.
func OwnerIDFromToken(token string) string {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return ""
	}
	if id, ok := claims["owner_id"].(string); ok && id != "" {
		return id
	}
	if nested, ok := claims[hasuraClaimsKey].(map[string]any); ok {
		if id, ok := nested["x-hasura-owner-id"].(string); ok {
			return id
		}
	}
	return ""
}

// EnrichOwnerID fills OwnerID from the token claims when the acquiring
// strategy did not supply one through its side channel.
func (c *Credential) EnrichOwnerID() {
	if c.OwnerID != "" {
		return
	}
	c.OwnerID = OwnerIDFromToken(c.Token)
}
