package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/hsagiv/pizza-orders-assignment/internal/types"
)

const (
	tokenQueryKey  = "token"
	tokenCookieKey = "token"
	roleClaim      = "role"
)

// Credentials holds the material the gatekeeper classifies against: the
// two sentinel tokens (stored as bcrypt hashes) and the signing key for
// dashboard-issued JWTs.
type Credentials struct {
	userTokenHash  []byte
	adminTokenHash []byte
	signingKey     []byte
}

func NewCredentials(userToken, adminToken string, signingKey []byte) (*Credentials, error) {
	userHash, err := bcrypt.GenerateFromPassword([]byte(userToken), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash user token: %w", err)
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin token: %w", err)
	}

	return &Credentials{
		userTokenHash:  userHash,
		adminTokenHash: adminHash,
		signingKey:     signingKey,
	}, nil
}

// ClassifyConnection assigns a role to an inbound handshake. It is a
// one-shot pure function of the request: the result is computed once per
// connection and never re-evaluated. Classification is total and fails
// open: a missing, malformed, or unrecognized credential yields guest,
// and no panic escapes. It never rejects a connection.
func (creds *Credentials) ClassifyConnection(r *http.Request) (role types.Role) {
	role = types.RoleGuest
	defer func() {
		if err := recover(); err != nil {
			role = types.RoleGuest
		}
	}()

	token := extractToken(r)
	if token == "" {
		return types.RoleGuest
	}

	if bcrypt.CompareHashAndPassword(creds.adminTokenHash, []byte(token)) == nil {
		return types.RoleAdmin
	}
	if bcrypt.CompareHashAndPassword(creds.userTokenHash, []byte(token)) == nil {
		return types.RoleUser
	}

	return creds.roleFromJwt(token)
}

// extractToken pulls a credential from the request, in priority order:
// query parameter, Authorization header, cookie.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get(tokenQueryKey); token != "" {
		return token
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		if after, found := strings.CutPrefix(auth, "Bearer "); found {
			return after
		}
		return auth
	}

	if cookie, err := r.Cookie(tokenCookieKey); err == nil {
		return cookie.Value
	}

	return ""
}

// roleFromJwt recognizes a dashboard session token: a JWT signed with the
// configured key whose role claim names a known role. Anything else is a
// guest.
func (creds *Credentials) roleFromJwt(tokenString string) types.Role {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return creds.signingKey, nil
	})
	if err != nil || !token.Valid {
		return types.RoleGuest
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.RoleGuest
	}

	switch claims[roleClaim] {
	case string(types.RoleAdmin):
		return types.RoleAdmin
	case string(types.RoleUser):
		return types.RoleUser
	}

	return types.RoleGuest
}
