// ABOUTME: Requester identity resolution for huma handlers: JWT cookie or Bearer header.
// ABOUTME: The resolved uuid is passed down explicitly — there is no ambient current-user.
package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/auth"
)

// authParams carries the two accepted credentials. Embed it in handler input
// structs; huma resolves embedded struct fields like top-level ones.
type authParams struct {
	AccessToken   string `cookie:"access_token" doc:"Access token cookie" required:"false"`
	Authorization string `header:"Authorization" doc:"Bearer access token" required:"false"`
}

func (p authParams) token() string {
	if bearer := strings.TrimPrefix(p.Authorization, "Bearer "); bearer != p.Authorization {
		return bearer
	}
	return p.AccessToken
}

// requester returns the authenticated user, or a 401 when no valid credential
// is presented.
func (srv *Server) requester(p authParams) (uuid.UUID, error) {
	token := p.token()
	if token == "" {
		return uuid.Nil, huma.Error401Unauthorized("authentication required")
	}
	claims, err := auth.ParseToken(token, []byte(srv.cfg.JWTSecret))
	if err != nil {
		return uuid.Nil, huma.Error401Unauthorized("invalid or expired access token")
	}
	return claims.UserID, nil
}

// optionalRequester returns the authenticated user, uuid.Nil for anonymous
// requests, or a 401 when a credential is presented but invalid.
func (srv *Server) optionalRequester(p authParams) (uuid.UUID, error) {
	if p.token() == "" {
		return uuid.Nil, nil
	}
	return srv.requester(p)
}
