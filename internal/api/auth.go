package api

import (
	"net/http"
	"strings"

	"salesroute/internal/auth"
)

// getPrincipal extracts rep and role from a bearer token or, in dev, from the
// X-Rep and X-Role headers. Without either, the caller is treated as admin.
func (s *Server) getPrincipal(r *http.Request) auth.Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return pr
		}
		return auth.Principal{Role: "anonymous"}
	}
	role := strings.ToLower(r.Header.Get("X-Role"))
	if role == "" {
		role = "admin"
	}
	return auth.Principal{Rep: r.Header.Get("X-Rep"), Role: role}
}
