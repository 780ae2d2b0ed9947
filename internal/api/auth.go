// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ManuGH/relay247/internal/log"
)

// authMiddleware enforces the API token when one is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}

		logger := log.WithComponentFromContext(r.Context(), "auth")
		reqToken := extractToken(r)
		if reqToken == "" {
			logger.Warn().Str(log.FieldEvent, "auth.missing_header").Msg("authorization header missing")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if subtle.ConstantTimeCompare([]byte(reqToken), []byte(s.cfg.Token)) != 1 {
			logger.Warn().Str(log.FieldEvent, "auth.invalid_token").Msg("invalid api token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken reads "Authorization: Bearer <t>". Browsers cannot set
// headers on a websocket handshake, so the stream endpoint also accepts
// the token as a query parameter.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if strings.HasSuffix(r.URL.Path, "/status/stream") {
		return r.URL.Query().Get("token")
	}
	return ""
}
