package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/libresonic/playersettings/internal/httputil"
)

type SecurityConfig struct {
	BaseURL string
}

// securityHeaders sets a nonce-based CSP on every response and stores the
// nonce in the request context for the page templates.
func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := hasHTTPS(cfg.BaseURL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := httputil.GenerateNonce()

			h := w.Header()
			h.Set("Referrer-Policy", "same-origin")
			h.Set("X-Content-Type-Options", "nosniff")
			// The settings page is embedded in the main player frame set.
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Permissions-Policy", "autoplay=(self), camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", fmt.Sprintf(
				"default-src 'self'; img-src 'self' data:; script-src 'self' 'nonce-%s'; style-src 'self' 'nonce-%s'; form-action 'self'; frame-ancestors 'self';",
				nonce, nonce,
			))
			if strictTransport {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r.WithContext(httputil.ContextWithNonce(r.Context(), nonce)))
		})
	}
}

func hasHTTPS(baseURL string) bool {
	return strings.HasPrefix(baseURL, "https://")
}
