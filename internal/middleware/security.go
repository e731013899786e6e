package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/templui/taskboard/internal/ctxkeys"
)

// SecurityHeaders sets the CSP and the usual hardening headers. Inline scripts
// run only with the request nonce; attachments may load from the storage host.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		media := []string{"'self'", "blob:"}
		if cfg := ctxkeys.Config(r.Context()); cfg != nil {
			for _, u := range []string{cfg.S3PublicURL, cfg.S3Endpoint} {
				if u != "" {
					media = append(media, strings.TrimSuffix(u, "/"))
				}
			}
			if cfg.S3PublicURL == "" && cfg.S3Endpoint == "" {
				media = append(media, "https://*.amazonaws.com")
			}
		}
		sources := strings.Join(media, " ")

		scripts := "'self'"
		if nonce := GetNonce(r.Context()); nonce != "" {
			scripts += fmt.Sprintf(" 'nonce-%s'", nonce)
		}

		h := w.Header()
		h.Set("Content-Security-Policy", strings.Join([]string{
			"default-src 'self'",
			"script-src " + scripts,
			"style-src 'self'",
			"img-src " + sources + " data:",
			"media-src " + sources,
			"connect-src 'self'",
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		}, "; "))
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

		next.ServeHTTP(w, r)
	})
}
