package request

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is used when no network identity can be derived.
const UnknownClient = "unknown"

// ClientIP derives the best-effort client network identity: the first hop of
// X-Forwarded-For, then X-Real-IP, then the connection's remote address.
// The value is advisory (rate-limit keying and audit records), not an
// authentication signal.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return UnknownClient
}
