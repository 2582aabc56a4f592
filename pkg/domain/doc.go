// Package domain defines the shared types of the request-security core:
// security events, sessions, and the classified API error that crosses the
// boundary between the validation pipeline and route handlers.
package domain
