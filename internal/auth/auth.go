// Package auth provides API key authentication for the casgen HTTP API.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
)

// AuthError represents an authentication error with its HTTP mapping.
type AuthError struct {
	StatusCode int
	ErrorType  string
	ErrorCode  string
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

var (
	ErrMissingCredentials = &AuthError{
		StatusCode: http.StatusUnauthorized,
		ErrorType:  "unauthorized",
		ErrorCode:  "MISSING_CREDENTIALS",
		Message:    "Missing authentication credentials",
	}
	ErrInvalidCredentials = &AuthError{
		StatusCode: http.StatusUnauthorized,
		ErrorType:  "unauthorized",
		ErrorCode:  "INVALID_CREDENTIALS",
		Message:    "Invalid authentication credentials",
	}
)

// Middleware enforces the configured API key. An empty key disables
// authentication entirely, which is the default for local use.
type Middleware struct {
	keyHash   string
	skipPaths map[string]bool
}

// NewMiddleware creates the middleware. Health and metrics endpoints are
// always reachable without credentials.
func NewMiddleware(apiKey string) *Middleware {
	m := &Middleware{
		skipPaths: map[string]bool{
			"/api/v1/health": true,
			"/metrics":       true,
		},
	}
	if apiKey != "" {
		m.keyHash = hashKey(apiKey)
	}
	return m
}

// Handler wraps an http.Handler with authentication.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.keyHash == "" || m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		key := extractAPIKey(r)
		if key == "" {
			m.writeError(w, ErrMissingCredentials)
			return
		}
		if subtle.ConstantTimeCompare([]byte(hashKey(key)), []byte(m.keyHash)) != 1 {
			m.writeError(w, ErrInvalidCredentials)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}

	auth := r.Header.Get("Authorization")
	const bearerPrefix = "Bearer "
	if strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimPrefix(auth, bearerPrefix)
	}
	return ""
}

func (m *Middleware) writeError(w http.ResponseWriter, authErr *AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authErr.StatusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error_type":    authErr.ErrorType,
		"error_code":    authErr.ErrorCode,
		"error_message": authErr.Message,
		"retryable":     false,
	})
}

func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
