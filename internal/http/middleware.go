package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/log"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// withTrace assigns a request ID, logs start and completion, and elevates
// the completion log level for error statuses.
func (s *Server) withTrace(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ip := clientIP(r)

		logger := s.logger.With(log.FieldRequestID, requestID)
		ctx := r.Context()

		logger.InfoContext(ctx, "request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldRemote, ip)

		w.Header().Set("X-Request-ID", requestID)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		args := []any{
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatus, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldRemote, ip,
		}
		switch {
		case rw.statusCode >= 500:
			logger.ErrorContext(ctx, "request completed", args...)
		case rw.statusCode >= 400:
			logger.WarnContext(ctx, "request completed", args...)
		default:
			logger.InfoContext(ctx, "request completed", args...)
		}
	}
}

// withSecurityHeaders sets the usual hardening headers on every response.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next(w, r)
	}
}

// withRateLimit rejects clients that exceed the per-client budget.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			s.logger.WarnContext(r.Context(), "rate limit exceeded",
				log.FieldRemote, ip,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Too many requests", nil)
			return
		}
		next(w, r)
	}
}

// withAuth verifies the bearer token and attaches the caller's identity to
// the request context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.FromAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		identity, err := s.verifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		next(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	}
}

// protected is the middleware chain for the authenticated API surface.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withTrace(s.withSecurityHeaders(s.withRateLimit(s.withAuth(next))))
}

// public is the chain for unauthenticated endpoints.
func (s *Server) public(next http.HandlerFunc) http.HandlerFunc {
	return s.withTrace(s.withSecurityHeaders(next))
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// identityFrom pulls the authenticated identity; the auth middleware
// guarantees it is present on protected routes.
func identityFrom(r *http.Request) auth.Identity {
	identity, _ := auth.IdentityFrom(r.Context())
	return identity
}
