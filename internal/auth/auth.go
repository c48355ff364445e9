// Package auth guards the mutating API routes with the admin token.
package auth

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

const (
	maxFailures  = 5
	blockWindow  = 15 * time.Minute
	unauthorized = `{"success":false,"error":"unauthorized"}`
	tooMany      = `{"success":false,"error":"too many failed attempts"}`
)

// HashPassword hashes a plain-text secret using bcrypt cost 12.
func HashPassword(plain string) (string, error) {
	return hashWithCost(plain, bcryptCost)
}

func hashWithCost(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("auth.HashPassword: %w", err)
	}
	return string(b), nil
}

// CheckPassword compares plain text against a bcrypt hash.
func CheckPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Guard checks bearer tokens against the bcrypt hash of the admin token and
// blocks clients after repeated failures.
type Guard struct {
	hash     string
	attempts *Attempts
}

// NewGuard hashes token once at startup. The plain token is not retained.
func NewGuard(token string) (*Guard, error) {
	return newGuard(token, bcryptCost)
}

func newGuard(token string, cost int) (*Guard, error) {
	if token == "" {
		return nil, fmt.Errorf("auth.NewGuard: empty admin token")
	}
	if token == "changeme" {
		log.Printf("auth: ADMIN_TOKEN is the default value, change it")
	}
	hash, err := hashWithCost(token, cost)
	if err != nil {
		return nil, fmt.Errorf("auth.NewGuard: %w", err)
	}
	return &Guard{hash: hash, attempts: NewAttempts()}, nil
}

// RequireToken is middleware that validates a Bearer token from the Authorization header.
func (g *Guard) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if g.attempts.IsBlocked(ip, maxFailures, blockWindow) {
			writeError(w, http.StatusTooManyRequests, tooMany)
			return
		}
		token := BearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, unauthorized)
			return
		}
		ok := CheckPassword(token, g.hash)
		g.attempts.Track(ip, ok)
		if !ok {
			log.Printf("auth: rejected admin token from %s", ip)
			writeError(w, http.StatusUnauthorized, unauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// ClientIP returns the request's remote host without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
