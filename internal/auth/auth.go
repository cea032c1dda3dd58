// Package auth validates the bearer tokens that guard mutating API calls.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"git.uuxo.net/uuxo/mimedb/internal/utils"
)

var log = logrus.New()

// SetLogger replaces the package-level logger.
func SetLogger(l *logrus.Logger) { log = l }

var (
	ErrMissingToken  = errors.New("missing JWT in Authorization header or 'token' query parameter")
	ErrInvalidHeader = errors.New("invalid Authorization header format")
	ErrInvalidToken  = errors.New("invalid JWT")
)

// ValidateJWTFromRequest extracts and validates a JWT from the request.
// The token is read from "Authorization: Bearer <jwt>" or the "token" query parameter.
func ValidateJWTFromRequest(r *http.Request, secret string) (*jwt.Token, error) {
	tokenString := ""
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		var ok bool
		tokenString, ok = strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			return nil, ErrInvalidHeader
		}
	} else {
		tokenString = r.URL.Query().Get("token")
		if tokenString == "" {
			return nil, ErrMissingToken
		}
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("JWT validation failed: %w", err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return token, nil
}

// GenerateToken issues a token for subject signed with secret.
// algorithm is one of HS256, HS384 or HS512.
func GenerateToken(secret, algorithm, subject string, ttl time.Duration) (string, error) {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return "", fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	log.Debugf("Issued token for %s valid for %s", subject, ttl)
	return signed, nil
}

// Subject returns the "sub" claim of a validated token.
func Subject(token *jwt.Token) string {
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// Middleware rejects requests without a valid token when enabled.
func Middleware(enabled bool, secret string, next http.HandlerFunc) http.HandlerFunc {
	if !enabled {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := ValidateJWTFromRequest(r, secret)
		if err != nil {
			log.Warnf("Rejected %s %s from %s: %v", r.Method, r.URL.Path, utils.GetClientIP(r), err)
			w.Header().Set("WWW-Authenticate", `Bearer realm="mimedb"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		log.Debugf("Authorized %s %s for %s", r.Method, r.URL.Path, Subject(token))
		next(w, r)
	}
}
