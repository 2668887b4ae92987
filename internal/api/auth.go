package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"skuscan/internal/clock"
	"skuscan/internal/models"
)

type contextKey string

const adminSubjectKey contextKey = "admin_subject"

// authMiddleware guards the admin surface with HMAC-signed bearer tokens.
type authMiddleware struct {
	secret []byte
	clock  clock.Clock
}

func newAuthMiddleware(secret string, clk clock.Clock) *authMiddleware {
	return &authMiddleware{secret: []byte(secret), clock: clk}
}

// extractSubject validates the bearer token and returns its sub claim.
func (a *authMiddleware) extractSubject(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	tokenStr = strings.TrimSpace(tokenStr)

	token, err := jwtlib.Parse(tokenStr, func(token *jwtlib.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid JWT: %w", err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid JWT claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("JWT missing sub claim")
	}

	return sub, nil
}

func (a *authMiddleware) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			next.ServeHTTP(w, r)
			return
		}

		subject, err := a.extractSubject(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{
				Error:     "Unauthorized",
				Detail:    err.Error(),
				Timestamp: a.clock.Now().UTC(),
			})
			return
		}

		ctx := context.WithValue(r.Context(), adminSubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminSubjectFromContext reports who performed an admin action, for audit
// log lines.
func adminSubjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(adminSubjectKey).(string)
	return v
}
