package jwtverify

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	commonhttp "github.com/AlibekovAA/registration-board/internal/common/http"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
)

// Claims of a public API key. Keys are HS256 tokens carrying a role, the
// same shape hosted backends hand out as their "anon" key.
type Claims struct {
	Role   string
	Issuer string
}

const (
	RoleAnon    = "anon"
	RoleService = "service_role"

	apiKeyHeader = "apikey"
	apiKeyQuery  = "apikey"
)

type contextKey string

const claimsKey contextKey = "api_key_claims"

var allowedRoles = map[string]bool{
	RoleAnon:    true,
	RoleService: true,
}

func Middleware(secret string, log *logger.Logger) func(next http.Handler) http.Handler {
	secretBytes := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := ExtractAPIKey(r)
			if !ok {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "api_key_missing",
				}).Warn("api key auth failed: missing key")
				commonhttp.HandleError(w, r, commonerrors.ErrMissingAPIKey, log)
				return
			}

			claims, err := ParseAPIKey(tokenString, secretBytes)
			if err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "api_key_invalid",
				}).Warnf("api key auth failed: %v", err)
				commonhttp.HandleError(w, r, commonerrors.ErrInvalidAPIKey.WithCause(err), log)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func FromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}

// ExtractAPIKey looks at the apikey header, then a bearer token, then the
// apikey query parameter (browsers cannot set headers on websocket dials).
func ExtractAPIKey(r *http.Request) (string, bool) {
	if v := strings.TrimSpace(r.Header.Get(apiKeyHeader)); v != "" {
		return v, true
	}
	if raw := r.Header.Get("Authorization"); strings.HasPrefix(raw, "Bearer ") {
		if v := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer ")); v != "" {
			return v, true
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get(apiKeyQuery)); v != "" {
		return v, true
	}
	return "", false
}

func ParseAPIKey(tokenString string, secret []byte) (Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token is not valid")
		}
		return Claims{}, err
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims type")
	}

	role, _ := mapClaims["role"].(string)
	if !allowedRoles[role] {
		return Claims{}, errors.New("missing or unsupported role claim")
	}
	issuer, _ := mapClaims["iss"].(string)

	return Claims{
		Role:   role,
		Issuer: issuer,
	}, nil
}

// IssueAPIKey signs a key for role. Used by tooling and tests.
func IssueAPIKey(secret []byte, role, issuer string) (string, error) {
	claims := jwt.MapClaims{
		"role": role,
		"iss":  issuer,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
