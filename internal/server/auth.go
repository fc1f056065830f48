package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"

	"orchboard/internal/domain"
)

type AuthConfig struct {
	// APIKey is the dashboard key. When it is empty and no other credential
	// source is configured, every protected request is refused.
	APIKey    string
	JWTSecret string
	// SameOriginHosts lists Referer hosts whose requests are admitted without
	// a credential, for the dashboard's own pages.
	SameOriginHosts []string
	Logger          *log.Logger
}

// KeyLookup resolves stored API keys; engine.Engine satisfies it.
type KeyLookup interface {
	LookupAPIKey(ctx context.Context, presented string) (domain.APIKey, bool, error)
}

type Principal struct {
	ActorID string
	Source  string
}

type principalKey struct{}

func (c AuthConfig) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// actorID names who acted for the event log; requests admitted without an
// identity act as "user".
func actorID(ctx context.Context) string {
	if p, ok := principalFromContext(ctx); ok && p.ActorID != "" {
		return p.ActorID
	}
	return "user"
}

type jwtClaims struct {
	jwt.RegisteredClaims
}

func authenticateJWT(token string, secret string) (Principal, error) {
	if strings.TrimSpace(secret) == "" {
		return Principal{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwtClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return Principal{}, err
	}
	if !parsed.Valid {
		return Principal{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Principal{}, errors.New("subject claim required")
	}
	return Principal{ActorID: claims.Subject, Source: "jwt"}, nil
}

func signToken(secret, subject string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, errors.New("jwt secret not configured")
	}
	expires := now.Add(ttl)
	claims := jwtClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return signed, expires, err
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func matchesKey(presented, key string) bool {
	if key == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1
}

// sameOrigin reports whether the Referer names one of the allowed hosts,
// compared with and without the port.
func sameOrigin(referer string, hosts []string) bool {
	if referer == "" || len(hosts) == 0 {
		return false
	}
	u, err := url.Parse(referer)
	if err != nil || u.Host == "" {
		return false
	}
	for _, h := range hosts {
		if strings.EqualFold(h, u.Host) || strings.EqualFold(h, u.Hostname()) {
			return true
		}
	}
	return false
}

func invalidCredentials() huma.StatusError {
	return newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
}

// authenticateKey checks a presented secret against the dashboard key, then
// the stored API keys.
func authenticateKey(ctx context.Context, cfg AuthConfig, keys KeyLookup, presented string) (Principal, bool) {
	if matchesKey(presented, cfg.APIKey) {
		return Principal{ActorID: "dashboard", Source: "dashboard_key"}, true
	}
	if keys == nil {
		return Principal{}, false
	}
	key, ok, err := keys.LookupAPIKey(ctx, presented)
	if err != nil {
		cfg.logger().Printf("WARNING: api key lookup failed: %v", err)
		return Principal{}, false
	}
	if !ok {
		return Principal{}, false
	}
	actor := "api_key:" + key.ID
	if key.Name != "" {
		actor = key.Name
	}
	return Principal{ActorID: actor, Source: "api_key"}, true
}

func newAuthMiddleware(basePath string, cfg AuthConfig, keys KeyLookup) func(http.Handler) http.Handler {
	healthPath := path.Join(basePath, "health")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if req.URL.Path == healthPath {
				next.ServeHTTP(w, req)
				return
			}
			admit := func(p Principal) {
				next.ServeHTTP(w, req.WithContext(withPrincipal(req.Context(), p)))
			}

			if key := req.URL.Query().Get("key"); key != "" {
				if p, ok := authenticateKey(req.Context(), cfg, keys, key); ok {
					admit(p)
					return
				}
				respondStatusError(w, invalidCredentials())
				return
			}

			if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
				token, ok := bearerToken(authz)
				if !ok {
					respondStatusError(w, invalidCredentials())
					return
				}
				if p, ok := authenticateKey(req.Context(), cfg, keys, token); ok {
					admit(p)
					return
				}
				if cfg.JWTSecret != "" {
					if p, err := authenticateJWT(token, cfg.JWTSecret); err == nil {
						admit(p)
						return
					}
				}
				respondStatusError(w, invalidCredentials())
				return
			}

			if key := strings.TrimSpace(req.Header.Get("X-Api-Key")); key != "" {
				if p, ok := authenticateKey(req.Context(), cfg, keys, key); ok {
					admit(p)
					return
				}
				respondStatusError(w, invalidCredentials())
				return
			}

			if sameOrigin(req.Header.Get("Referer"), cfg.SameOriginHosts) {
				admit(Principal{ActorID: "user", Source: "same_origin"})
				return
			}

			respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
