// Package auth resolves caller identity for inbound requests. Identity
// comes from the session cookie (backed by Redis) or, failing that,
// from a bearer JWT. Requests without either are treated as anonymous,
// never rejected: the storefront is browsable without an account and
// tool-level authorization happens downstream.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/shopmesh/shopmesh/internal/cache"
	"github.com/shopmesh/shopmesh/internal/models"
	"github.com/shopmesh/shopmesh/internal/observability"
)

// Common errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Config holds authentication configuration
type Config struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	SessionCookieName string        `mapstructure:"session_cookie_name"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
}

// Claims are the JWT claims carried by bearer tokens
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

// Resolver resolves a CallerContext from an inbound request
type Resolver struct {
	sessions *cache.SessionStore
	config   Config
	logger   observability.Logger
}

// NewResolver creates a caller identity resolver
func NewResolver(sessions *cache.SessionStore, cfg Config, logger observability.Logger) *Resolver {
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = "shopmesh_session"
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Resolver{sessions: sessions, config: cfg, logger: logger}
}

// Resolve determines the caller's identity for one request. The result
// is immutable for the request's duration and is not cached across
// requests.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) models.CallerContext {
	if cookie, err := req.Cookie(r.config.SessionCookieName); err == nil && cookie.Value != "" {
		if caller, err := r.resolveSession(ctx, cookie.Value); err == nil {
			return caller
		} else if !errors.Is(err, cache.ErrNotFound) {
			r.logger.Warn("session lookup failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if header := req.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		if caller, err := r.resolveJWT(token); err == nil {
			return caller
		}
	}

	return models.Anonymous()
}

func (r *Resolver) resolveSession(ctx context.Context, sessionID string) (models.CallerContext, error) {
	sess, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.CallerContext{}, err
	}
	if sess.UserID == "" {
		return models.CallerContext{}, cache.ErrNotFound
	}

	role := sess.Role
	if role != models.RoleAdmin {
		role = models.RoleCustomer
	}
	uid := sess.UserID
	return models.CallerContext{UserID: &uid, Role: role}, nil
}

func (r *Resolver) resolveJWT(tokenString string) (models.CallerContext, error) {
	claims, err := r.ValidateToken(tokenString)
	if err != nil {
		return models.CallerContext{}, err
	}

	role := claims.Role
	if role != models.RoleAdmin {
		role = models.RoleCustomer
	}
	uid := claims.UserID
	return models.CallerContext{UserID: &uid, Role: role}, nil
}

// ValidateToken parses and validates a bearer JWT
func (r *Resolver) ValidateToken(tokenString string) (*Claims, error) {
	if r.config.JWTSecret == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(r.config.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken creates a signed JWT for a user. Used by session
// bootstrap flows and tests.
func (r *Resolver) GenerateToken(userID, role string, ttl time.Duration) (string, error) {
	if r.config.JWTSecret == "" {
		return "", errors.New("jwt secret not configured")
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(r.config.JWTSecret))
}
