package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/netcollect/backend/internal/infrastructure/auth"
	"github.com/netcollect/backend/internal/infrastructure/logger"
	"github.com/netcollect/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Auth context keys and headers
const (
	IdentityKey     = "identity"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
	CollectorHeader = "X-Collector"
	AdminHeader     = "X-Admin"
	maxNameLength   = 100
)

// Identity is who is calling: a collector or an admin, by name
type Identity struct {
	Name string
	Role auth.Role
}

// IsAdmin reports whether the caller may use admin routes
func (i Identity) IsAdmin() bool {
	return i.Role == auth.RoleAdmin
}

// AuthConfig configures Authenticate
type AuthConfig struct {
	// Enabled requires a bearer token; otherwise identity comes from headers
	Enabled bool
	// JWTService validates tokens when Enabled
	JWTService *auth.JWTService
	Logger     *zap.Logger
}

// Authenticate resolves the caller's identity and stores it on the context.
// With tokens enabled the subject and role come from the JWT. Without, the
// X-Admin header names an admin and X-Collector names a collector.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		var (
			id  Identity
			err error
		)
		if cfg.Enabled {
			id, err = identityFromToken(c, cfg.JWTService)
		} else {
			id, err = identityFromHeaders(c)
		}
		if err != nil {
			log.Warn("authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)))
			abortUnauthorized(c, err)
			return
		}

		c.Set(IdentityKey, id)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), id.Name))
		c.Next()
	}
}

var (
	errMissingAuthHeader = errors.New("missing authorization header")
	errBadAuthHeader     = errors.New("invalid authorization header format")
	errMissingIdentity   = errors.New("X-Collector or X-Admin header required")
	errNameTooLong       = errors.New("identity name too long")
)

func identityFromToken(c *gin.Context, svc *auth.JWTService) (Identity, error) {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" {
		return Identity{}, errMissingAuthHeader
	}
	if !strings.HasPrefix(header, BearerPrefix) {
		return Identity{}, errBadAuthHeader
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	if token == "" {
		return Identity{}, errMissingAuthHeader
	}

	claims, err := svc.Validate(token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Name: claims.Subject, Role: claims.Role}, nil
}

func identityFromHeaders(c *gin.Context) (Identity, error) {
	id := Identity{Name: strings.TrimSpace(c.GetHeader(AdminHeader)), Role: auth.RoleAdmin}
	if id.Name == "" {
		id = Identity{Name: strings.TrimSpace(c.GetHeader(CollectorHeader)), Role: auth.RoleCollector}
	}
	if id.Name == "" {
		return Identity{}, errMissingIdentity
	}
	if len(id.Name) > maxNameLength {
		return Identity{}, errNameTooLong
	}
	return id, nil
}

func abortUnauthorized(c *gin.Context, err error) {
	code := dto.ErrCodeUnauthorized
	message := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrMissingSubject):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	case errors.Is(err, errMissingIdentity), errors.Is(err, errNameTooLong):
		message = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// RequireAdmin rejects callers whose identity is not an admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abortUnauthorized(c, errMissingIdentity)
			return
		}
		if !id.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Admin role required", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// GetIdentity returns the identity Authenticate stored
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
