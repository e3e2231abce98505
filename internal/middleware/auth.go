package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/brightpath/studyplan-core/internal/models"
	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
	"github.com/brightpath/studyplan-core/pkg/response"
)

// ContextUserKey is the gin context key storing the request's RequestContext.
const ContextUserKey = "requestContext"

// TokenValidator verifies a bearer token and extracts its claims. Issuance,
// refresh, and credential storage live outside the core; this interface is
// the only surface the core depends on.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWTSecretValidator validates HMAC-signed access tokens against a shared
// secret. It never issues tokens; it only verifies ones issued elsewhere.
type JWTSecretValidator struct {
	secret []byte
}

// NewJWTSecretValidator builds a validator for the given signing secret.
func NewJWTSecretValidator(secret string) *JWTSecretValidator {
	return &JWTSecretValidator{secret: []byte(secret)}
}

// ValidateToken implements TokenValidator.
func (v *JWTSecretValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing user id")
	}
	return claims, nil
}

// Auth protects routes by requiring a valid access token and sets the
// request's RequestContext on the gin context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, models.RequestContext{UserID: claims.UserID, Elevated: claims.Elevated})
		c.Next()
	}
}

// FromContext extracts the RequestContext set by Auth. ok is false when the
// middleware did not run (programmer error, not a client error).
func FromContext(c *gin.Context) (models.RequestContext, bool) {
	val, exists := c.Get(ContextUserKey)
	if !exists {
		return models.RequestContext{}, false
	}
	rc, ok := val.(models.RequestContext)
	return rc, ok
}
