package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/duetable-api/internal/models"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
	"github.com/noah-isme/duetable-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the session claims.
const ContextSessionKey = "sessionClaims"

// TokenValidator checks a bearer token against the active session.
type TokenValidator interface {
	ValidateToken(token string) (*models.SessionClaims, error)
}

// Session rejects requests whose bearer token does not belong to the
// signed-in user. Tokens stop working once the session is cleared.
func Session(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by Session.
func ClaimsFromContext(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.SessionClaims)
	return claims
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
