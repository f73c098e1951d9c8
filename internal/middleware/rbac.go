package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-enroll-api/internal/models"
	appErrors "github.com/noah-isme/college-enroll-api/pkg/errors"
	"github.com/noah-isme/college-enroll-api/pkg/response"
)

// RequireRoles restricts a route to the given roles. Finer-grained policy
// (which teacher may decide for which section) lives in the enrollment
// service, not here.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
