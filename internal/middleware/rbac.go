package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classconnect-api/internal/models"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
	"github.com/noah-isme/classconnect-api/pkg/response"
)

// RequireRoles allows the request through when the token role is one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" cannot access this resource"))
			return
		}
		c.Next()
	}
}

// RequireSelf rejects requests whose path parameter names someone other than the token subject.
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if !IsSelf(claims, c.Param(param)) {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, param+" does not match the authenticated user"))
			return
		}
		c.Next()
	}
}

// IsSelf reports whether id is empty or equals the token subject.
func IsSelf(claims *models.JWTClaims, id string) bool {
	return claims != nil && (id == "" || id == claims.UserID)
}
