package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classconnect-api/internal/middleware"
	"github.com/noah-isme/classconnect-api/internal/models"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// actingID resolves an id the caller claims to act as. An empty id defaults to the token
// subject; any other id must match it.
func actingID(c *gin.Context, supplied, field string) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if !middleware.IsSelf(claims, supplied) {
		return "", appErrors.Clone(appErrors.ErrForbidden, field+" does not match the authenticated user")
	}
	return claims.UserID, nil
}

// bindOptionalJSON decodes a JSON body when one is present. GET and DELETE routes accept ids in
// an optional body.
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return appErrors.WrapAs(err, appErrors.ErrValidation, "invalid payload")
	}
	return nil
}
