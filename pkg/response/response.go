package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	StatusCode int              `json:"statusCode"`
	Data       interface{}      `json:"data"`
	Message    string           `json:"message"`
	Success    bool             `json:"success"`
	Error      *appErrors.Error `json:"error,omitempty"`
}

// JSON sends a success response.
func JSON(c *gin.Context, status int, data interface{}, message string) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Envelope{StatusCode: status, Data: data, Message: message, Success: status < http.StatusBadRequest})
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}, message string) {
	JSON(c, http.StatusOK, data, message)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{
		StatusCode: appErr.Status,
		Data:       nil,
		Message:    appErr.Message,
		Success:    false,
		Error:      appErr,
	})
}

// Abort writes the error and stops the middleware chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
