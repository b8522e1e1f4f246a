package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/referral-api/pkg/errors"
)

// ErrorBody is the wire shape of every failed response. Detail carries the
// stable machine-readable code from pkg/errors; Message is advisory.
type ErrorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message,omitempty"`
}

// JSON sends a success response with the given payload.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response converting the error to the common structure.
// Internal detail never leaks: non-domain errors collapse to INTERNAL_ERROR.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	body := ErrorBody{Detail: appErr.Code}
	if appErr.Status < http.StatusInternalServerError {
		body.Message = appErr.Message
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, body)
}
