package server

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/speakerembed/errors"
)

// RespondWithError writes err as {"error", "code"} with its mapped status.
// Errors that are not *AppError become a generic 500 INTERNAL_ERROR, so
// internal causes never reach the client.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondJSON writes body with the given status.
func RespondJSON(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
