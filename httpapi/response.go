package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/idg10/rxrewrite/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err using its AppError status and body. Other
// errors are reported as internal errors.
func RespondWithError(c *gin.Context, err error) {
	status, body := apperrors.ResponseFor(err)
	c.JSON(status, body)
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}
