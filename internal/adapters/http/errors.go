package http

import (
	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/reqsentry/internal/adapters/http/dto"
)

// RespondWithError writes the error envelope for err. Server errors are
// reported through the request's error tracking client.
func RespondWithError(c *gin.Context, err error) {
	dto.HandleError(c, err)
}

// AbortWithErrorCode aborts the request chain with a specific error code.
func AbortWithErrorCode(c *gin.Context, code, message string) {
	errResp := dto.NewErrorResponse(code, message).WithTraceID(dto.GetTraceID(c))

	c.AbortWithStatusJSON(dto.HTTPStatusFromCode(code), errResp)
}

func noRoute(c *gin.Context) {
	AbortWithErrorCode(c, dto.ErrorCodeNotFound, "no route for "+c.Request.URL.Path)
}

func noMethod(c *gin.Context) {
	AbortWithErrorCode(c, dto.ErrorCodeMethodNotAllowed, c.Request.Method+" not allowed on "+c.Request.URL.Path)
}
