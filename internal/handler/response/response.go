package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wallet-gas/pkg/errno"
)

// Response defines the standard JSON structure
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Success returns a success response with data
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{} // Return empty object instead of null
	}
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Error returns an error response, HTTP status 由业务错误码决定
func Error(c *gin.Context, err error) {
	code, msg := errno.Decode(err)
	c.JSON(statusOf(code), Response{
		Code:    code,
		Message: msg,
		Data:    gin.H{},
	})
}

func statusOf(code int) int {
	switch code {
	case errno.ErrBind.Code, errno.ErrValidation.Code, errno.ErrTierUnavailable.Code, errno.ErrUnderfunded.Code:
		return http.StatusBadRequest
	case errno.ErrDraftNotFound.Code, errno.ErrNoEditSession.Code:
		return http.StatusNotFound
	case errno.ErrDraftExists.Code, errno.ErrEditSessionActive.Code:
		return http.StatusConflict
	case errno.ErrEstimatesUnavailable.Code:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
