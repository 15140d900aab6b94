package httpx

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Response represents the standard API response structure
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ListData is the data of a list response
type ListData struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

// OK sends a successful response with default message "success"
func OK(c *gin.Context, data any) {
	OKMsg(c, "success", data)
}

// OKMsg sends a successful response with custom message
func OKMsg(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// OKList sends items with their count. A nil slice is sent as [].
func OKList(c *gin.Context, items any) {
	total := 0
	if v := reflect.ValueOf(items); v.Kind() == reflect.Slice {
		total = v.Len()
		if v.IsNil() {
			items = []any{}
		}
	}
	OK(c, ListData{Items: items, Total: total})
}

// FailErr sends an error response from an AppError
// If AppError.Err is not nil, it will be logged but not returned to client
func FailErr(c *gin.Context, err *AppError) {
	if err.Err != nil {
		logrus.WithFields(logrus.Fields{
			"code":   err.Code,
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Errorf("%s: %v", err.Message, err.Err)
	}

	c.JSON(err.HTTPStatus, Response{
		Code:    err.Code,
		Message: err.Message,
		Data:    err.Data,
	})
}

// Error converts a service error with FromError and sends it
func Error(c *gin.Context, err error) {
	FailErr(c, FromError(err))
}
