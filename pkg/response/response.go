// Package response writes the JSON envelope every API route answers with.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in ErrorInfo.Code.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeTooLarge     = "TOO_LARGE"
	CodeInternal     = "INTERNAL_ERROR"
)

// Response is the envelope. Redirect names the screen a client should show
// next, for routes whose browser counterpart navigates.
type Response struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Message  string      `json:"message,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
	Error    *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ok(c *gin.Context, status int, body Response) {
	body.Success = true
	c.JSON(status, body)
}

func Success(c *gin.Context, data interface{}) {
	ok(c, http.StatusOK, Response{Data: data})
}

// SuccessMessage adds a message meant to be shown to the user.
func SuccessMessage(c *gin.Context, message string, data interface{}) {
	ok(c, http.StatusOK, Response{Data: data, Message: message})
}

func Created(c *gin.Context, data interface{}) {
	ok(c, http.StatusCreated, Response{Data: data})
}

func Redirect(c *gin.Context, status int, location string, data interface{}) {
	ok(c, status, Response{Data: data, Redirect: location})
}

func failure(code, message string) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message}}
}

// Error writes a failure envelope and lets the handler chain continue.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, failure(code, message))
}

// Abort writes a failure envelope and stops the handler chain.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, failure(code, message))
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, CodeConflict, message)
}

func TooLarge(c *gin.Context, message string) {
	Error(c, http.StatusRequestEntityTooLarge, CodeTooLarge, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternal, message)
}
