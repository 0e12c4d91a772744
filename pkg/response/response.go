package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes surfaced in the response envelope so clients can disambiguate
// failure reasons (e.g. "pick another slot" vs "you lack permission").
const (
	CodeInvalidRange        = "invalid_range"
	CodeInvalidAmount       = "invalid_amount"
	CodeInsufficientCredits = "insufficient_credits"
	CodeUnauthorized        = "unauthorized"
	CodeSlotConflict        = "slot_conflict"
	CodeNotFound            = "not_found"
	CodeInvalidTransition   = "invalid_transition"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// BadRequestCode sends 400 with error message and machine-readable code.
func BadRequestCode(c *gin.Context, code, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Code: code})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403 with the unauthorized code.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err, Code: CodeUnauthorized})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err, Code: CodeNotFound})
}

// Conflict sends 409 with error message and machine-readable code.
func Conflict(c *gin.Context, code, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err, Code: code})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}
