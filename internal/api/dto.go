package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	EventNotFound         = "EVENT_NOT_FOUND"
	RegistrationDuplicate = "REGISTRATION_DUPLICATE"
	PayloadTooLarge       = "PAYLOAD_TOO_LARGE"
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

type RegistrationRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type ImportResponse struct {
	Created int      `json:"created"`
	IDs     []string `json:"ids"`
	Skipped []string `json:"skipped"`
}

func errorResponse(c *gin.Context, status int, code, desc string) {
	c.JSON(status, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func BadResponseError(c *gin.Context, code, desc string) {
	errorResponse(c, http.StatusBadRequest, code, desc)
}

func InternalServerError(c *gin.Context) {
	errorResponse(c, http.StatusInternalServerError, ServiceUnavailable, InternalError)
}

func FieldBadFormatError(c *gin.Context, fieldName string) {
	BadResponseError(c, FieldBadFormat, "Field '"+fieldName+"' has bad format")
}

func EventNotFoundError(c *gin.Context) {
	errorResponse(c, http.StatusNotFound, EventNotFound, "Event not found")
}

func RegistrationDuplicateError(c *gin.Context) {
	errorResponse(c, http.StatusConflict, RegistrationDuplicate, "This email is already registered for the event")
}

func PayloadTooLargeError(c *gin.Context, limit int64) {
	errorResponse(c, http.StatusRequestEntityTooLarge, PayloadTooLarge, fmt.Sprintf("Upload exceeds %d bytes", limit))
}

func SuccessResponse(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Status: "ok",
		Data:   data,
	})
}
