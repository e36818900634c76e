package controller

import (
	"net/http"

	"github.com/chirpnet/chirp/pkg/server/router"
)

// SuccessResponse wraps successful payloads in a consistent envelope.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success sends a JSON response with HTTP 200 OK.
func Success(c router.Context, data interface{}) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Data:      data,
		RequestID: getRequestID(c.Request().Context()),
	})
}

// Created sends a JSON response with HTTP 201 Created, typically after
// successfully creating a new resource.
func Created(c router.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, SuccessResponse{
		Data:      data,
		RequestID: getRequestID(c.Request().Context()),
	})
}

// Error sends an error response with the status mapped by MapError.
func Error(c router.Context, err error) error {
	statusCode, errorResponse := MapError(c.Request().Context(), err)
	return c.JSON(statusCode, errorResponse)
}
