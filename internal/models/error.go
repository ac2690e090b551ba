package models

import "net/http"

// ServerErrorMessage is the only failure text callers ever see.
const ServerErrorMessage = "Server error occurred"

// ErrorResponse represents a failed request
// swagger:model ErrorResponse
type ErrorResponse struct {
	// HTTP status code
	// example: 500
	StatusCode int `json:"statusCode" example:"500"`

	// Error message
	// example: Server error occurred
	Message string `json:"message" example:"Server error occurred"`
}

// NewServerErrorResponse returns the generic server-side failure body.
func NewServerErrorResponse() ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Message:    ServerErrorMessage,
	}
}
