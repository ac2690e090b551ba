package models

// Health statuses
const (
	HealthStatusOK          = "ok"
	HealthStatusUnavailable = "unavailable"
)

// HealthResponse represents the result of a storage health check
// swagger:model HealthResponse
type HealthResponse struct {
	// Status of the storage connection
	// example: ok
	Status string `json:"status" example:"ok"`
}
