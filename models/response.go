package models

// ErrorResponse wraps every API error.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// NewErrorResponse builds a failed response with the given code.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: &ErrorDetail{Code: code, Message: message}}
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string `json:"status"` // "healthy"
	Uptime     string `json:"uptime"`
	Profiles   int    `json:"profiles"`
	ActiveRuns int    `json:"active_runs"`
	Version    string `json:"version"`
}

// ProfileSummary is one entry of GET /api/v1/profiles.
type ProfileSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url"`
	Columns     []string `json:"columns"`
	TargetCount int      `json:"target_count"`
	MaxPages    int      `json:"max_pages"`
}
