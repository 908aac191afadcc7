package models

// RunRequest is the payload for POST /api/v1/runs.
type RunRequest struct {
	// Profile names a built-in or configured profile. Required.
	Profile string `json:"profile" binding:"required"`

	// MaxAgeMs serves a cached outcome younger than this many
	// milliseconds instead of opening the browser. 0 always runs.
	MaxAgeMs int `json:"max_age_ms,omitempty" binding:"omitempty,min=0"`

	// Wait holds the response until the run finishes.
	Wait bool `json:"wait,omitempty"`

	// WaitTimeout bounds Wait in seconds.
	// Default: 300. Max: 900.
	WaitTimeout int `json:"wait_timeout,omitempty" binding:"omitempty,min=1,max=900"`
}
