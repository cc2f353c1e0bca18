package model

import "time"

// RunStatus tracks the lifecycle of an estimation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one execution of the parameter engine: which strategy
// ran, over which surface window, from which input source, and how
// many map unit rows it produced.
type Run struct {
	ID           string    `json:"id"`
	Strategy     string    `json:"strategy"`
	Source       string    `json:"source"` // "sda" or "local"
	WindowTop    float64   `json:"window_top_cm"`
	WindowBottom float64   `json:"window_bottom_cm"`
	Status       RunStatus `json:"status"`
	Message      string    `json:"message,omitempty"`
	Mapunits     int       `json:"mapunits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
