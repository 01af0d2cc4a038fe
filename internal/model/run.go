package model

import "time"

// RunStatus represents the current state of an optimization run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusSolving  RunStatus = "solving"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunRequest is the persisted summary of what an optimization run was asked
// to do. Geometry payloads are not stored, only their provenance.
type RunRequest struct {
	DemandCount    int     `json:"demand_count"`
	ExclusionCount int     `json:"exclusion_count"`
	BoundarySource string  `json:"boundary_source,omitempty"`
	Metric         string  `json:"metric"`
	Penalty        float64 `json:"penalty"`
	MaxIterations  int     `json:"max_iterations"`
	StartCount     int     `json:"start_count"`
	Bounds         BBox    `json:"bounds"`
}

// Run represents a single persisted optimization run.
type Run struct {
	ID        string              `json:"id"`
	Request   RunRequest          `json:"request"`
	Status    RunStatus           `json:"status"`
	Result    *OptimizationResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}
