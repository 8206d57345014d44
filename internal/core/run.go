package core

import "time"

// RunStatus represents the state of one pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one fetch -> detect -> notify -> persist pass of a pipeline.
type Run struct {
	ID          string      `json:"id"`
	Pipeline    string      `json:"pipeline"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Status      RunStatus   `json:"status"`
	Fetch       FetchStatus `json:"fetch,omitempty"`
	New         int         `json:"new"`
	Updated     int         `json:"updated"`
	Delivered   int         `json:"delivered"`
	Failed      int         `json:"failed"`
}

func (r *Run) Finish(status RunStatus) {
	completedAt := time.Now().UTC()
	r.CompletedAt = &completedAt
	r.Status = status
}
