package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one crawl of the catalog, with its final counters.
type Run struct {
	ID               uuid.UUID  `json:"id"`
	Status           RunStatus  `json:"status"`
	Trigger          string     `json:"trigger,omitempty"`
	Pages            int        `json:"pages"`
	Created          int        `json:"created"`
	Updated          int        `json:"updated"`
	SkippedNotTarget int        `json:"skipped_not_target"`
	SkippedExisting  int        `json:"skipped_existing"`
	Errors           int        `json:"errors"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// Done reports whether the run reached a terminal status.
func (r *Run) Done() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}
