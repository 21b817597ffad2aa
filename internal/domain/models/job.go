package models

import "time"

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// ForecastJob tracks an asynchronous forecast submitted through the queue.
type ForecastJob struct {
	ID        string          `json:"id"`
	Status    JobStatus       `json:"status"`
	Request   ForecastRequest `json:"request"`
	Report    *ForecastReport `json:"report,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Done reports whether the job reached a terminal state.
func (j *ForecastJob) Done() bool {
	return j.Status == JobDone || j.Status == JobFailed
}
