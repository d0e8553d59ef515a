package domain

// JobStatus enumerates vendor job lifecycle states.
type JobStatus string

const (
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition can occur from the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is a snapshot of one vendor-tracked video generation task. The job
// identifier is vendor-assigned and opaque. Snapshots are replaced wholesale
// by newer ones; individual fields are never mutated in place.
type Job struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	OutputURL string    `json:"outputUrl,omitempty"`
}
