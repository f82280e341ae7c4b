package event

import "time"

type Type string

const (
	// Job lifecycle
	JobCreated   Type = "job.created"
	JobCompleted Type = "job.completed"
	JobFailed    Type = "job.failed"
	JobCancelled Type = "job.cancelled"

	// Storage
	DiskLow Type = "disk.low"
)

type Event struct {
	Type      Type
	Timestamp time.Time
	Payload   any
}

type JobEvent struct {
	JobID    string
	Type     string
	Platform string
	FileName string
	Error    string
}

type DiskEvent struct {
	Available int64
	Floor     int64
}
