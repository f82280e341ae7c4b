package job

import "time"

type MediaType string

const (
	TypeVideo MediaType = "video"
	TypeAudio MediaType = "audio"
)

type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformOther     Platform = "other"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether a job in this status can never change again.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusDone, StatusError, StatusCancelled:
		return true
	}
	return false
}

// Job is the single record of truth for one download request.
// FilePath is server-internal; the API layer exposes jobs through its own
// view type and never serializes filesystem paths.
type Job struct {
	ID         string    `json:"job_id"`
	Type       MediaType `json:"type"`
	Platform   Platform  `json:"platform"`
	URL        string    `json:"url"`
	Quality    string    `json:"quality"`
	Format     string    `json:"format"`
	Status     Status    `json:"status"`
	Progress   float64   `json:"progress"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	Error      string    `json:"error"`
	RetryOf    string    `json:"retry_of,omitempty"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CanTransition reports whether the state machine allows moving from one
// status to another. A queued job may be dispatched, fail pre-dispatch, or
// be cancelled before dispatch; a running job may end any of the three
// terminal ways; terminal states are frozen.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusRunning || to == StatusError || to == StatusCancelled
	case StatusRunning:
		return to == StatusDone || to == StatusError || to == StatusCancelled
	}
	return false
}

func (j *Job) Clone() *Job {
	c := *j
	return &c
}
