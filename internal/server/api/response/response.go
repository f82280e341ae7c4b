package response

import (
	"github.com/labstack/echo/v4"

	"github.com/LegendarySumit/MediaDL/internal/core/job"
)

// JobView is the wire shape of a job record. Timestamps go out as unix
// seconds and the local file path never leaves the server.
type JobView struct {
	JobID      string  `json:"job_id"`
	Type       string  `json:"type"`
	Platform   string  `json:"platform"`
	URL        string  `json:"url"`
	Quality    string  `json:"quality"`
	Format     string  `json:"format,omitempty"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	FileName   string  `json:"file_name,omitempty"`
	Error      string  `json:"error,omitempty"`
	RetryOf    string  `json:"retry_of,omitempty"`
	RetryCount int     `json:"retry_count"`
	CreatedAt  int64   `json:"created_at"`
	UpdatedAt  int64   `json:"updated_at"`
}

func NewJobView(j *job.Job) JobView {
	return JobView{
		JobID:      j.ID,
		Type:       string(j.Type),
		Platform:   string(j.Platform),
		URL:        j.URL,
		Quality:    j.Quality,
		Format:     j.Format,
		Status:     string(j.Status),
		Progress:   j.Progress,
		FileName:   j.FileName,
		Error:      j.Error,
		RetryOf:    j.RetryOf,
		RetryCount: j.RetryCount,
		CreatedAt:  j.CreatedAt.Unix(),
		UpdatedAt:  j.UpdatedAt.Unix(),
	}
}

func NewJobViews(jobs []*job.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, NewJobView(j))
	}
	return views
}

func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
