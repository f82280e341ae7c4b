package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/core/job"
	"github.com/LegendarySumit/MediaDL/internal/core/orchestrator"
	"github.com/LegendarySumit/MediaDL/internal/core/security"
	"github.com/LegendarySumit/MediaDL/internal/core/storage"
	"github.com/LegendarySumit/MediaDL/internal/core/store"
	"github.com/LegendarySumit/MediaDL/internal/core/stream"
	"github.com/LegendarySumit/MediaDL/internal/server/api/response"
)

type DownloadHandler struct {
	orch     *orchestrator.Orchestrator
	streamer *stream.Streamer
	store    store.Store
	paths    *security.PathValidator
	files    *storage.Provider
}

func NewDownloadHandler(
	orch *orchestrator.Orchestrator,
	streamer *stream.Streamer,
	st store.Store,
	paths *security.PathValidator,
	files *storage.Provider,
) *DownloadHandler {
	return &DownloadHandler{orch: orch, streamer: streamer, store: st, paths: paths, files: files}
}

func (h *DownloadHandler) StartVideo(c echo.Context) error {
	return h.start(c, job.TypeVideo)
}

func (h *DownloadHandler) StartAudio(c echo.Context) error {
	return h.start(c, job.TypeAudio)
}

func (h *DownloadHandler) start(c echo.Context, t job.MediaType) error {
	url := c.FormValue("url")
	quality := c.FormValue("quality")
	cookies := c.FormValue("cookies")

	var (
		id  string
		err error
	)
	if t == job.TypeAudio {
		id, err = h.orch.StartAudio(c.Request().Context(), url, quality, cookies, c.RealIP())
	} else {
		id, err = h.orch.StartVideo(c.Request().Context(), url, quality, cookies, c.RealIP())
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"job_id": id})
}

// Progress streams job progress as server-sent events. One line per
// state change: a bare percentage, "100.0|<file>" on completion, or
// "ERROR:<message>" on failure. The stream closes after a terminal
// line.
func (h *DownloadHandler) Progress(c echo.Context) error {
	jobID := c.Param("job_id")
	res := c.Response()

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	events := h.streamer.Stream(c.Request().Context(), jobID)
	for ev := range events {
		var line string
		switch ev.Kind {
		case stream.KindDone:
			line = "100.0|" + ev.FileName
		case stream.KindError:
			line = "ERROR:" + ev.Message
		default:
			line = strconv.FormatFloat(ev.Progress, 'f', 1, 64)
		}
		if _, err := fmt.Fprintf(res, "data:%s\n\n", line); err != nil {
			return nil
		}
		res.Flush()
	}
	return nil
}

// File serves a finished job's file as an attachment. The stored path
// is re-validated against the download root before any byte leaves the
// server.
func (h *DownloadHandler) File(c echo.Context) error {
	jobID := c.Param("job_id")

	j, err := h.store.Get(c.Request().Context(), jobID)
	if err != nil {
		return writeError(c, err)
	}
	if j.Status != job.StatusDone || j.FilePath == "" {
		return response.Error(c, http.StatusNotFound, "File not ready")
	}

	path, err := h.paths.Resolve(j.FilePath)
	if err != nil {
		log.Warn().Str("job_id", jobID).Str("path", j.FilePath).Msg("blocked file access outside download root")
		return writeError(c, err)
	}

	f, meta, err := h.files.Open(path)
	if err != nil {
		return response.Error(c, http.StatusNotFound, "File not found")
	}
	defer f.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, meta.ContentType)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": j.FileName})
	res.Header().Set(echo.HeaderContentDisposition, disposition)
	http.ServeContent(res, c.Request(), j.FileName, meta.ModTime, f)
	return nil
}

// Delete cancels the job if still active, removes its file and its
// record.
func (h *DownloadHandler) Delete(c echo.Context) error {
	jobID := c.Param("job_id")

	if err := h.orch.Delete(c.Request().Context(), jobID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "deleted",
		"job_id": jobID,
	})
}
