package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/core/engine"
)

var progressRe = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%`)

// runDownload executes yt-dlp and tracks progress line by line. The final
// output path arrives on stdout via --print after_move:filepath.
func runDownload(ctx context.Context, binary string, req engine.Request, progress engine.ProgressFunc) (engine.Result, error) {
	args := buildArgs(req)

	cmd := exec.CommandContext(ctx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return engine.Result{}, fmt.Errorf("pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return engine.Result{}, fmt.Errorf("start yt-dlp: %w", err)
	}

	var outputPath, lastError string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		log.Debug().Str("job_id", req.JobID).Str("ytdlp", line).Msg("yt-dlp output")

		if pct, ok := parseProgressLine(line); ok && progress != nil {
			progress(pct)
			continue
		}
		if strings.HasPrefix(line, "ERROR:") {
			lastError = strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
			continue
		}
		// The printed filepath is the only bare absolute path on stdout.
		if strings.HasPrefix(line, req.OutputDir) {
			outputPath = line
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return engine.Result{}, ctx.Err()
		}
		if lastError != "" {
			return engine.Result{}, errors.New(lastError)
		}
		return engine.Result{}, fmt.Errorf("yt-dlp exit: %w", err)
	}

	if outputPath == "" {
		return engine.Result{}, errors.New("download finished but no output file was reported")
	}
	return engine.Result{FilePath: outputPath}, nil
}

func parseProgressLine(line string) (float64, bool) {
	matches := progressRe.FindStringSubmatch(line)
	if len(matches) < 2 {
		return 0, false
	}
	pct, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}
