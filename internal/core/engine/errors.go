package engine

import "strings"

// Raw engine output mapped to messages safe to show a caller. Matching is
// case-insensitive substring, first hit wins. Anything unmatched falls
// through to a generic message so stack traces and paths never surface.
var errorMessages = []struct {
	pattern string
	message string
}{
	{"requested format not available", "The requested quality is not available for this video. Try a different quality."},
	{"no video formats found", "Could not find any downloadable formats for this video."},
	{"unable to download video data", "Failed to download video data. The video may be private, deleted, or geoblocked."},
	{"video unavailable", "This video is no longer available."},
	{"sign in to confirm your age", "This video is age-restricted and cannot be downloaded."},
	{"drm", "This content is DRM protected and cannot be downloaded."},
	{"http error 403", "Access denied. The video may be restricted in your region."},
	{"http error 404", "Video not found (404)."},
	{"connection refused", "Could not connect to the server. Check your internet connection."},
	{"read timed out", "Download took too long. Try again with a smaller video or different quality."},
	{"timeout", "Connection timed out. Try again or check your internet speed."},
	{"unsupported url", "This URL is not supported."},
	{"invalid url", "The URL is not valid. Please check and try again."},
	{"file is larger than max", "The file exceeds the maximum allowed download size."},
}

const genericFailure = "Download failed. Please try again."

// HumanMessage converts a raw adapter error into a sanitized,
// user-facing message.
func HumanMessage(raw string) string {
	lower := strings.ToLower(raw)
	for _, m := range errorMessages {
		if strings.Contains(lower, m.pattern) {
			return m.message
		}
	}
	return genericFailure
}
