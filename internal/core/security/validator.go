package security

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/LegendarySumit/MediaDL/internal/core/job"
)

const (
	maxURLLength   = 2000
	maxCookieBytes = 100 * 1024
)

// ValidationError covers every pre-dispatch input rejection: bad URL,
// unsupported platform, quality outside the whitelist, oversized cookies.
// It is surfaced synchronously with no job side effects.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

var urlPattern = regexp.MustCompile(
	`^https?://(?:www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b(?:[-a-zA-Z0-9()@:%_\+.~#?&/=]*)$`,
)

// Substrings that indicate a local or internal target. Checked before the
// platform allowlist so SSRF attempts are rejected outright.
var blockedPatterns = []string{
	"localhost",
	"127.0",
	"192.168",
	"10.0",
	"172.16",
	"0.0.0",
	"file://",
	"ftp://",
}

var allowedDomains = []string{
	"youtube.com",
	"youtu.be",
	"instagram.com",
	"tiktok.com",
	"twitter.com",
	"x.com",
	"facebook.com",
	"fb.watch",
	"vimeo.com",
	"dailymotion.com",
}

var videoQualities = map[string]bool{"144": true, "360": true, "720": true, "1080": true}
var audioQualities = map[string]bool{"192": true, "256": true, "320": true}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return invalid("url", "url is required")
	}
	if len(raw) > maxURLLength {
		return invalid("url", "url exceeds maximum length")
	}

	lower := strings.ToLower(raw)
	for _, pattern := range blockedPatterns {
		if strings.Contains(lower, pattern) {
			log.Warn().Str("url", truncate(raw, 50)).Msg("blocked SSRF attempt")
			return invalid("url", "url not allowed")
		}
	}

	if !urlPattern.MatchString(raw) {
		return invalid("url", "invalid url format")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return invalid("url", "invalid url format")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return invalid("url", "only http and https are supported")
	}

	for _, domain := range allowedDomains {
		if strings.Contains(lower, domain) {
			return nil
		}
	}
	log.Warn().Str("url", truncate(raw, 50)).Msg("url from unsupported platform")
	return invalid("url", "platform not supported")
}

func (v *Validator) ValidateQuality(t job.MediaType, quality string) error {
	switch t {
	case job.TypeVideo:
		if !videoQualities[quality] {
			return invalid("quality", "video quality must be one of 144, 360, 720, 1080")
		}
	case job.TypeAudio:
		if !audioQualities[quality] {
			return invalid("quality", "audio quality must be one of 192, 256, 320")
		}
	default:
		return invalid("type", "unknown media type")
	}
	return nil
}

func (v *Validator) ValidateCookies(cookies string) error {
	if len(cookies) > maxCookieBytes {
		return invalid("cookies", "cookie payload exceeds 100KB")
	}
	return nil
}

// DetectPlatform derives the source platform from a URL.
func DetectPlatform(rawURL string) job.Platform {
	lower := strings.ToLower(rawURL)

	switch {
	case strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be"):
		return job.PlatformYouTube
	case strings.Contains(lower, "instagram.com"):
		return job.PlatformInstagram
	case strings.Contains(lower, "tiktok.com"):
		return job.PlatformTikTok
	case strings.Contains(lower, "twitter.com") || strings.Contains(lower, "x.com"):
		return job.PlatformTwitter
	case strings.Contains(lower, "facebook.com") || strings.Contains(lower, "fb.watch"):
		return job.PlatformFacebook
	}
	return job.PlatformOther
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
