package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LegendarySumit/MediaDL/internal/core/job"
)

func TestValidateURL(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", false},
		{"instagram reel", "https://www.instagram.com/reel/Cabc123/", false},
		{"tiktok", "https://www.tiktok.com/@user/video/1234567890", false},
		{"twitter", "https://twitter.com/user/status/123", false},
		{"x.com", "https://x.com/user/status/123", false},
		{"facebook", "https://www.facebook.com/watch/?v=123", false},
		{"vimeo", "https://vimeo.com/12345678", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"plain host", "https://example.com/video", true},
		{"localhost", "http://localhost:8080/admin", true},
		{"loopback ip", "http://127.0.0.1/metadata", true},
		{"private 192 range", "http://192.168.1.1/router", true},
		{"private 10 range", "http://10.0.0.5/internal", true},
		{"private 172 range", "http://172.16.0.1/internal", true},
		{"file scheme", "file:///etc/passwd", true},
		{"ftp scheme", "ftp://ftp.example.com/file", true},
		{"no scheme", "www.youtube.com/watch?v=abc", true},
		{"too long", "https://www.youtube.com/watch?v=" + strings.Repeat("a", 2001), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateQuality(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		typ     job.MediaType
		quality string
		wantErr bool
	}{
		{"video 144", job.TypeVideo, "144", false},
		{"video 720", job.TypeVideo, "720", false},
		{"video 1080", job.TypeVideo, "1080", false},
		{"video 4k rejected", job.TypeVideo, "2160", true},
		{"video arbitrary", job.TypeVideo, "999", true},
		{"video empty", job.TypeVideo, "", true},
		{"video injection", job.TypeVideo, "720; rm -rf /", true},
		{"audio 192", job.TypeAudio, "192", false},
		{"audio 320", job.TypeAudio, "320", false},
		{"audio 128 rejected", job.TypeAudio, "128", true},
		{"audio takes video quality", job.TypeAudio, "720", true},
		{"unknown type", job.MediaType("image"), "720", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateQuality(tt.typ, tt.quality)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCookies(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateCookies(""))
	assert.NoError(t, v.ValidateCookies("# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tname\tvalue"))
	assert.NoError(t, v.ValidateCookies(strings.Repeat("a", 100*1024)))
	assert.Error(t, v.ValidateCookies(strings.Repeat("a", 100*1024+1)))
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		platform job.Platform
	}{
		{"https://www.youtube.com/watch?v=abc", job.PlatformYouTube},
		{"https://youtu.be/abc", job.PlatformYouTube},
		{"https://www.instagram.com/reel/abc/", job.PlatformInstagram},
		{"https://www.tiktok.com/@user/video/1", job.PlatformTikTok},
		{"https://twitter.com/u/status/1", job.PlatformTwitter},
		{"https://x.com/u/status/1", job.PlatformTwitter},
		{"https://fb.watch/abc/", job.PlatformFacebook},
		{"https://vimeo.com/123", job.PlatformOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.platform, DetectPlatform(tt.url), tt.url)
	}
}
