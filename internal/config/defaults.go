package config

import (
	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"server.host": "0.0.0.0",
		"server.port": 8001,

		"download.dir":            "/data/mediadl/downloads",
		"download.max_size_gb":    50.0,
		"download.video_quality":  "720",
		"download.audio_quality":  "192",
		"download.max_concurrent": 2,
		"download.max_queue":      50,

		"store.path":    "/data/mediadl/jobs",
		"store.job_ttl": "24h",

		"engine.binary": "yt-dlp",

		"stream.poll_interval": "300ms",
		"stream.stuck_timeout": "45s",
		"stream.max_duration":  "10m",

		"cleanup.age":              "168h",
		"cleanup.interval":         "1h",
		"cleanup.min_disk_free_gb": 1.0,

		"limits.video_per_minute":   5,
		"limits.audio_per_minute":   10,
		"limits.default_per_minute": 15,

		"retry.max": 3,

		"logging.level": "info",
	}

	for key, val := range defaults {
		k.Set(key, val)
	}
	return nil
}
