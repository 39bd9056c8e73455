package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Analysis service
	APIURL string

	// Local state
	HistoryPath string
	LogPath     string

	// Playback / rendering
	Volume float64 // initial volume, 0.0-1.0
	FPS    int     // waveform refresh rate while playing
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	cfg := Config{
		APIURL:      envStr("BEATSCOPE_API_URL", "http://localhost:8000"),
		HistoryPath: envStr("BEATSCOPE_HISTORY_PATH", defaultHistoryPath()),
		LogPath:     envStr("BEATSCOPE_LOG", ""),
		Volume:      envFloat("BEATSCOPE_VOLUME", 1.0),
		FPS:         envInt("BEATSCOPE_FPS", 30),
	}

	if cfg.Volume < 0 {
		cfg.Volume = 0
	} else if cfg.Volume > 1 {
		cfg.Volume = 1
	}
	if cfg.FPS < 10 {
		cfg.FPS = 10
	} else if cfg.FPS > 60 {
		cfg.FPS = 60
	}

	return cfg
}

// defaultHistoryPath places the history log under the user config directory,
// falling back to the working directory when that cannot be resolved.
func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "beatscope-history.json"
	}
	return filepath.Join(dir, "beatscope", "history.json")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
