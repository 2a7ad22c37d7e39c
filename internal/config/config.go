package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	API     APIConfig     `yaml:"api"`
	Models  ModelsConfig  `yaml:"models"`
	Camera  CameraConfig  `yaml:"camera"`
	Matcher MatcherConfig `yaml:"matcher"`
	Server  ServerConfig  `yaml:"server"`
}

type APIConfig struct {
	URL            string `yaml:"url"`             // portal origin without the /api suffix
	TimeoutSeconds int    `yaml:"timeout_seconds"` // defaults to 20
	TokenFile      string `yaml:"token_file"`      // defaults to <user config dir>/yoga-kiosk/token
	CaptureDir     string `yaml:"-"`
}

// BaseURL returns the API root every endpoint path is resolved against.
func (c *APIConfig) BaseURL() string {
	return strings.TrimRight(c.URL, "/") + "/api"
}

// Timeout returns the per-request timeout.
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type ModelsConfig struct {
	Dir string `yaml:"dir"`
}

type CameraConfig struct {
	Device       int `yaml:"device"`
	FrameMaxSize int `yaml:"frame_max_size"` // frames are downscaled to fit before detection
}

type MatcherConfig struct {
	Threshold float64 `yaml:"threshold"` // lower = stricter
	TieBreak  string  `yaml:"tie_break"` // first-enrolled or lowest-id
	Aggregate string  `yaml:"aggregate"` // min or mean
	Index     string  `yaml:"index"`     // linear or hnsw
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"` // comma-separated, besides localhost
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat is envInt for positive floats.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".kiosk-token"
	}
	return filepath.Join(dir, "yoga-kiosk", "token")
}

func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg.API.URL = envString("API_URL", cfg.API.URL)
	cfg.API.TimeoutSeconds = envInt("API_TIMEOUT_SECONDS", cfg.API.TimeoutSeconds)
	cfg.API.TokenFile = envString("TOKEN_FILE", cfg.API.TokenFile)
	if cfg.API.TokenFile == "" {
		cfg.API.TokenFile = defaultTokenFile()
	}
	cfg.API.CaptureDir = os.Getenv("API_CAPTURE_DIR")

	cfg.Models.Dir = envString("MODELS_DIR", cfg.Models.Dir)

	cfg.Camera.Device = envInt("CAMERA_DEVICE", cfg.Camera.Device)
	cfg.Camera.FrameMaxSize = envInt("FRAME_MAX_SIZE", cfg.Camera.FrameMaxSize)

	cfg.Matcher.Threshold = envFloat("MATCH_THRESHOLD", cfg.Matcher.Threshold)
	cfg.Matcher.TieBreak = envString("MATCH_TIE_BREAK", cfg.Matcher.TieBreak)
	cfg.Matcher.Aggregate = envString("MATCH_AGGREGATE", cfg.Matcher.Aggregate)
	cfg.Matcher.Index = envString("MATCH_INDEX", cfg.Matcher.Index)

	cfg.Server.Host = envString("KIOSK_HOST", cfg.Server.Host)
	cfg.Server.Port = envInt("KIOSK_PORT", cfg.Server.Port)
	cfg.Server.AllowedOrigins = envString("KIOSK_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	return &cfg
}
