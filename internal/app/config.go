package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"
)

// DefaultUserAgent is the desktop identity shared by the browser session
// and the asset fetcher.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds all application configuration.
type Config struct {
	Browser   BrowserConfig   `koanf:"browser" validate:"required"`
	Capture   CaptureConfig   `koanf:"capture" validate:"required"`
	Fetch     FetchConfig     `koanf:"fetch" validate:"required"`
	Transcode TranscodeConfig `koanf:"transcode" validate:"required"`
	Storage   StorageConfig   `koanf:"storage" validate:"required"`
	Pool      PoolConfig      `koanf:"pool" validate:"required"`
	Ledger    LedgerConfig    `koanf:"ledger" validate:"required"`
}

// BrowserConfig holds settings for the headless browser session.
type BrowserConfig struct {
	ChromePath    string        `koanf:"chrome_path"`
	SkipProvision bool          `koanf:"skip_provision"`
	Headless      bool          `koanf:"headless"`
	NoSandbox     bool          `koanf:"no_sandbox"`
	UserAgent     string        `koanf:"user_agent" validate:"required"`
	Width         int           `koanf:"width" validate:"gt=0"`
	Height        int           `koanf:"height" validate:"gt=0"`
	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
	Settle        time.Duration `koanf:"settle" validate:"gte=0"`
	Drain         time.Duration `koanf:"drain" validate:"gt=0"`
	Cookies       string        `koanf:"cookies"`
	CookieDomain  string        `koanf:"cookie_domain"`
	SnapshotDir   string        `koanf:"snapshot_dir"`
}

// CaptureConfig holds settings for signal collection.
type CaptureConfig struct {
	APIPatterns    []string `koanf:"api_patterns" validate:"required,min=1"`
	MaxDepth       int      `koanf:"max_depth" validate:"gt=0"`
	StaticFallback bool     `koanf:"static_fallback"`
}

// FetchConfig holds settings for asset downloads.
type FetchConfig struct {
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
	HLSTimeout time.Duration `koanf:"hls_timeout" validate:"gt=0"`
	UserAgent  string        `koanf:"user_agent" validate:"required"`
	Referer    string        `koanf:"referer"`
	ChromeTLS  bool          `koanf:"chrome_tls"`
}

// TranscodeConfig holds ffmpeg settings for the normalization pipeline.
type TranscodeConfig struct {
	FFmpegPath    string          `koanf:"ffmpeg_path" validate:"required"`
	FFprobePath   string          `koanf:"ffprobe_path" validate:"required"`
	ProbeTimeout  time.Duration   `koanf:"probe_timeout" validate:"gt=0"`
	EncodeTimeout time.Duration   `koanf:"encode_timeout" validate:"gt=0"`
	ScalePolicy   string          `koanf:"scale_policy" validate:"oneof=preserve upscale"`
	MinHeight     int             `koanf:"min_height" validate:"gt=0"`
	VideoCodec    string          `koanf:"video_codec" validate:"required"`
	Preset        string          `koanf:"preset" validate:"required"`
	CRF           int             `koanf:"crf" validate:"gte=0,lte=51"`
	Profile       string          `koanf:"profile" validate:"required"`
	Level         string          `koanf:"level" validate:"required"`
	PixelFormat   string          `koanf:"pixel_format" validate:"required"`
	AudioCodec    string          `koanf:"audio_codec" validate:"required"`
	AudioBitrate  string          `koanf:"audio_bitrate" validate:"required"`
	Watermark     WatermarkConfig `koanf:"watermark"`
}

// WatermarkConfig describes the corner logo to remove.
type WatermarkConfig struct {
	Enabled bool    `koanf:"enabled"`
	Corner  string  `koanf:"corner" validate:"oneof=bottom-right bottom-left top-right top-left"`
	Ratio   float64 `koanf:"ratio" validate:"gt=0,lt=1"`
	Inset   int     `koanf:"inset" validate:"gte=0"`
}

// StorageConfig holds output directory and retention settings.
type StorageConfig struct {
	Dir        string        `koanf:"dir" validate:"required"`
	MaxAge     time.Duration `koanf:"max_age" validate:"gt=0"`
	SweepEvery time.Duration `koanf:"sweep_every" validate:"gt=0"`
}

// PoolConfig bounds concurrent work.
type PoolConfig struct {
	Sessions int `koanf:"sessions" validate:"gte=1"`
	Encoders int `koanf:"encoders" validate:"gte=1"`
}

// LedgerConfig holds per-user download accounting settings.
type LedgerConfig struct {
	Path      string `koanf:"path" validate:"required"`
	FreeLimit int    `koanf:"free_limit" validate:"gte=0"`
}

// Default returns the configuration used when no file overrides a value.
func Default() Config {
	return Config{
		Browser: BrowserConfig{
			Headless:  true,
			NoSandbox: true,
			UserAgent: DefaultUserAgent,
			Width:     1920,
			Height:    1080,
			Timeout:   30 * time.Second,
			Settle:    5 * time.Second,
			Drain:     5 * time.Second,
		},
		Capture: CaptureConfig{
			APIPatterns:    []string{"item", "detail", "video", "media"},
			MaxDepth:       32,
			StaticFallback: true,
		},
		Fetch: FetchConfig{
			Timeout:    5 * time.Minute,
			HLSTimeout: 15 * time.Second,
			UserAgent:  DefaultUserAgent,
		},
		Transcode: TranscodeConfig{
			FFmpegPath:    "ffmpeg",
			FFprobePath:   "ffprobe",
			ProbeTimeout:  30 * time.Second,
			EncodeTimeout: 10 * time.Minute,
			ScalePolicy:   "preserve",
			MinHeight:     720,
			VideoCodec:    "libx264",
			Preset:        "medium",
			CRF:           20,
			Profile:       "high",
			Level:         "4.0",
			PixelFormat:   "yuv420p",
			AudioCodec:    "aac",
			AudioBitrate:  "192k",
			Watermark: WatermarkConfig{
				Corner: "bottom-right",
				Ratio:  0.15,
				Inset:  10,
			},
		},
		Storage: StorageConfig{
			Dir:        "downloads",
			MaxAge:     24 * time.Hour,
			SweepEvery: time.Hour,
		},
		Pool: PoolConfig{
			Sessions: 2,
			Encoders: 1,
		},
		Ledger: LedgerConfig{
			Path:      "data/ledger.json",
			FreeLimit: 20,
		},
	}
}

// Load reads configuration from a YAML file on top of Default and validates
// the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	k := koanf.New(".")

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("config file not found, using defaults", "path", path)
	} else if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct constraints of the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
