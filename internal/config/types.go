// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// FileConfig is the on-disk representation (YAML or TOML). Durations are
// strings in Go duration format; pointers distinguish unset from zero.
type FileConfig struct {
	Relay                 RelayFile     `yaml:"relay,omitempty" toml:"relay"`
	Locator               LocatorFile   `yaml:"locator,omitempty" toml:"locator"`
	Ingest                IngestFile    `yaml:"ingest,omitempty" toml:"ingest"`
	Store                 StoreFile     `yaml:"store,omitempty" toml:"store"`
	FFmpeg                FFmpegFile    `yaml:"ffmpeg,omitempty" toml:"ffmpeg"`
	API                   APIFile       `yaml:"api,omitempty" toml:"api"`
	Log                   LogFile       `yaml:"log,omitempty" toml:"log"`
	Telemetry             TelemetryFile `yaml:"telemetry,omitempty" toml:"telemetry"`
	Proxy                 string        `yaml:"proxy,omitempty" toml:"proxy"`
	Autostart             *bool         `yaml:"autostart,omitempty" toml:"autostart"`
	RestartOnConfigChange *bool         `yaml:"restart_on_config_change,omitempty" toml:"restart_on_config_change"`
}

type RelayFile struct {
	Candidates     CandidateList `yaml:"candidates,omitempty" toml:"candidates"`
	StandbyAsset   string        `yaml:"standby_asset,omitempty" toml:"standby_asset"`
	RescanInterval string        `yaml:"rescan_interval,omitempty" toml:"rescan_interval"`
}

type LocatorFile struct {
	Backend          string            `yaml:"backend,omitempty" toml:"backend"`
	URLTemplate      string            `yaml:"url_template,omitempty" toml:"url_template"`
	StreamlinkBin    string            `yaml:"streamlink_bin,omitempty" toml:"streamlink_bin"`
	Quality          string            `yaml:"quality,omitempty" toml:"quality"`
	Headers          map[string]string `yaml:"headers,omitempty" toml:"headers"`
	Endpoint         string            `yaml:"endpoint,omitempty" toml:"endpoint"`
	Timeout          string            `yaml:"timeout,omitempty" toml:"timeout"`
	Rate             *float64          `yaml:"rate,omitempty" toml:"rate"`
	Burst            *int              `yaml:"burst,omitempty" toml:"burst"`
	BreakerThreshold *int              `yaml:"breaker_threshold,omitempty" toml:"breaker_threshold"`
	BreakerCooldown  string            `yaml:"breaker_cooldown,omitempty" toml:"breaker_cooldown"`
}

type IngestFile struct {
	Provider    string        `yaml:"provider,omitempty" toml:"provider"`
	APIBase     string        `yaml:"api_base,omitempty" toml:"api_base"`
	Token       string        `yaml:"token,omitempty" toml:"token"`
	TokenFile   string        `yaml:"token_file,omitempty" toml:"token_file"`
	Timeout     string        `yaml:"timeout,omitempty" toml:"timeout"`
	StreamTitle string        `yaml:"stream_title,omitempty" toml:"stream_title"`
	Broadcast   BroadcastFile `yaml:"broadcast,omitempty" toml:"broadcast"`
}

type BroadcastFile struct {
	Title       string `yaml:"title,omitempty" toml:"title"`
	Description string `yaml:"description,omitempty" toml:"description"`
	CategoryID  string `yaml:"category_id,omitempty" toml:"category_id"`
	Privacy     string `yaml:"privacy,omitempty" toml:"privacy"`
	AutoStart   *bool  `yaml:"auto_start,omitempty" toml:"auto_start"`
	AutoStop    *bool  `yaml:"auto_stop,omitempty" toml:"auto_stop"`
	MadeForKids *bool  `yaml:"made_for_kids,omitempty" toml:"made_for_kids"`
}

type StoreFile struct {
	Backend       string `yaml:"backend,omitempty" toml:"backend"`
	Path          string `yaml:"path,omitempty" toml:"path"`
	Key           string `yaml:"key,omitempty" toml:"key"`
	RedisAddr     string `yaml:"redis_addr,omitempty" toml:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty" toml:"redis_password"`
	RedisDB       *int   `yaml:"redis_db,omitempty" toml:"redis_db"`
}

type FFmpegFile struct {
	Bin              string                 `yaml:"bin,omitempty" toml:"bin"`
	Encoders         CandidateList          `yaml:"encoders,omitempty" toml:"encoders"`
	Bitrate          string                 `yaml:"bitrate,omitempty" toml:"bitrate"`
	BufSize          string                 `yaml:"bufsize,omitempty" toml:"bufsize"`
	KeyframeInterval *int                   `yaml:"keyframe_interval,omitempty" toml:"keyframe_interval"`
	Audio            AudioFile              `yaml:"audio,omitempty" toml:"audio"`
	Profiles         map[string]ProfileFile `yaml:"profiles,omitempty" toml:"profiles"`
	GracePeriod      string                 `yaml:"grace_period,omitempty" toml:"grace_period"`
	KillTimeout      string                 `yaml:"kill_timeout,omitempty" toml:"kill_timeout"`
}

type AudioFile struct {
	Codec      string `yaml:"codec,omitempty" toml:"codec"`
	Bitrate    string `yaml:"bitrate,omitempty" toml:"bitrate"`
	SampleRate *int   `yaml:"sample_rate,omitempty" toml:"sample_rate"`
}

type ProfileFile struct {
	Capability  string `yaml:"capability,omitempty" toml:"capability"`
	Codec       string `yaml:"codec,omitempty" toml:"codec"`
	Preset      string `yaml:"preset,omitempty" toml:"preset"`
	Threads     int    `yaml:"threads,omitempty" toml:"threads"`
	PixelFormat string `yaml:"pix_fmt,omitempty" toml:"pix_fmt"`
}

type APIFile struct {
	Listen     string `yaml:"listen,omitempty" toml:"listen"`
	Token      string `yaml:"token,omitempty" toml:"token"`
	RateLimit  *int   `yaml:"rate_limit,omitempty" toml:"rate_limit"`
	RateWindow string `yaml:"rate_window,omitempty" toml:"rate_window"`
}

type LogFile struct {
	Level  string `yaml:"level,omitempty" toml:"level"`
	Format string `yaml:"format,omitempty" toml:"format"`
}

type TelemetryFile struct {
	Enabled      *bool    `yaml:"enabled,omitempty" toml:"enabled"`
	Exporter     string   `yaml:"exporter,omitempty" toml:"exporter"`
	Endpoint     string   `yaml:"endpoint,omitempty" toml:"endpoint"`
	SamplingRate *float64 `yaml:"sampling_rate,omitempty" toml:"sampling_rate"`
	Insecure     *bool    `yaml:"insecure,omitempty" toml:"insecure"`
}

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version    string
	ConfigPath string

	Relay     RelayConfig
	Locator   LocatorConfig
	Ingest    IngestConfig
	Store     StoreConfig
	FFmpeg    FFmpegConfig
	API       APIConfig
	Log       LogConfig
	Telemetry TelemetryConfig

	// Proxy is the optional network proxy for source fetches.
	Proxy                 string
	Autostart             bool
	RestartOnConfigChange bool
}

type RelayConfig struct {
	// Candidates are identifiers in scan order, already normalized.
	Candidates     []string
	StandbyAsset   string
	RescanInterval time.Duration
}

type LocatorConfig struct {
	Backend          string // "streamlink" or "http"
	URLTemplate      string // "{id}" is replaced with the candidate identifier
	StreamlinkBin    string
	Quality          string
	Headers          map[string]string
	Endpoint         string
	Timeout          time.Duration
	Rate             float64 // lookups per second
	Burst            int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

type IngestConfig struct {
	Provider    string
	APIBase     string
	Token       string
	TokenFile   string
	Timeout     time.Duration
	StreamTitle string
	Broadcast   BroadcastConfig
}

// BroadcastConfig is passed to the provider verbatim.
type BroadcastConfig struct {
	Title       string
	Description string
	CategoryID  string
	Privacy     string
	AutoStart   bool
	AutoStop    bool
	MadeForKids bool
}

type StoreConfig struct {
	Backend       string // "file", "redis", "sqlite", "badger", "memory"
	Path          string
	Key           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type FFmpegConfig struct {
	Bin              string
	Encoders         []string
	Bitrate          string
	BufSize          string
	KeyframeInterval int
	AudioCodec       string
	AudioBitrate     string
	AudioSampleRate  int
	Profiles         map[string]ProfileConfig
	GracePeriod      time.Duration
	KillTimeout      time.Duration
}

type ProfileConfig struct {
	Capability  string
	Codec       string
	Preset      string
	Threads     int
	PixelFormat string
}

type APIConfig struct {
	Listen     string
	Token      string
	RateLimit  int
	RateWindow time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
	Insecure     bool
}
