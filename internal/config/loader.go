// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ManuGH/relay247/internal/log"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
	}
}

// Path returns the config file path, empty when running from env only.
func (l *Loader) Path() string {
	return l.configPath
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file parse -> env overrides -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	logSource(log.WithComponent("config"), l.configPath)

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)
	cfg.Version = l.version
	cfg.ConfigPath = l.configPath

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Relay: RelayConfig{
			RescanInterval: 60 * time.Second,
		},
		Locator: LocatorConfig{
			Backend:          "streamlink",
			URLTemplate:      "https://live.douyin.com/{id}",
			StreamlinkBin:    "streamlink",
			Quality:          "best",
			Timeout:          20 * time.Second,
			Rate:             1,
			Burst:            3,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Ingest: IngestConfig{
			Provider:    "youtube",
			APIBase:     "https://www.googleapis.com/youtube/v3",
			Timeout:     15 * time.Second,
			StreamTitle: "relay247 ingest",
			Broadcast: BroadcastConfig{
				Title:      "24/7 Live",
				CategoryID: "24",
				Privacy:    "private",
				AutoStart:  true,
			},
		},
		Store: StoreConfig{
			Backend: "file",
			Path:    "stream_info.json",
			Key:     "relay247:ingest",
		},
		FFmpeg: FFmpegConfig{
			Bin:              "ffmpeg",
			Encoders:         []string{"copy", "nvenc", "qsv", "cpu"},
			Bitrate:          "4000k",
			BufSize:          "8000k",
			KeyframeInterval: 120,
			AudioCodec:       "copy",
			AudioBitrate:     "128k",
			AudioSampleRate:  44100,
			GracePeriod:      5 * time.Second,
			KillTimeout:      5 * time.Second,
		},
		API: APIConfig{
			Listen:     ":8088",
			RateLimit:  10,
			RateWindow: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		Autostart: true,
	}
}

// loadFile loads configuration from a YAML or TOML file with STRICT parsing.
// Unknown fields cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".toml":
		return decodeTOML(data)
	default:
		return nil, fmt.Errorf("%w: %s (yaml or toml)", ErrUnsupportedFormat, ext)
	}
}

func decodeYAML(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, ErrMultipleDocuments
	}
	return &fileCfg, nil
}

func decodeTOML(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	md, err := toml.Decode(string(data), &fileCfg)
	if err != nil {
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("strict config parse error: %w: %s", ErrUnknownConfigField, strings.Join(keys, ", "))
	}
	return &fileCfg, nil
}

// LoadFileConfig loads a config file without applying defaults or env overrides.
func LoadFileConfig(path string) (*FileConfig, error) {
	return NewLoader(path, "").loadFile(path)
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	var errs []error
	dur := func(field, value string, target *time.Duration) {
		d, err := parseFileDuration(field, value, *target)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*target = d
	}
	str := func(value string, target *string) {
		if strings.TrimSpace(value) != "" {
			*target = value
		}
	}

	// Relay
	if len(src.Relay.Candidates) > 0 {
		dst.Relay.Candidates = []string(src.Relay.Candidates)
	}
	str(src.Relay.StandbyAsset, &dst.Relay.StandbyAsset)
	dur("relay.rescan_interval", src.Relay.RescanInterval, &dst.Relay.RescanInterval)

	// Locator
	str(src.Locator.Backend, &dst.Locator.Backend)
	str(src.Locator.URLTemplate, &dst.Locator.URLTemplate)
	str(src.Locator.StreamlinkBin, &dst.Locator.StreamlinkBin)
	str(src.Locator.Quality, &dst.Locator.Quality)
	str(src.Locator.Endpoint, &dst.Locator.Endpoint)
	if len(src.Locator.Headers) > 0 {
		dst.Locator.Headers = make(map[string]string, len(src.Locator.Headers))
		for k, v := range src.Locator.Headers {
			dst.Locator.Headers[k] = v
		}
	}
	dur("locator.timeout", src.Locator.Timeout, &dst.Locator.Timeout)
	dur("locator.breaker_cooldown", src.Locator.BreakerCooldown, &dst.Locator.BreakerCooldown)
	if src.Locator.Rate != nil {
		dst.Locator.Rate = *src.Locator.Rate
	}
	if src.Locator.Burst != nil {
		dst.Locator.Burst = *src.Locator.Burst
	}
	if src.Locator.BreakerThreshold != nil {
		dst.Locator.BreakerThreshold = *src.Locator.BreakerThreshold
	}

	// Ingest
	str(src.Ingest.Provider, &dst.Ingest.Provider)
	str(src.Ingest.APIBase, &dst.Ingest.APIBase)
	str(src.Ingest.Token, &dst.Ingest.Token)
	str(src.Ingest.TokenFile, &dst.Ingest.TokenFile)
	str(src.Ingest.StreamTitle, &dst.Ingest.StreamTitle)
	dur("ingest.timeout", src.Ingest.Timeout, &dst.Ingest.Timeout)
	b := src.Ingest.Broadcast
	str(b.Title, &dst.Ingest.Broadcast.Title)
	if b.Description != "" {
		dst.Ingest.Broadcast.Description = b.Description
	}
	str(b.CategoryID, &dst.Ingest.Broadcast.CategoryID)
	str(b.Privacy, &dst.Ingest.Broadcast.Privacy)
	if b.AutoStart != nil {
		dst.Ingest.Broadcast.AutoStart = *b.AutoStart
	}
	if b.AutoStop != nil {
		dst.Ingest.Broadcast.AutoStop = *b.AutoStop
	}
	if b.MadeForKids != nil {
		dst.Ingest.Broadcast.MadeForKids = *b.MadeForKids
	}

	// Store
	str(src.Store.Backend, &dst.Store.Backend)
	str(src.Store.Path, &dst.Store.Path)
	str(src.Store.Key, &dst.Store.Key)
	str(src.Store.RedisAddr, &dst.Store.RedisAddr)
	str(src.Store.RedisPassword, &dst.Store.RedisPassword)
	if src.Store.RedisDB != nil {
		dst.Store.RedisDB = *src.Store.RedisDB
	}

	// FFmpeg
	f := src.FFmpeg
	str(f.Bin, &dst.FFmpeg.Bin)
	if len(f.Encoders) > 0 {
		dst.FFmpeg.Encoders = []string(f.Encoders)
	}
	str(f.Bitrate, &dst.FFmpeg.Bitrate)
	str(f.BufSize, &dst.FFmpeg.BufSize)
	if f.KeyframeInterval != nil {
		dst.FFmpeg.KeyframeInterval = *f.KeyframeInterval
	}
	str(f.Audio.Codec, &dst.FFmpeg.AudioCodec)
	str(f.Audio.Bitrate, &dst.FFmpeg.AudioBitrate)
	if f.Audio.SampleRate != nil {
		dst.FFmpeg.AudioSampleRate = *f.Audio.SampleRate
	}
	if len(f.Profiles) > 0 {
		dst.FFmpeg.Profiles = make(map[string]ProfileConfig, len(f.Profiles))
		for name, p := range f.Profiles {
			dst.FFmpeg.Profiles[strings.ToLower(strings.TrimSpace(name))] = ProfileConfig(p)
		}
	}
	dur("ffmpeg.grace_period", f.GracePeriod, &dst.FFmpeg.GracePeriod)
	dur("ffmpeg.kill_timeout", f.KillTimeout, &dst.FFmpeg.KillTimeout)

	// API
	str(src.API.Listen, &dst.API.Listen)
	str(src.API.Token, &dst.API.Token)
	if src.API.RateLimit != nil {
		dst.API.RateLimit = *src.API.RateLimit
	}
	dur("api.rate_window", src.API.RateWindow, &dst.API.RateWindow)

	// Log
	str(src.Log.Level, &dst.Log.Level)
	str(src.Log.Format, &dst.Log.Format)

	// Telemetry
	t := src.Telemetry
	if t.Enabled != nil {
		dst.Telemetry.Enabled = *t.Enabled
	}
	str(t.Exporter, &dst.Telemetry.Exporter)
	str(t.Endpoint, &dst.Telemetry.Endpoint)
	if t.SamplingRate != nil {
		dst.Telemetry.SamplingRate = *t.SamplingRate
	}
	if t.Insecure != nil {
		dst.Telemetry.Insecure = *t.Insecure
	}

	str(src.Proxy, &dst.Proxy)
	if src.Autostart != nil {
		dst.Autostart = *src.Autostart
	}
	if src.RestartOnConfigChange != nil {
		dst.RestartOnConfigChange = *src.RestartOnConfigChange
	}

	return errors.Join(errs...)
}

func mergeEnvConfig(cfg *AppConfig) {
	if v := ParseString(EnvPrefix+"CANDIDATES", ""); v != "" {
		cfg.Relay.Candidates = ParseCandidates(v)
	}
	cfg.Relay.StandbyAsset = ParseString(EnvPrefix+"STANDBY_ASSET", cfg.Relay.StandbyAsset)
	cfg.Relay.RescanInterval = ParseDuration(EnvPrefix+"RESCAN_INTERVAL", cfg.Relay.RescanInterval)

	cfg.Locator.Backend = ParseString(EnvPrefix+"LOCATOR_BACKEND", cfg.Locator.Backend)
	cfg.Locator.Endpoint = ParseString(EnvPrefix+"LOCATOR_ENDPOINT", cfg.Locator.Endpoint)
	cfg.Locator.Timeout = ParseDuration(EnvPrefix+"LOCATOR_TIMEOUT", cfg.Locator.Timeout)

	cfg.Ingest.Token = ParseString(EnvPrefix+"INGEST_TOKEN", cfg.Ingest.Token)
	cfg.Ingest.TokenFile = ParseString(EnvPrefix+"INGEST_TOKEN_FILE", cfg.Ingest.TokenFile)
	cfg.Ingest.APIBase = ParseString(EnvPrefix+"INGEST_API_BASE", cfg.Ingest.APIBase)

	cfg.Store.Backend = ParseString(EnvPrefix+"STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = ParseString(EnvPrefix+"STORE_PATH", cfg.Store.Path)
	cfg.Store.RedisAddr = ParseString(EnvPrefix+"REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = ParseString(EnvPrefix+"REDIS_PASSWORD", cfg.Store.RedisPassword)

	cfg.FFmpeg.Bin = ParseString(EnvPrefix+"FFMPEG_BIN", cfg.FFmpeg.Bin)
	if v := ParseString(EnvPrefix+"ENCODERS", ""); v != "" {
		cfg.FFmpeg.Encoders = ParseCandidates(v)
	}

	cfg.Proxy = ParseString(EnvPrefix+"PROXY", cfg.Proxy)
	cfg.API.Listen = ParseString(EnvPrefix+"LISTEN", cfg.API.Listen)
	cfg.API.Token = ParseString(EnvPrefix+"API_TOKEN", cfg.API.Token)
	cfg.Log.Level = ParseString(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = ParseString(EnvPrefix+"LOG_FORMAT", cfg.Log.Format)
	cfg.Telemetry.Enabled = ParseBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = ParseString(EnvPrefix+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvPrefix+"TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
	cfg.Autostart = ParseBool(EnvPrefix+"AUTOSTART", cfg.Autostart)
	cfg.RestartOnConfigChange = ParseBool(EnvPrefix+"RESTART_ON_CONFIG_CHANGE", cfg.RestartOnConfigChange)
}
