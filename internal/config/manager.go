// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration persistence.
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// Save writes the configuration to disk as YAML, atomically.
func (m *Manager) Save(cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	fileCfg := ToFileConfig(cfg)

	pending, err := renameio.NewPendingFile(m.configPath, renameio.WithPermissions(0600))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	enc := yaml.NewEncoder(pending)
	enc.SetIndent(2)
	if err := enc.Encode(fileCfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush config: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

// ToFileConfig maps a resolved configuration back to its file form.
func ToFileConfig(cfg AppConfig) FileConfig {
	profiles := make(map[string]ProfileFile, len(cfg.FFmpeg.Profiles))
	for name, p := range cfg.FFmpeg.Profiles {
		profiles[name] = ProfileFile(p)
	}
	if len(profiles) == 0 {
		profiles = nil
	}

	return FileConfig{
		Relay: RelayFile{
			Candidates:     CandidateList(cfg.Relay.Candidates),
			StandbyAsset:   cfg.Relay.StandbyAsset,
			RescanInterval: cfg.Relay.RescanInterval.String(),
		},
		Locator: LocatorFile{
			Backend:          cfg.Locator.Backend,
			URLTemplate:      cfg.Locator.URLTemplate,
			StreamlinkBin:    cfg.Locator.StreamlinkBin,
			Quality:          cfg.Locator.Quality,
			Headers:          cfg.Locator.Headers,
			Endpoint:         cfg.Locator.Endpoint,
			Timeout:          cfg.Locator.Timeout.String(),
			Rate:             ptr(cfg.Locator.Rate),
			Burst:            ptr(cfg.Locator.Burst),
			BreakerThreshold: ptr(cfg.Locator.BreakerThreshold),
			BreakerCooldown:  cfg.Locator.BreakerCooldown.String(),
		},
		Ingest: IngestFile{
			Provider:    cfg.Ingest.Provider,
			APIBase:     cfg.Ingest.APIBase,
			TokenFile:   cfg.Ingest.TokenFile,
			Timeout:     cfg.Ingest.Timeout.String(),
			StreamTitle: cfg.Ingest.StreamTitle,
			Broadcast: BroadcastFile{
				Title:       cfg.Ingest.Broadcast.Title,
				Description: cfg.Ingest.Broadcast.Description,
				CategoryID:  cfg.Ingest.Broadcast.CategoryID,
				Privacy:     cfg.Ingest.Broadcast.Privacy,
				AutoStart:   ptr(cfg.Ingest.Broadcast.AutoStart),
				AutoStop:    ptr(cfg.Ingest.Broadcast.AutoStop),
				MadeForKids: ptr(cfg.Ingest.Broadcast.MadeForKids),
			},
		},
		Store: StoreFile{
			Backend:   cfg.Store.Backend,
			Path:      cfg.Store.Path,
			Key:       cfg.Store.Key,
			RedisAddr: cfg.Store.RedisAddr,
			RedisDB:   ptr(cfg.Store.RedisDB),
		},
		FFmpeg: FFmpegFile{
			Bin:              cfg.FFmpeg.Bin,
			Encoders:         CandidateList(cfg.FFmpeg.Encoders),
			Bitrate:          cfg.FFmpeg.Bitrate,
			BufSize:          cfg.FFmpeg.BufSize,
			KeyframeInterval: ptr(cfg.FFmpeg.KeyframeInterval),
			Audio: AudioFile{
				Codec:      cfg.FFmpeg.AudioCodec,
				Bitrate:    cfg.FFmpeg.AudioBitrate,
				SampleRate: ptr(cfg.FFmpeg.AudioSampleRate),
			},
			Profiles:    profiles,
			GracePeriod: cfg.FFmpeg.GracePeriod.String(),
			KillTimeout: cfg.FFmpeg.KillTimeout.String(),
		},
		API: APIFile{
			Listen:     cfg.API.Listen,
			RateLimit:  ptr(cfg.API.RateLimit),
			RateWindow: cfg.API.RateWindow.String(),
		},
		Log: LogFile{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		},
		Telemetry: TelemetryFile{
			Enabled:      ptr(cfg.Telemetry.Enabled),
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: ptr(cfg.Telemetry.SamplingRate),
			Insecure:     ptr(cfg.Telemetry.Insecure),
		},
		Proxy:                 cfg.Proxy,
		Autostart:             ptr(cfg.Autostart),
		RestartOnConfigChange: ptr(cfg.RestartOnConfigChange),
	}
}

func ptr[T any](v T) *T { return &v }
