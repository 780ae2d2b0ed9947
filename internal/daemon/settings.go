// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"fmt"

	"github.com/ManuGH/relay247/internal/config"
	"github.com/ManuGH/relay247/internal/controller"
	"github.com/ManuGH/relay247/internal/pipeline/exec/ffmpeg"
	"github.com/rs/zerolog"
)

// NewSettingsSource re-reads configuration at the start of every run so
// candidate and encoder edits apply on the next Start without a restart.
func NewSettingsSource(loader *config.Loader, logger zerolog.Logger) controller.SettingsSource {
	return controller.SettingsFunc(func(context.Context) (controller.Settings, error) {
		cfg, err := loader.Load()
		if err != nil {
			return controller.Settings{}, fmt.Errorf("reload config: %w", err)
		}
		return SettingsFromConfig(cfg, logger), nil
	})
}

// SettingsFromConfig derives the per-run controller settings.
func SettingsFromConfig(cfg config.AppConfig, logger zerolog.Logger) controller.Settings {
	return controller.Settings{
		Candidates:     controller.CandidatesFromIDs(cfg.Relay.Candidates),
		StandbyAsset:   cfg.Relay.StandbyAsset,
		RescanInterval: cfg.Relay.RescanInterval,
		Launcher:       launcherAdapter{l: ffmpeg.NewLauncher(LauncherOptions(cfg), logger)},
	}
}

// LauncherOptions maps the ffmpeg section onto launcher options. Encode
// fields left empty fall back to ffmpeg.DefaultEncodeSpec.
func LauncherOptions(cfg config.AppConfig) ffmpeg.Options {
	f := cfg.FFmpeg

	var profiles map[string]ffmpeg.Profile
	if len(f.Profiles) > 0 {
		profiles = make(map[string]ffmpeg.Profile, len(f.Profiles))
		for name, p := range f.Profiles {
			profiles[name] = ffmpeg.Profile{
				Name:        name,
				Capability:  ffmpeg.Capability(p.Capability),
				Codec:       p.Codec,
				Preset:      p.Preset,
				Threads:     p.Threads,
				PixelFormat: p.PixelFormat,
			}
		}
	}

	enc := ffmpeg.DefaultEncodeSpec()
	if f.Bitrate != "" {
		enc.VideoBitrate = f.Bitrate
	}
	if f.BufSize != "" {
		enc.BufferSize = f.BufSize
	}
	if f.KeyframeInterval > 0 {
		enc.KeyframeInterval = f.KeyframeInterval
	}
	if f.AudioCodec != "" {
		enc.Audio.Codec = f.AudioCodec
	}
	if f.AudioBitrate != "" {
		enc.Audio.Bitrate = f.AudioBitrate
	}
	if f.AudioSampleRate > 0 {
		enc.Audio.SampleRate = f.AudioSampleRate
	}

	return ffmpeg.Options{
		BinPath:     f.Bin,
		Encoders:    append([]string(nil), f.Encoders...),
		Profiles:    profiles,
		Encode:      enc,
		Proxy:       cfg.Proxy,
		GracePeriod: f.GracePeriod,
		KillTimeout: f.KillTimeout,
	}
}
