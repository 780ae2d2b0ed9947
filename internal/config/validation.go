// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/relay247/internal/validate"
)

// Validate checks structural correctness of the resolved configuration.
//
// Empty candidates or an empty standby asset are not rejected here: the
// controller refuses to leave Initializing without them and reports the
// failure through its status, so the daemon keeps serving the API.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.MinDuration("relay.rescan_interval", cfg.Relay.RescanInterval, time.Second)

	v.OneOf("locator.backend", cfg.Locator.Backend, []string{"streamlink", "http"})
	switch cfg.Locator.Backend {
	case "streamlink":
		v.NotEmpty("locator.streamlink_bin", cfg.Locator.StreamlinkBin)
		if !strings.Contains(cfg.Locator.URLTemplate, "{id}") {
			v.AddError("locator.url_template", "template must contain {id}", cfg.Locator.URLTemplate)
		}
	case "http":
		v.URL("locator.endpoint", cfg.Locator.Endpoint, []string{"http", "https"})
	}
	v.MinDuration("locator.timeout", cfg.Locator.Timeout, time.Second)
	if cfg.Locator.Rate < 0 {
		v.AddError("locator.rate", "rate cannot be negative", cfg.Locator.Rate)
	}
	v.Positive("locator.burst", cfg.Locator.Burst)
	v.NonNegative("locator.breaker_threshold", cfg.Locator.BreakerThreshold)

	v.OneOf("ingest.provider", cfg.Ingest.Provider, []string{"youtube"})
	v.URL("ingest.api_base", cfg.Ingest.APIBase, []string{"http", "https"})
	v.MinDuration("ingest.timeout", cfg.Ingest.Timeout, time.Second)
	v.OneOf("ingest.broadcast.privacy", cfg.Ingest.Broadcast.Privacy, []string{"private", "unlisted", "public"})

	v.OneOf("store.backend", cfg.Store.Backend, []string{"file", "redis", "sqlite", "badger", "memory"})
	switch cfg.Store.Backend {
	case "redis":
		v.NotEmpty("store.redis_addr", cfg.Store.RedisAddr)
	case "memory":
	default:
		v.NotEmpty("store.path", cfg.Store.Path)
	}

	v.NotEmpty("ffmpeg.bin", cfg.FFmpeg.Bin)
	if len(cfg.FFmpeg.Encoders) == 0 {
		v.AddError("ffmpeg.encoders", "at least one encoder profile is required", cfg.FFmpeg.Encoders)
	}
	v.Positive("ffmpeg.keyframe_interval", cfg.FFmpeg.KeyframeInterval)
	v.Positive("ffmpeg.audio.sample_rate", cfg.FFmpeg.AudioSampleRate)
	v.MinDuration("ffmpeg.grace_period", cfg.FFmpeg.GracePeriod, 0)
	v.MinDuration("ffmpeg.kill_timeout", cfg.FFmpeg.KillTimeout, 100*time.Millisecond)
	for name, p := range cfg.FFmpeg.Profiles {
		if p.Capability != "" {
			v.OneOf(fmt.Sprintf("ffmpeg.profiles.%s.capability", name), p.Capability,
				[]string{"passthrough", "hardware", "software"})
		}
	}

	if cfg.Proxy != "" {
		validateProxy(v, cfg.Proxy)
	}

	v.ListenAddr("api.listen", cfg.API.Listen)
	v.NonNegative("api.rate_limit", cfg.API.RateLimit)
	if cfg.API.RateLimit > 0 {
		v.MinDuration("api.rate_window", cfg.API.RateWindow, time.Second)
	}

	if _, err := validate.ParseLogLevel(strings.ToLower(cfg.Log.Level)); err != nil {
		v.AddError("log.level", err.Error(), cfg.Log.Level)
	}
	v.OneOf("log.format", cfg.Log.Format, []string{"json", "console"})

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.sampling_rate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	return v.Err()
}

func validateProxy(v *validate.Validator, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		v.AddError("proxy", "proxy must be a URL with a host", raw)
		return
	}
	v.OneOf("proxy", u.Scheme, []string{"http", "https", "socks5", "socks5h"})
}
