// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrMissingSource = errors.New("missing source")
	ErrMissingSink   = errors.New("missing ingest url")
)

// InputSpec defines the source stream parameters.
type InputSpec struct {
	Source string
	Loop   bool   // loop the source forever (standby asset)
	Proxy  string // optional HTTP proxy for network sources
}

// AudioSpec defines the audio encoding parameters.
type AudioSpec struct {
	Codec      string // "copy" passes the live audio through
	Bitrate    string
	SampleRate int
}

// EncodeSpec holds the rate control shared by all re-encoding profiles.
type EncodeSpec struct {
	VideoBitrate     string
	BufferSize       string
	KeyframeInterval int
	Audio            AudioSpec
}

// DefaultEncodeSpec returns the rate control used when nothing is configured.
// A 120 frame GOP gives the 2s keyframe cadence ingest servers expect at 60fps.
func DefaultEncodeSpec() EncodeSpec {
	return EncodeSpec{
		VideoBitrate:     "4000k",
		BufferSize:       "8000k",
		KeyframeInterval: 120,
		Audio: AudioSpec{
			Codec:      "aac",
			Bitrate:    "128k",
			SampleRate: 44100,
		},
	}
}

var networkSchemes = map[string]bool{
	"http": true, "https": true,
	"rtmp": true, "rtmps": true,
	"rtsp": true, "srt": true,
	"udp": true, "tcp": true,
}

// IsNetworkSource reports whether the source is a live network stream that
// already arrives at real-time pace.
func IsNetworkSource(source string) bool {
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	return networkSchemes[strings.ToLower(u.Scheme)]
}

func isHTTPSource(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// BuildArgs constructs the ffmpeg arguments that publish in to sink as FLV
// using profile p.
func BuildArgs(in InputSpec, sink string, p Profile, enc EncodeSpec) ([]string, error) {
	if strings.TrimSpace(in.Source) == "" {
		return nil, ErrMissingSource
	}
	if strings.TrimSpace(sink) == "" {
		return nil, ErrMissingSink
	}
	def := DefaultEncodeSpec()

	args := []string{"-hide_banner", "-nostdin"}
	if in.Loop || !IsNetworkSource(in.Source) {
		args = append(args, "-re")
	}
	if in.Loop {
		args = append(args, "-stream_loop", "-1")
	}
	if in.Proxy != "" && isHTTPSource(in.Source) {
		args = append(args, "-http_proxy", in.Proxy)
	}
	args = append(args, "-i", in.Source)

	// Video
	args = append(args, "-c:v", p.Codec)
	if p.Reencodes() {
		if p.Preset != "" {
			args = append(args, "-preset", p.Preset)
		}
		if p.Threads > 0 {
			args = append(args, "-threads", strconv.Itoa(p.Threads))
		}
		if p.PixelFormat != "" {
			args = append(args, "-pix_fmt", p.PixelFormat)
		}
	}

	// Audio
	audio := enc.Audio
	if audio.Codec == "copy" && !in.Loop {
		args = append(args, "-c:a", "copy")
	} else {
		codec := audio.Codec
		if codec == "" || codec == "copy" {
			codec = def.Audio.Codec
		}
		bitrate := orDefault(audio.Bitrate, def.Audio.Bitrate)
		rate := audio.SampleRate
		if rate <= 0 {
			rate = def.Audio.SampleRate
		}
		args = append(args, "-c:a", codec, "-b:a", bitrate, "-ar", strconv.Itoa(rate))
	}

	if p.Reencodes() {
		bitrate := orDefault(enc.VideoBitrate, def.VideoBitrate)
		gop := enc.KeyframeInterval
		if gop <= 0 {
			gop = def.KeyframeInterval
		}
		args = append(args,
			"-b:v", bitrate,
			"-maxrate", bitrate,
			"-bufsize", orDefault(enc.BufferSize, def.BufferSize),
			"-g", strconv.Itoa(gop),
		)
	}

	args = append(args, "-f", "flv", sink)
	return args, nil
}

// RedactArgs masks the ingest URL path, which carries the stream key.
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	if n := len(out); n > 0 {
		out[n-1] = redactURL(out[n-1])
	}
	return out
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[redacted]"
	}
	return u.Scheme + "://" + u.Host + "/[redacted]"
}

// sinkMasker rewrites every occurrence of the ingest URL in process output,
// which ffmpeg echoes on errors.
func sinkMasker(args []string) *strings.Replacer {
	if len(args) == 0 || args[len(args)-1] == "" {
		return strings.NewReplacer()
	}
	sink := args[len(args)-1]
	pairs := []string{sink, redactURL(sink)}
	if u, err := url.Parse(sink); err == nil && u.Host != "" && len(u.Path) > 1 {
		pairs = append(pairs, u.Path, "/[redacted]")
	}
	return strings.NewReplacer(pairs...)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
