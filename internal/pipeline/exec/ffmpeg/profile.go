// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import "strings"

// Capability tags what kind of encoder a profile drives.
type Capability string

const (
	CapabilityPassthrough Capability = "passthrough"
	CapabilityHardware    Capability = "hardware"
	CapabilitySoftware    Capability = "software"
)

// Profile is one encoder configuration the Launcher may attempt.
type Profile struct {
	Name        string
	Capability  Capability
	Codec       string // ffmpeg video encoder, "copy" for passthrough
	Preset      string
	Threads     int
	PixelFormat string
}

// Reencodes reports whether the profile produces new video frames.
func (p Profile) Reencodes() bool {
	return p.Capability != CapabilityPassthrough
}

// Built-in profile names.
const (
	ProfileCopy  = "copy"
	ProfileNVENC = "nvenc"
	ProfileQSV   = "qsv"
	ProfileCPU   = "cpu"
)

// DefaultEncoders is the preference order used when none is configured.
var DefaultEncoders = []string{ProfileCopy, ProfileNVENC, ProfileQSV, ProfileCPU}

var builtinProfiles = map[string]Profile{
	ProfileCopy: {
		Name:       ProfileCopy,
		Capability: CapabilityPassthrough,
		Codec:      "copy",
	},
	ProfileNVENC: {
		Name:       ProfileNVENC,
		Capability: CapabilityHardware,
		Codec:      "h264_nvenc",
		Preset:     "p5",
	},
	ProfileQSV: {
		Name:       ProfileQSV,
		Capability: CapabilityHardware,
		Codec:      "h264_qsv",
		Preset:     "fast",
	},
	ProfileCPU: {
		Name:        ProfileCPU,
		Capability:  CapabilitySoftware,
		Codec:       "libx264",
		Preset:      "veryfast",
		Threads:     4,
		PixelFormat: "yuv420p",
	},
}

// BuiltinProfile returns the built-in profile registered under name.
func BuiltinProfile(name string) (Profile, bool) {
	p, ok := builtinProfiles[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ResolveProfile merges an operator override onto the built-in profile of
// the same name. Names without a built-in need an override carrying a codec.
func ResolveProfile(name string, overrides map[string]Profile) (Profile, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	base, known := builtinProfiles[key]
	o, hasOverride := overrides[key]
	if !known && (!hasOverride || o.Codec == "") {
		return Profile{}, false
	}
	base.Name = key
	if !hasOverride {
		return base, true
	}

	if o.Capability != "" {
		base.Capability = o.Capability
	}
	if o.Codec != "" {
		base.Codec = o.Codec
	}
	if o.Preset != "" {
		base.Preset = o.Preset
	}
	if o.Threads > 0 {
		base.Threads = o.Threads
	}
	if o.PixelFormat != "" {
		base.PixelFormat = o.PixelFormat
	}
	if base.Capability == "" {
		if base.Codec == "copy" {
			base.Capability = CapabilityPassthrough
		} else {
			base.Capability = CapabilitySoftware
		}
	}
	return base, true
}
