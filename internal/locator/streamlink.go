// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package locator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/ManuGH/relay247/internal/procgroup"
)

const (
	defaultStreamlinkBin = "streamlink"
	defaultURLTemplate   = "https://live.douyin.com/{id}"
	defaultQuality       = "best"
	defaultLookupTimeout = 20 * time.Second
)

// offlineMarkers are streamlink messages meaning "nothing is live".
var offlineMarkers = []string{
	"No playable streams found",
	"No streams found",
	"This stream is offline",
}

// StreamlinkConfig tunes the streamlink backend.
type StreamlinkConfig struct {
	Bin         string
	URLTemplate string // "{id}" is replaced with the escaped identifier
	Quality     string
	Headers     map[string]string
	Timeout     time.Duration
	Proxy       string
}

// Streamlink asks the streamlink CLI for the direct stream URL.
type Streamlink struct {
	cfg StreamlinkConfig
}

// NewStreamlink applies defaults to cfg.
func NewStreamlink(cfg StreamlinkConfig) *Streamlink {
	if cfg.Bin == "" {
		cfg.Bin = defaultStreamlinkBin
	}
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = defaultURLTemplate
	}
	if cfg.Quality == "" {
		cfg.Quality = defaultQuality
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLookupTimeout
	}
	if cfg.Headers == nil {
		cfg.Headers = DefaultHeaders
	}
	return &Streamlink{cfg: cfg}
}

func (s *Streamlink) Name() string { return "streamlink" }

// PageURL renders the template for id.
func (s *Streamlink) PageURL(id string) string {
	return strings.ReplaceAll(s.cfg.URLTemplate, "{id}", url.PathEscape(id))
}

// Args returns the streamlink argument vector for id.
func (s *Streamlink) Args(id string) []string {
	args := []string{"--stream-url"}

	keys := make([]string, 0, len(s.cfg.Headers))
	for k := range s.cfg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--http-header", k+"="+s.cfg.Headers[k])
	}
	if s.cfg.Proxy != "" {
		args = append(args, "--http-proxy", s.cfg.Proxy)
	}
	return append(args, s.PageURL(id), s.cfg.Quality)
}

// Find runs streamlink once. Offline answers return ("", nil).
func (s *Streamlink) Find(ctx context.Context, id string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.cfg.Bin, s.Args(id)...) // #nosec G204 -- fixed binary, no shell
	procgroup.Set(cmd)
	cmd.Cancel = func() error { return procgroup.Kill(cmd) }
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := strings.TrimSpace(stdout.String())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("streamlink %s: %w", id, ctxErr)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("streamlink binary: %w", err)
		}
		msg := out + "\n" + stderr.String()
		if isOffline(msg) {
			return "", nil
		}
		return "", fmt.Errorf("streamlink %s: %w: %s", id, err, lastLine(msg))
	}

	if isOffline(out) {
		return "", nil
	}
	src := lastLine(out)
	if !strings.Contains(src, "://") {
		return "", fmt.Errorf("%w: %q", ErrUnresolvable, src)
	}
	return src, nil
}

func isOffline(msg string) bool {
	for _, m := range offlineMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
