// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"
)

var probePaths = map[string]string{
	"ready": "/readyz",
	"live":  "/healthz",
}

// healthcheckCLI probes a running daemon; it is meant for container
// HEALTHCHECK lines where no curl is available. Exit 0 means healthy.
func healthcheckCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "ready", "probe to call: ready or live")
	addr := fs.String("addr", "127.0.0.1:8088", "control API address")
	timeout := fs.Duration("timeout", 5*time.Second, "probe timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	path, ok := probePaths[*mode]
	if !ok {
		fmt.Fprintf(stderr, "unknown mode %q (want ready or live)\n", *mode)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+*addr+path, nil)
	if err != nil {
		fmt.Fprintf(stderr, "healthcheck: %v\n", err)
		return 2
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(stderr, "healthcheck: %v\n", err)
		return 1
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "healthcheck: %s returned %s\n", path, resp.Status)
		return 1
	}
	fmt.Fprintf(stdout, "%s ok\n", *mode)
	return 0
}
