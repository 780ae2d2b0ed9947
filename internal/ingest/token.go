// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TokenSource yields the OAuth bearer token for each API call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a literal bearer token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	tok := strings.TrimSpace(string(s))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// FileToken re-reads the token file on every call, so an external refresher
// can rotate it without restarting the daemon.
type FileToken string

func (f FileToken) Token(context.Context) (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("ingest: read token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoToken, string(f))
	}
	return tok, nil
}

// NewTokenSource prefers the token file when both are set.
func NewTokenSource(token, tokenFile string) TokenSource {
	if strings.TrimSpace(tokenFile) != "" {
		return FileToken(tokenFile)
	}
	return StaticToken(token)
}
