// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	runIDKey
)

// correlationFields maps each context key to the log field it feeds.
var correlationFields = []struct {
	key   ctxKey
	field string
}{
	{requestIDKey, FieldRequestID},
	{runIDKey, FieldRunID},
}

func with(ctx context.Context, key ctxKey, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, id)
}

func lookup(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// ContextWithRequestID tags ctx with an HTTP request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, requestIDKey, id)
}

// ContextWithRunID tags ctx with a controller run id.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return with(ctx, runIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string { return lookup(ctx, requestIDKey) }

func RunIDFromContext(ctx context.Context) string { return lookup(ctx, runIDKey) }

// WithContext adds every correlation id present in ctx to logger. The
// logger is returned unchanged when ctx carries none.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	var lc *zerolog.Context
	for _, cf := range correlationFields {
		v := lookup(ctx, cf.key)
		if v == "" {
			continue
		}
		if lc == nil {
			c := logger.With()
			lc = &c
		}
		*lc = lc.Str(cf.field, v)
	}
	if lc == nil {
		return logger
	}
	return lc.Logger()
}

// WithComponentFromContext is WithComponent plus the correlation ids of ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
