// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package locator

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/relay247/internal/log"
	"github.com/ManuGH/relay247/internal/metrics"
	"github.com/ManuGH/relay247/internal/resilience"
	"github.com/ManuGH/relay247/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// GuardOptions tunes Guarded. Rate <= 0 disables limiting; a nil Breaker
// disables the circuit breaker.
type GuardOptions struct {
	Rate    float64
	Burst   int
	Breaker *resilience.CircuitBreaker
}

// Guarded decorates a Backend with rate limiting, a circuit breaker,
// metrics and tracing.
type Guarded struct {
	backend Backend
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// NewGuarded wraps backend.
func NewGuarded(backend Backend, opts GuardOptions, logger zerolog.Logger) *Guarded {
	g := &Guarded{
		backend: backend,
		breaker: opts.Breaker,
		logger:  logger.With().Str(log.FieldComponent, "locator").Str("backend", backend.Name()).Logger(),
	}
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	return g
}

func (g *Guarded) Name() string { return g.backend.Name() }

// Find resolves id through the wrapped backend.
func (g *Guarded) Find(ctx context.Context, id string) (string, error) {
	ctx, span := telemetry.Tracer("relay247/locator").Start(ctx, "locator.find")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrBackend, g.backend.Name()), attribute.String(telemetry.AttrCandidate, id))

	start := time.Now()
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.record("limited", start)
			return "", err
		}
	}

	var src string
	find := func(ctx context.Context) error {
		var err error
		src, err = g.backend.Find(ctx, id)
		return err
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.ExecuteContext(ctx, find)
	} else {
		err = find(ctx)
	}

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		g.record("breaker_open", start)
	case err != nil:
		g.record("error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case src == "":
		g.record("offline", start)
	default:
		g.record("live", start)
	}
	if err != nil {
		return "", err
	}

	g.logger.Debug().
		Str(log.FieldEvent, "locator.lookup").
		Str(log.FieldCandidate, id).
		Bool("live", src != "").
		Dur("took", time.Since(start)).
		Msg("candidate lookup finished")
	return src, nil
}

func (g *Guarded) record(result string, start time.Time) {
	metrics.RecordLocatorLookup(g.backend.Name(), result, time.Since(start).Seconds())
}
