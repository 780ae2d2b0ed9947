// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type event struct {
	name string
	at   time.Time
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name: name, at: time.Now()})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.name
	}
	return out
}

func (r *recorder) find(name string) (event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.name == name {
			return e, true
		}
	}
	return event{}, false
}

type fakeProcess struct {
	name       string
	pid        int
	rec        *recorder
	alive      atomic.Bool
	terminated atomic.Int32
}

func (p *fakeProcess) IsAlive() bool { return p.alive.Load() }
func (p *fakeProcess) PID() int      { return p.pid }

func (p *fakeProcess) Terminate(time.Duration) {
	p.alive.Store(false)
	if p.terminated.Add(1) == 1 {
		p.rec.add("terminate:" + p.name)
	}
}

// die simulates the process exiting on its own.
func (p *fakeProcess) die() { p.alive.Store(false) }

type fakeLauncher struct {
	rec *recorder

	// fail returns a launch error for the nth attempt (0-based).
	fail  func(source string, standby bool, n int) error
	block bool

	mu         sync.Mutex
	attempts   int
	procs      []*fakeProcess
	violations atomic.Int32
}

func (l *fakeLauncher) Launch(ctx context.Context, source, _ string, standby bool) (Process, error) {
	l.mu.Lock()
	for _, p := range l.procs {
		if p.IsAlive() {
			l.violations.Add(1)
		}
	}
	n := l.attempts
	l.attempts++
	l.mu.Unlock()

	l.rec.add("launch:" + source)
	if l.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if l.fail != nil {
		if err := l.fail(source, standby, n); err != nil {
			return nil, err
		}
	}

	p := &fakeProcess{name: source, pid: 1000 + n, rec: l.rec}
	p.alive.Store(true)
	l.mu.Lock()
	l.procs = append(l.procs, p)
	l.mu.Unlock()
	return p, nil
}

func (l *fakeLauncher) process(source string) *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.procs) - 1; i >= 0; i-- {
		if l.procs[i].name == source {
			return l.procs[i]
		}
	}
	return nil
}

func (l *fakeLauncher) launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

type fakeLocator struct {
	answer func(id string, n int) (string, error)

	mu     sync.Mutex
	calls  []string
	counts map[string]int
}

func (f *fakeLocator) Find(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	n := f.counts[id]
	f.counts[id]++
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.answer == nil {
		return "", nil
	}
	return f.answer(id, n)
}

func (f *fakeLocator) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeProvider struct {
	endpointErr  error
	broadcastErr error

	endpointCalls  atomic.Int32
	broadcastCalls atomic.Int32
}

func (f *fakeProvider) GetOrCreateIngestEndpoint(context.Context) (Endpoint, error) {
	f.endpointCalls.Add(1)
	if f.endpointErr != nil {
		return Endpoint{}, f.endpointErr
	}
	return Endpoint{StreamID: "stream-1", IngestURL: "rtmp://ingest.example/live2/key"}, nil
}

func (f *fakeProvider) CreateAndBindBroadcast(_ context.Context, streamID string) (string, error) {
	f.broadcastCalls.Add(1)
	if f.broadcastErr != nil {
		return "", f.broadcastErr
	}
	return "broadcast-for-" + streamID, nil
}

type recordingSink struct {
	mu       sync.Mutex
	statuses []Status
}

func (s *recordingSink) Publish(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, st)
}

func (s *recordingSink) all() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Status(nil), s.statuses...)
}

func (s *recordingSink) sawState(want State) bool {
	for _, st := range s.all() {
		if st.State == want {
			return true
		}
	}
	return false
}

type harness struct {
	c        *Controller
	rec      *recorder
	launcher *fakeLauncher
	locator  *fakeLocator
	provider *fakeProvider
	sink     *recordingSink
}

func fastOptions() Options {
	return Options{
		LivePollInterval:    10 * time.Millisecond,
		StandbyPollInterval: 10 * time.Millisecond,
		RetryDelay:          20 * time.Millisecond,
		StopTimeout:         2 * time.Second,
		KillTimeout:         50 * time.Millisecond,
	}
}

func newHarness(t *testing.T, settings Settings, opts Options) *harness {
	t.Helper()
	rec := &recorder{}
	h := &harness{
		rec:      rec,
		launcher: &fakeLauncher{rec: rec},
		locator:  &fakeLocator{},
		provider: &fakeProvider{},
		sink:     &recordingSink{},
	}
	h.c = New(Deps{
		Logger:  zerolog.Nop(),
		Locator: h.locator,
		Ingest:  h.provider,
		Settings: SettingsFunc(func(context.Context) (Settings, error) {
			return settings, nil
		}),
		Status:   h.sink,
		Launcher: h.launcher,
	}, opts)
	t.Cleanup(func() {
		h.c.Stop()
		require.Zero(t, h.launcher.violations.Load(), "more than one publish process alive at once")
	})
	return h
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.c.State() == want }, 3*time.Second, 5*time.Millisecond,
		"state never became %s (now %s)", want, h.c.State())
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return !h.c.Running() && h.c.State() == StateIdle },
		3*time.Second, 5*time.Millisecond)
}

func (h *harness) waitLaunches(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.launcher.launches() >= n }, 3*time.Second, 5*time.Millisecond)
}

func (h *harness) waitProcess(t *testing.T, source string) *fakeProcess {
	t.Helper()
	var p *fakeProcess
	require.Eventually(t, func() bool {
		p = h.launcher.process(source)
		return p != nil
	}, 3*time.Second, 5*time.Millisecond, "no process launched for %s", source)
	return p
}
