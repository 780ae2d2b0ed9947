// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = Registration{StreamID: "abc123", RTMPURL: "rtmp://a.rtmp.youtube.com/live2/key-1"}

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	stores := map[string]Config{
		BackendFile:   {Backend: BackendFile, Path: filepath.Join(dir, "stream_info.json")},
		BackendRedis:  {Backend: BackendRedis, RedisAddr: mr.Addr(), Key: "relay247:test"},
		BackendSQLite: {Backend: BackendSQLite, Path: filepath.Join(dir, "state.sqlite")},
		BackendBadger: {Backend: BackendBadger, Path: filepath.Join(dir, "badger")},
		BackendMemory: {Backend: BackendMemory},
	}
	out := make(map[string]Store, len(stores))
	for name, cfg := range stores {
		s, err := Open(ctx, cfg, zerolog.Nop())
		require.NoError(t, err, name)
		t.Cleanup(func() { _ = s.Close() })
		out[name] = s
	}
	return out
}

func TestBackends_LoadEmptyThenSave(t *testing.T) {
	ctx := context.Background()
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Load(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Save(ctx, sample))
			got, ok, err := s.Load(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, sample, got)

			updated := Registration{StreamID: "def456", RTMPURL: "rtmp://b/live2/key-2"}
			require.NoError(t, s.Save(ctx, updated))
			got, ok, err = s.Load(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, updated, got)
		})
	}
}

func TestBackends_RejectIncompleteRegistration(t *testing.T) {
	ctx := context.Background()
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Save(ctx, Registration{StreamID: "only-id"})
			require.ErrorIs(t, err, ErrInvalidRegistration)
		})
	}
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "stream_info.json")

	require.NoError(t, NewFile(path).Save(ctx, sample))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stream_id": "abc123"`)
	assert.Contains(t, string(data), `"rtmp_url"`)

	got, ok, err := NewFile(path).Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sample, got)
}

func TestFile_IncompleteDocumentIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream_info.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stream_id":"x"}`), 0o600))

	_, ok, err := NewFile(path).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFile_CorruptDocumentErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream_info.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, _, err := NewFile(path).Load(context.Background())
	require.Error(t, err)
}

func TestRedis_StoresJSONUnderKey(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	s, err := NewRedis(ctx, RedisConfig{Addr: mr.Addr(), Key: "reg"}, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Save(ctx, sample))
	raw, err := mr.Get("reg")
	require.NoError(t, err)
	assert.Contains(t, raw, `"stream_id": "abc123"`)
}

func TestRedis_UnreachableFailsFast(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), RedisConfig{Addr: addr, Key: "reg"}, zerolog.Nop())
	require.Error(t, err)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.sqlite")

	s, err := NewSQLite(ctx, path, "k")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sample))
	require.NoError(t, s.Close())

	s, err = NewSQLite(ctx, path, "k")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sample, got)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "etcd"}, zerolog.Nop())
	require.ErrorIs(t, err, ErrUnknownBackend)
}
