// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Path  string
	Query map[string][]string
	Auth  string
	Body  map[string]any
}

type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu    sync.Mutex
	calls []recordedCall

	streamStatus    int
	broadcastStatus int
	bindStatus      int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, streamStatus: 200, broadcastStatus: 200, bindStatus: 200}
	mux := http.NewServeMux()
	mux.HandleFunc("/liveStreams", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.streamStatus != 200 {
			writeAPIError(w, f.streamStatus, "quota exceeded")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "stream-1",
			"cdn": map[string]any{
				"ingestionInfo": map[string]any{
					"ingestionAddress": "rtmp://a.rtmp.youtube.com/live2",
					"streamName":       "abcd-efgh",
				},
			},
		})
	})
	mux.HandleFunc("/liveBroadcasts", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.broadcastStatus != 200 {
			writeAPIError(w, f.broadcastStatus, "invalid credentials")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "bc-1"})
	})
	mux.HandleFunc("/liveBroadcasts/bind", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.bindStatus != 200 {
			writeAPIError(w, f.bindStatus, "backend error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": r.URL.Query().Get("id")})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

func (f *fakeAPI) record(r *http.Request) {
	assert.Equal(f.t, http.MethodPost, r.Method)
	call := recordedCall{Path: r.URL.Path, Query: r.URL.Query(), Auth: r.Header.Get("Authorization")}
	if r.ContentLength > 0 {
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&call.Body))
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func (f *fakeAPI) client(settings BroadcastSettings) *YouTube {
	y := NewYouTube(YouTubeConfig{
		APIBase:     f.srv.URL,
		StreamTitle: "relay247 ingest",
		Broadcast:   settings,
	}, f.srv.Client(), StaticToken("tok-1"))
	y.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CST", 8*3600)) }
	return y
}

func TestCreateStream_RequestShape(t *testing.T) {
	api := newFakeAPI(t)
	s, err := api.client(BroadcastSettings{}).CreateStream(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stream-1", s.ID)
	assert.Equal(t, "rtmp://a.rtmp.youtube.com/live2/abcd-efgh", s.RTMPURL)

	calls := api.Calls()
	require.Len(t, calls, 1)
	c := calls[0]
	assert.Equal(t, "/liveStreams", c.Path)
	assert.Equal(t, []string{"snippet,cdn,contentDetails"}, c.Query["part"])
	assert.Equal(t, "Bearer tok-1", c.Auth)
	assert.Equal(t, map[string]any{"frameRate": "variable", "ingestionType": "rtmp", "resolution": "variable"}, c.Body["cdn"])
	assert.Equal(t, map[string]any{"isReusable": true}, c.Body["contentDetails"])
	assert.Equal(t, "relay247 ingest", c.Body["snippet"].(map[string]any)["title"])
}

func TestInsertAndBindBroadcast_RequestShape(t *testing.T) {
	api := newFakeAPI(t)
	y := api.client(BroadcastSettings{
		Title:      "24/7 Live",
		CategoryID: "24",
		Privacy:    "unlisted",
		AutoStart:  true,
		AutoStop:   false,
	})

	id, err := y.InsertBroadcast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bc-1", id)
	require.NoError(t, y.BindBroadcast(context.Background(), id, "stream-1"))

	calls := api.Calls()
	require.Len(t, calls, 2)

	ins := calls[0]
	assert.Equal(t, []string{"snippet,contentDetails,status"}, ins.Query["part"])
	sn := ins.Body["snippet"].(map[string]any)
	assert.Equal(t, "24/7 Live", sn["title"])
	assert.Equal(t, "24", sn["categoryId"])
	assert.Equal(t, "2025-03-01T04:00:00Z", sn["scheduledStartTime"])
	assert.Equal(t, map[string]any{"privacyStatus": "unlisted", "selfDeclaredMadeForKids": false}, ins.Body["status"])
	assert.Equal(t, map[string]any{"enableAutoStart": true, "enableAutoStop": false}, ins.Body["contentDetails"])

	bind := calls[1]
	assert.Equal(t, "/liveBroadcasts/bind", bind.Path)
	assert.Equal(t, []string{"id,contentDetails"}, bind.Query["part"])
	assert.Equal(t, []string{"bc-1"}, bind.Query["id"])
	assert.Equal(t, []string{"stream-1"}, bind.Query["streamId"])
	assert.Nil(t, bind.Body)
}

func TestAPIErrors_Classified(t *testing.T) {
	api := newFakeAPI(t)
	api.streamStatus = http.StatusForbidden
	api.broadcastStatus = http.StatusUnauthorized
	api.bindStatus = http.StatusInternalServerError
	y := api.client(BroadcastSettings{})

	_, err := y.CreateStream(context.Background())
	require.ErrorIs(t, err, ErrForbidden)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "quota exceeded", apiErr.Message)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	_, err = y.InsertBroadcast(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	err = y.BindBroadcast(context.Background(), "bc", "st")
	require.ErrorIs(t, err, ErrUpstreamError)
}

func TestUnreachableAPI(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	y := NewYouTube(YouTubeConfig{APIBase: base}, nil, StaticToken("t"))
	_, err := y.CreateStream(context.Background())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestTokenSources(t *testing.T) {
	_, err := StaticToken("  ").Token(context.Background())
	require.ErrorIs(t, err, ErrNoToken)

	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o600))
	src := NewTokenSource("literal", path)

	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", tok)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o600))
	tok, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", tok)

	tok, err = NewTokenSource("literal", "").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "literal", tok)
}

func TestMissingTokenSkipsRequest(t *testing.T) {
	api := newFakeAPI(t)
	y := NewYouTube(YouTubeConfig{APIBase: api.srv.URL}, api.srv.Client(), StaticToken(""))
	_, err := y.CreateStream(context.Background())
	require.ErrorIs(t, err, ErrNoToken)
	assert.Empty(t, api.Calls())
}
