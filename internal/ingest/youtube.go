// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIBase is the YouTube Data API v3 root.
const DefaultAPIBase = "https://www.googleapis.com/youtube/v3"

const maxErrorBody = 64 << 10

// BroadcastSettings are passed verbatim to liveBroadcasts.insert.
type BroadcastSettings struct {
	Title       string
	Description string
	CategoryID  string
	Privacy     string
	AutoStart   bool
	AutoStop    bool
	MadeForKids bool
}

// YouTubeConfig configures a YouTube client.
type YouTubeConfig struct {
	APIBase           string
	StreamTitle       string
	StreamDescription string
	Broadcast         BroadcastSettings
}

// YouTube is a minimal YouTube Live REST client.
type YouTube struct {
	base   string
	cfg    YouTubeConfig
	http   *http.Client
	tokens TokenSource
	now    func() time.Time
}

// NewYouTube builds a client. A nil http client uses http.DefaultClient.
func NewYouTube(cfg YouTubeConfig, client *http.Client, tokens TokenSource) *YouTube {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &YouTube{base: base, cfg: cfg, http: client, tokens: tokens, now: time.Now}
}

type liveStreamRequest struct {
	Snippet        snippet            `json:"snippet"`
	CDN            cdnSettings        `json:"cdn"`
	ContentDetails streamContentFlags `json:"contentDetails"`
}

type snippet struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	ScheduledStartTime string `json:"scheduledStartTime,omitempty"`
	CategoryID         string `json:"categoryId,omitempty"`
}

type cdnSettings struct {
	FrameRate     string `json:"frameRate"`
	IngestionType string `json:"ingestionType"`
	Resolution    string `json:"resolution"`
}

type streamContentFlags struct {
	IsReusable bool `json:"isReusable"`
}

type liveStreamResponse struct {
	ID  string `json:"id"`
	CDN struct {
		IngestionInfo struct {
			IngestionAddress string `json:"ingestionAddress"`
			StreamName       string `json:"streamName"`
		} `json:"ingestionInfo"`
	} `json:"cdn"`
}

type broadcastRequest struct {
	Snippet        snippet                 `json:"snippet"`
	Status         broadcastStatus         `json:"status"`
	ContentDetails broadcastContentDetails `json:"contentDetails"`
}

type broadcastStatus struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

type broadcastContentDetails struct {
	EnableAutoStart bool `json:"enableAutoStart"`
	EnableAutoStop  bool `json:"enableAutoStop"`
}

type idResponse struct {
	ID string `json:"id"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Stream is a created reusable live stream.
type Stream struct {
	ID      string
	RTMPURL string
}

// CreateStream inserts a reusable RTMP live stream with variable frame rate
// and resolution.
func (y *YouTube) CreateStream(ctx context.Context) (Stream, error) {
	body := liveStreamRequest{
		Snippet: snippet{
			Title:       y.cfg.StreamTitle,
			Description: y.cfg.StreamDescription,
		},
		CDN: cdnSettings{
			FrameRate:     "variable",
			IngestionType: "rtmp",
			Resolution:    "variable",
		},
		ContentDetails: streamContentFlags{IsReusable: true},
	}

	var resp liveStreamResponse
	q := url.Values{"part": {"snippet,cdn,contentDetails"}}
	if err := y.do(ctx, "liveStreams.insert", "/liveStreams", q, body, &resp); err != nil {
		return Stream{}, err
	}

	info := resp.CDN.IngestionInfo
	if resp.ID == "" || info.IngestionAddress == "" || info.StreamName == "" {
		return Stream{}, &APIError{
			Sentinel:  ErrUpstreamBadResponse,
			Operation: "liveStreams.insert",
			Message:   "missing id or ingestion info",
		}
	}
	return Stream{
		ID:      resp.ID,
		RTMPURL: strings.TrimRight(info.IngestionAddress, "/") + "/" + info.StreamName,
	}, nil
}

// InsertBroadcast creates a broadcast scheduled to start now.
func (y *YouTube) InsertBroadcast(ctx context.Context) (string, error) {
	b := y.cfg.Broadcast
	body := broadcastRequest{
		Snippet: snippet{
			Title:              b.Title,
			Description:        b.Description,
			ScheduledStartTime: y.now().UTC().Format(time.RFC3339),
			CategoryID:         b.CategoryID,
		},
		Status: broadcastStatus{
			PrivacyStatus:           b.Privacy,
			SelfDeclaredMadeForKids: b.MadeForKids,
		},
		ContentDetails: broadcastContentDetails{
			EnableAutoStart: b.AutoStart,
			EnableAutoStop:  b.AutoStop,
		},
	}

	var resp idResponse
	q := url.Values{"part": {"snippet,contentDetails,status"}}
	if err := y.do(ctx, "liveBroadcasts.insert", "/liveBroadcasts", q, body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &APIError{Sentinel: ErrUpstreamBadResponse, Operation: "liveBroadcasts.insert", Message: "missing id"}
	}
	return resp.ID, nil
}

// BindBroadcast attaches the broadcast to the reusable stream.
func (y *YouTube) BindBroadcast(ctx context.Context, broadcastID, streamID string) error {
	q := url.Values{
		"part":     {"id,contentDetails"},
		"id":       {broadcastID},
		"streamId": {streamID},
	}
	return y.do(ctx, "liveBroadcasts.bind", "/liveBroadcasts/bind", q, nil, nil)
}

func (y *YouTube) do(ctx context.Context, op, path string, q url.Values, in, out any) error {
	token, err := y.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var payload io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("youtube: %s: encode body: %w", op, err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.base+path+"?"+q.Encode(), payload)
	if err != nil {
		return fmt.Errorf("youtube: %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := y.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &APIError{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return classify(op, res)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &APIError{Sentinel: ErrUpstreamBadResponse, Operation: op, Status: res.StatusCode, Err: err}
	}
	return nil
}

func classify(op string, res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))
	var body apiErrorBody
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}

	sentinel := ErrUpstreamError
	switch res.StatusCode {
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case http.StatusForbidden:
		sentinel = ErrForbidden
	}
	return &APIError{Sentinel: sentinel, Operation: op, Status: res.StatusCode, Message: msg}
}
