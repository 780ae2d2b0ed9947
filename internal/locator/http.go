// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const maxResolverBody = 64 << 10

// HTTPResolver asks an external service: GET <endpoint>?id=<id> answers
// {"live": bool, "url": string}.
type HTTPResolver struct {
	endpoint string
	client   *http.Client
	headers  map[string]string
}

type resolverAnswer struct {
	Live bool   `json:"live"`
	URL  string `json:"url"`
}

// NewHTTPResolver creates a resolver backend.
func NewHTTPResolver(endpoint string, client *http.Client, headers map[string]string) *HTTPResolver {
	return &HTTPResolver{endpoint: endpoint, client: client, headers: headers}
}

func (h *HTTPResolver) Name() string { return "http" }

// Find performs one resolver request.
func (h *HTTPResolver) Find(ctx context.Context, id string) (string, error) {
	u, err := url.Parse(h.endpoint)
	if err != nil {
		return "", fmt.Errorf("resolver endpoint: %w", err)
	}
	q := u.Query()
	q.Set("id", id)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolver request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", nil
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("resolver status %d", resp.StatusCode)
	}

	var ans resolverAnswer
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResolverBody)).Decode(&ans); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}
	if !ans.Live {
		return "", nil
	}
	if ans.URL == "" {
		return "", fmt.Errorf("%w: live without url", ErrUnresolvable)
	}
	return ans.URL, nil
}
