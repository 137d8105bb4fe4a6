// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zeebo/errs"
)

// Config contains configurable values for the transcoding provider.
type Config struct {
	BaseURL       string        `help:"base URL of the transcoding provider API" default:"https://api.frameloop-encoder.example"`
	TokenID       string        `help:"provider API token id" default:""`
	TokenSecret   string        `help:"provider API token secret" default:""`
	WebhookSecret string        `help:"shared secret for webhook signature verification" default:""`
	Timeout       time.Duration `help:"provider request timeout" default:"30s"`
}

// HTTPClient implements Client over the provider's JSON API.
type HTTPClient struct {
	config Config
	http   http.Client
}

// NewClient creates a new provider client with the given credentials.
func NewClient(config Config) *HTTPClient {
	return &HTTPClient{
		config: config,
		http: http.Client{
			Timeout: config.Timeout,
		},
	}
}

// CreateAsset starts remote processing of the object at sourceURL.
func (client *HTTPClient) CreateAsset(ctx context.Context, sourceURL string) (_ string, err error) {
	body, err := json.Marshal(map[string]string{"input": sourceURL})
	if err != nil {
		return "", Error.Wrap(err)
	}

	var data struct {
		ID string `json:"id"`
	}
	if err := client.do(ctx, http.MethodPost, "/video/assets", body, &data); err != nil {
		return "", err
	}
	if data.ID == "" {
		return "", Error.New("provider returned no asset id")
	}
	return data.ID, nil
}

// DeleteAsset removes the remote asset.
func (client *HTTPClient) DeleteAsset(ctx context.Context, externalID string) (err error) {
	return client.do(ctx, http.MethodDelete, "/video/assets/"+externalID, nil, nil)
}

// do handles base API request routines.
func (client *HTTPClient) do(ctx context.Context, method, path string, body []byte, out interface{}) (err error) {
	req, err := http.NewRequestWithContext(ctx, method, client.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return Error.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(client.config.TokenID, client.config.TokenSecret)

	resp, err := client.http.Do(req)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() {
		err = errs.Combine(err, resp.Body.Close())
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Error.New("unexpected status %s for %s %s", resp.Status, method, path)
	}
	if out == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(json.Unmarshal(envelope.Data, out))
}

// PlaybackURL derives the playback URL for a provider playback id.
func PlaybackURL(playbackID string) string {
	return fmt.Sprintf("https://stream.frameloop-encoder.example/%s.m3u8", playbackID)
}

// ThumbnailURL derives the poster thumbnail URL for a provider playback id.
func ThumbnailURL(playbackID string) string {
	return fmt.Sprintf("https://image.frameloop-encoder.example/%s/thumbnail.jpg", playbackID)
}
