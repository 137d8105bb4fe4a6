// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package transcode talks to the remote transcoding provider: asset
// creation and deletion calls out, asynchronous webhook events back in.
package transcode

import (
	"context"
	"encoding/json"

	"github.com/zeebo/errs"
)

// Error is the default transcode errs class.
var Error = errs.Class("transcode")

// Webhook event types delivered by the provider.
const (
	EventAssetPreparing = "video.asset.preparing"
	EventAssetReady     = "video.asset.ready"
	EventAssetErrored   = "video.asset.errored"
)

// Event is the provider's asynchronous callback payload, trusted only
// after signature verification.
type Event struct {
	Type            string  `json:"type"`
	ExternalID      string  `json:"external_id"`
	PlaybackID      string  `json:"playback_id,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, Error.Wrap(err)
	}
	if event.Type == "" || event.ExternalID == "" {
		return Event{}, Error.New("incomplete event payload")
	}
	return event, nil
}

// Client issues calls against the remote transcoding provider.
type Client interface {
	// CreateAsset starts remote processing of the object at sourceURL and
	// returns the provider's processing id.
	CreateAsset(ctx context.Context, sourceURL string) (externalID string, err error)
	// DeleteAsset removes the remote asset and its derived artifacts.
	DeleteAsset(ctx context.Context, externalID string) error
}
