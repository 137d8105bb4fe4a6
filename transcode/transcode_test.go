// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package transcode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frameloop.io/frameloop/transcode"
)

func TestSignVerify(t *testing.T) {
	body := []byte(`{"type": "video.asset.ready", "external_id": "ext-1"}`)
	signature := transcode.Sign("secret", "1700000000", body)

	assert.True(t, transcode.VerifySignature("secret", "1700000000", body, signature))

	// any changed input invalidates the signature
	assert.False(t, transcode.VerifySignature("other", "1700000000", body, signature))
	assert.False(t, transcode.VerifySignature("secret", "1700000001", body, signature))
	assert.False(t, transcode.VerifySignature("secret", "1700000000", append(body, ' '), signature))
	assert.False(t, transcode.VerifySignature("secret", "1700000000", body, ""))
}

func TestParseEvent(t *testing.T) {
	event, err := transcode.ParseEvent([]byte(`{
		"type": "video.asset.ready",
		"external_id": "ext-1",
		"playback_id": "play-1",
		"duration": 12.5
	}`))
	require.NoError(t, err)
	assert.Equal(t, transcode.Event{
		Type:            transcode.EventAssetReady,
		ExternalID:      "ext-1",
		PlaybackID:      "play-1",
		DurationSeconds: 12.5,
	}, event)

	_, err = transcode.ParseEvent([]byte(`not json`))
	require.Error(t, err)

	// type and external id are mandatory
	_, err = transcode.ParseEvent([]byte(`{"type": "video.asset.ready"}`))
	require.Error(t, err)
	_, err = transcode.ParseEvent([]byte(`{"external_id": "ext-1"}`))
	require.Error(t, err)
}
