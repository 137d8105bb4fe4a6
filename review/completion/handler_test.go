// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package completion_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"frameloop.io/frameloop/internal/testcontext"
	"frameloop.io/frameloop/review/assets"
	"frameloop.io/frameloop/review/completion"
	"frameloop.io/frameloop/transcode"
)

const webhookSecret = "test-webhook-secret"

func post(t *testing.T, handler http.Handler, body []byte, sign bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/transcode", bytes.NewReader(body))
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(completion.HeaderTimestamp, timestamp)
	if sign {
		req.Header.Set(completion.HeaderSignature, transcode.Sign(webhookSecret, timestamp, body))
	} else {
		req.Header.Set(completion.HeaderSignature, "deadbeef")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandlerSignature(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := setup(t, 100*gigabyte)
	asset := f.createProcessing(ctx, t, uuid.New(), gigabyte)
	handler := completion.NewHandler(zaptest.NewLogger(t), f.guard, webhookSecret)

	body := []byte(`{"type": "video.asset.ready", "external_id": "` + asset.ExternalID + `", "playback_id": "play-1"}`)

	// a tampered signature is rejected without touching the asset
	rec := post(t, handler, body, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	unchanged, err := f.db.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, assets.StatusProcessing, unchanged.Status)

	// a valid signature is applied
	rec = post(t, handler, body, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	updated, err := f.db.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, assets.StatusReady, updated.Status)
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := setup(t, 100*gigabyte)
	handler := completion.NewHandler(zaptest.NewLogger(t), f.guard, webhookSecret)

	rec := post(t, handler, []byte(`{"type": "video.asset.ready"}`), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, handler, []byte(`not json`), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/transcode", nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, getRec.Code)
}
