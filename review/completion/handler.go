// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package completion

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"frameloop.io/frameloop/transcode"
)

// Signature headers sent by the transcoding provider.
const (
	HeaderTimestamp = "Frameloop-Webhook-Timestamp"
	HeaderSignature = "Frameloop-Webhook-Signature"
)

// maxWebhookBody bounds the callback payload size.
const maxWebhookBody = 1 << 20

// Handler is the single webhook endpoint the provider posts callbacks to.
type Handler struct {
	log    *zap.Logger
	guard  *Guard
	secret string
}

// NewHandler creates the webhook handler.
func NewHandler(log *zap.Logger, guard *Guard, secret string) *Handler {
	return &Handler{
		log:    log,
		guard:  guard,
		secret: secret,
	}
}

// ServeHTTP implements http.Handler.
func (handler *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	timestamp := r.Header.Get(HeaderTimestamp)
	signature := r.Header.Get(HeaderSignature)
	if !transcode.VerifySignature(handler.secret, timestamp, body, signature) {
		handler.log.Warn("webhook signature mismatch")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := transcode.ParseEvent(body)
	if err != nil {
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}

	if err := handler.guard.HandleEvent(r.Context(), event); err != nil {
		handler.log.Error("callback handling failed",
			zap.String("external id", event.ExternalID),
			zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
