// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package review

import (
	"context"
	"errors"
	"net/http"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"frameloop.io/frameloop/objectstore"
	"frameloop.io/frameloop/review/assets"
	"frameloop.io/frameloop/review/completion"
	"frameloop.io/frameloop/review/ingest"
	"frameloop.io/frameloop/review/quota"
	"frameloop.io/frameloop/review/versions"
	"frameloop.io/frameloop/transcode"
)

// Error is the default review peer errs class.
var Error = errs.Class("review")

// Config is the review backend configuration.
type Config struct {
	WebhookAddress string `help:"address the provider webhook endpoint listens on" default:":8090"`

	Quota     quota.Config
	Transcode transcode.Config
}

// Peer is the review backend.
//
// architecture: Peer
type Peer struct {
	Log *zap.Logger
	DB  DB

	Transcoder transcode.Client
	Store      objectstore.Store

	Quota    *quota.Service
	Versions *versions.Service
	Assets   *assets.Service
	Ingest   *ingest.Coordinator

	Completion struct {
		Guard    *completion.Guard
		Handler  *completion.Handler
		Listener *http.Server
	}
}

// New creates a new review peer.
func New(log *zap.Logger, db DB, store objectstore.Store, transcoder transcode.Client, config Config) (*Peer, error) {
	peer := &Peer{
		Log:        log,
		DB:         db,
		Transcoder: transcoder,
		Store:      store,
	}

	peer.Quota = quota.NewService(log.Named("quota"), db.Quota(), config.Quota)

	peer.Versions = versions.NewService(log.Named("versions"), db.Stacks(),
		assets.NewInfoSource(db.Assets()))

	peer.Assets = assets.NewService(log.Named("assets"), db.Assets(),
		peer.Versions, transcoder, store)

	peer.Ingest = ingest.NewCoordinator(log.Named("ingest"), peer.Quota,
		db.Assets(), store, transcoder)

	peer.Completion.Guard = completion.NewGuard(log.Named("completion"),
		peer.Quota, db.Assets(), transcoder, store)
	peer.Completion.Handler = completion.NewHandler(log.Named("webhook"),
		peer.Completion.Guard, config.Transcode.WebhookSecret)
	peer.Completion.Listener = &http.Server{
		Addr:    config.WebhookAddress,
		Handler: peer.Completion.Handler,
	}

	return peer, nil
}

// Run serves the webhook endpoint until ctx is canceled.
func (peer *Peer) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-ctx.Done()
		return Error.Wrap(peer.Completion.Listener.Shutdown(context.Background()))
	})
	group.Go(func() error {
		peer.Log.Info("webhook endpoint listening",
			zap.String("address", peer.Completion.Listener.Addr))
		err := peer.Completion.Listener.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return Error.Wrap(err)
	})

	return group.Wait()
}

// Close releases peer resources. The database is owned by the caller.
func (peer *Peer) Close() error {
	return Error.Wrap(peer.Completion.Listener.Close())
}
