// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// frameloop runs the video-review collaboration backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"frameloop.io/frameloop/objectstore/teststore"
	"frameloop.io/frameloop/review"
	"frameloop.io/frameloop/review/quota"
	"frameloop.io/frameloop/reviewdb"
	"frameloop.io/frameloop/transcode"
)

var (
	rootCmd = &cobra.Command{
		Use:   "frameloop",
		Short: "Frameloop review backend",
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the review backend",
		RunE:  cmdRun,
	}
	setupCmd = &cobra.Command{
		Use:         "setup",
		Short:       "Create database tables and a config file",
		RunE:        cmdSetup,
		Annotations: map[string]string{"type": "setup"},
	}
	reconcileCmd = &cobra.Command{
		Use:   "reconcile [tenant-id]",
		Short: "Recompute a tenant's quota counter from ground truth",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdReconcile,
	}

	confPath string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&confPath, "config", "frameloop.yaml", "path to the config file")

	flags := rootCmd.PersistentFlags()
	flags.String("database", "sqlite3://frameloop.db", "database connection string")
	flags.String("webhook-address", ":8090", "address the provider webhook endpoint listens on")
	flags.Int64("quota.limit-bytes", 100<<30, "fixed per-tenant storage limit in bytes")
	flags.String("transcode.base-url", "https://api.frameloop-encoder.example", "base URL of the transcoding provider API")
	flags.String("transcode.token-id", "", "provider API token id")
	flags.String("transcode.token-secret", "", "provider API token secret")
	flags.String("transcode.webhook-secret", "", "shared secret for webhook signature verification")
	flags.Duration("transcode.timeout", 30*time.Second, "provider request timeout")

	cobra.OnInitialize(func() {
		_ = viper.BindPFlags(rootCmd.PersistentFlags())
		viper.SetConfigFile(confPath)
		viper.SetEnvPrefix("FRAMELOOP")
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				fmt.Fprintln(os.Stderr, "config:", err)
			}
		}
	})

	rootCmd.AddCommand(runCmd, setupCmd, reconcileCmd)
}

func loadConfig() (string, review.Config) {
	return viper.GetString("database"), review.Config{
		WebhookAddress: viper.GetString("webhook-address"),
		Quota: quota.Config{
			LimitBytes: viper.GetInt64("quota.limit-bytes"),
		},
		Transcode: transcode.Config{
			BaseURL:       viper.GetString("transcode.base-url"),
			TokenID:       viper.GetString("transcode.token-id"),
			TokenSecret:   viper.GetString("transcode.token-secret"),
			WebhookSecret: viper.GetString("transcode.webhook-secret"),
			Timeout:       viper.GetDuration("transcode.timeout"),
		},
	}
}

func cmdRun(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := zap.NewProduction()
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { _ = log.Sync() }()

	databaseURL, config := loadConfig()
	db, err := reviewdb.Open(log.Named("db"), databaseURL)
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { err = errs.Combine(err, db.Close()) }()

	if err := db.CreateTables(ctx); err != nil {
		return errs.Wrap(err)
	}

	// TODO(uploads): swap for the real object-store credential issuer once
	// the provider wrapper lands.
	store := teststore.New()
	log.Warn("using in-memory object store stub")

	peer, err := review.New(log, db, store, transcode.NewClient(config.Transcode), config)
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { err = errs.Combine(err, peer.Close()) }()

	return peer.Run(ctx)
}

func cmdSetup(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	log, err := zap.NewDevelopment()
	if err != nil {
		return errs.Wrap(err)
	}

	databaseURL, _ := loadConfig()
	db, err := reviewdb.Open(log.Named("db"), databaseURL)
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { err = errs.Combine(err, db.Close()) }()

	if err := db.CreateTables(ctx); err != nil {
		return errs.Wrap(err)
	}
	if err := viper.WriteConfigAs(confPath); err != nil {
		return errs.Wrap(err)
	}
	fmt.Println("configuration saved to", confPath)
	return nil
}

func cmdReconcile(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	tenantID, err := uuid.Parse(args[0])
	if err != nil {
		return errs.New("invalid tenant id %q: %v", args[0], err)
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return errs.Wrap(err)
	}

	databaseURL, config := loadConfig()
	db, err := reviewdb.Open(log.Named("db"), databaseURL)
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { err = errs.Combine(err, db.Close()) }()

	usage, err := quota.NewService(log.Named("quota"), db.Quota(), config.Quota).Reconcile(ctx, tenantID)
	if err != nil {
		return errs.Wrap(err)
	}
	fmt.Printf("tenant %s: used %d of %d bytes (%d remaining)\n",
		tenantID, usage.UsedBytes, usage.LimitBytes, usage.Remaining())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
