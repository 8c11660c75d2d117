// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/env"
	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
	"github.com/LeeDigitalWorks/assetvault/pkg/s3mem"
	"github.com/LeeDigitalWorks/assetvault/pkg/signature"

	"github.com/spf13/cobra"
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory S3-compatible server for local development",
	Long: `Run an in-memory S3-compatible server. It verifies SigV4 signatures made
with --access_key/--secret_key unless --anonymous is given. Nothing is
persisted.`,
	RunE: runDevServer,
}

func init() {
	rootCmd.AddCommand(devserverCmd)

	f := devserverCmd.Flags()
	f.String("addr", "127.0.0.1:9000", "Listen address")
	f.Bool("anonymous", false, "Accept unsigned requests")
	f.StringSlice("create_buckets", nil, "Buckets to create at startup (default: --bucket)")
}

func runDevServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fl := NewFlagLoader(cmd)
	flags := cmd.Flags()

	if env.IsProduction() {
		logger.Warn().Msg("devserver keeps everything in memory and is not meant for production")
	}

	buckets, _ := flags.GetStringSlice("create_buckets")
	if len(buckets) == 0 {
		buckets = []string{fl.String("bucket")}
	}
	opts := []s3mem.Option{s3mem.WithBuckets(buckets...)}

	if anonymous, _ := flags.GetBool("anonymous"); !anonymous {
		accessKey, secretKey := fl.String("access_key"), fl.String("secret_key")
		if accessKey == "" || secretKey == "" {
			return errors.New("devserver needs --access_key and --secret_key, or --anonymous")
		}
		opts = append(opts, s3mem.WithCredentials(signature.StaticCredentials{accessKey: secretKey}))
	}

	addr, _ := flags.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           s3mem.New(opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Strs("buckets", buckets).Msg("s3mem listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
