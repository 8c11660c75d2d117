// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
	"github.com/LeeDigitalWorks/assetvault/pkg/debug"
	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
	"github.com/LeeDigitalWorks/assetvault/pkg/reconcile"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local cache with the bucket listing",
	Long: `Reconcile the local cache with the bucket. Objects that appeared in the
bucket are added, objects that disappeared are dropped, and tags, favorites
and other curation on known objects are kept.

With --watch the reconcile repeats every --sync_interval and the debug
server (metrics, health, pprof) is started on --debug_port.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	f := syncCmd.Flags()
	f.Bool("watch", false, "Keep running and reconcile periodically")
	f.Duration("sync_interval", 5*time.Minute, "Reconcile interval for --watch")
	f.Int("debug_port", 8010, "Debug/metrics HTTP port for --watch (0 = disabled)")
	f.String("prefix", "", "Only reconcile keys under this prefix")

	viper.BindPFlag("sync_interval", f.Lookup("sync_interval"))
	viper.BindPFlag("debug_port", f.Lookup("debug_port"))
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fl := NewFlagLoader(cmd)

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	prefix, _ := cmd.Flags().GetString("prefix")
	r := reconcile.New(reconcile.Config{Prefix: prefix}, a.client, a.cache)

	if watch, _ := cmd.Flags().GetBool("watch"); !watch {
		res, err := r.Reconcile(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d assets (+%d ~%d -%d) in %s\n",
			res.Outcome, len(res.Assets), res.Added, res.Updated, res.Removed, res.Duration.Round(time.Millisecond))
		return err
	}

	if port := fl.Int("debug_port"); port > 0 {
		debug.SetReadyCheck(func() bool {
			last, _, ok := r.Last()
			return ok && last.Outcome == asset.OutcomeRemote
		})
		debug.SetReady()
		go func() {
			if err := debug.Serve(ctx, fmt.Sprintf(":%d", port)); err != nil {
				logger.Error().Err(err).Msg("debug server failed")
			}
		}()
	}

	events, cancel := a.cache.Subscribe(64)
	defer cancel()
	go func() {
		for e := range events {
			logger.Debug().Str("event", e.Type.String()).Str("id", e.ID).Int("assets", e.Count).Msg("cache changed")
		}
	}()

	interval := fl.Duration("sync_interval")
	log := logger.With().Str("bucket", a.client.Bucket()).Str("prefix", prefix).Logger()
	ctx = logger.WithLogger(ctx, &log)
	log.Info().Dur("interval", interval).Msg("watching bucket")

	err = r.Run(ctx, interval)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
