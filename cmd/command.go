// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
	"github.com/LeeDigitalWorks/assetvault/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "assetvault",
	Short: "assetvault - media library on S3-compatible storage",
	Long: `assetvault manages a media and asset library kept in an S3-compatible bucket.
Objects live in the bucket; tags, favorites and other curation live in a local
cache that is reconciled with the bucket listing.`,
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
	f.String("log_level", "", "Log level (trace, debug, info, warn, error)")
	f.String("log_format", "", "Log format: console or json (default: $LOG_FORMAT, else console)")

	// Object store
	f.String("endpoint", "http://127.0.0.1:9000", "S3-compatible endpoint URL")
	f.String("bucket", "assets", "Bucket holding the library")
	f.String("region", "us-east-1", "Signing region")
	f.String("access_key", "", "Access key ID (env: ASSETVAULT_ACCESS_KEY)")
	f.String("secret_key", "", "Secret access key (env: ASSETVAULT_SECRET_KEY)")
	f.Duration("request_timeout", 30*time.Second, "Timeout for a single object store request")

	// Local cache
	f.String("cache_backend", "leveldb", "Cache backend: leveldb, redis or memory")
	f.String("cache_path", "~/.assetvault/cache", "LevelDB directory for the leveldb backend")
	f.String("redis_addr", "127.0.0.1:6379", "Redis address for the redis backend")
	f.String("redis_password", "", "Redis password")
	f.Int("redis_db", 0, "Redis database number")
	f.String("redis_key", "", "Redis key holding the cache document")

	viper.BindPFlags(f)
}

// initialize loads assetvault.{yaml,toml,json} and applies the log settings.
func initialize(cmd *cobra.Command, args []string) error {
	utils.LoadConfiguration("assetvault", false)

	fl := NewFlagLoader(cmd)
	if level := fl.String("log_level"); level != "" {
		lvl, err := zerolog.ParseLevel(level)
		if err != nil {
			return err
		}
		logger.SetLevel(lvl)
	}
	if format := fl.String("log_format"); format != "" {
		w, err := logOutput(format, os.Stderr)
		if err != nil {
			return err
		}
		logger.SetOutput(w)
	}
	return nil
}

// logOutput wraps w for the requested log format.
func logOutput(format string, w io.Writer) (io.Writer, error) {
	switch format {
	case "json":
		return w, nil
	case "console":
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}, nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", format)
	}
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
