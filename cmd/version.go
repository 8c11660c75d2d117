// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"runtime"

	"github.com/LeeDigitalWorks/assetvault/pkg/env"

	"github.com/spf13/cobra"
)

// Build-time variables (set via -ldflags)
var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// GitCommit is the git commit hash
	GitCommit = "unknown"

	// BuildDate is the build timestamp
	BuildDate = "unknown"
)

func init() {
	rootCmd.AddCommand(versionCmd)

	// Also support --version flag on root command
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("assetvault {{.Version}}\n")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "assetvault %s\n", Version)
		fmt.Fprintf(out, "  Git commit:  %s\n", GitCommit)
		fmt.Fprintf(out, "  Built:       %s\n", BuildDate)
		fmt.Fprintf(out, "  Go version:  %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:     %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "  Environment: %s\n", env.Current())
	},
}

// VersionInfo returns structured version information.
func VersionInfo() map[string]string {
	return map[string]string{
		"version":     Version,
		"git_commit":  GitCommit,
		"build_date":  BuildDate,
		"go_version":  runtime.Version(),
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
		"environment": env.Current(),
	}
}
