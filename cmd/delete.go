// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete assets from the bucket and the cache",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var failed int
		for _, id := range args {
			if _, err := a.library.Delete(cmd.Context(), id); err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", id, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d deletes failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
