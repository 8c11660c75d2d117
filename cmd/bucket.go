// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/LeeDigitalWorks/assetvault/pkg/objectstore"

	"github.com/spf13/cobra"
)

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Bucket administration",
}

var bucketEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the configured bucket if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := objectstore.NewClient(loadStoreOpts(cmd).Config)
		if err != nil {
			return err
		}
		if err := client.EnsureBucket(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "bucket %s ready\n", client.Bucket())
		return nil
	},
}

func init() {
	bucketCmd.AddCommand(bucketEnsureCmd)
	rootCmd.AddCommand(bucketCmd)
}
