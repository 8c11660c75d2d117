// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/LeeDigitalWorks/assetvault/pkg/assetcache"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag <id>",
	Short: "Edit tags, favorite and shared flags of an asset",
	Args:  cobra.ExactArgs(1),
	RunE:  runTag,
}

func init() {
	rootCmd.AddCommand(tagCmd)

	f := tagCmd.Flags()
	f.StringSlice("add", nil, "Tags to add")
	f.StringSlice("remove", nil, "Tags to remove")
	f.StringSlice("set", nil, "Replace all tags")
	f.Bool("favorite", false, "Set or clear the favorite flag")
	f.Bool("shared", false, "Set or clear the shared flag")
	f.StringToString("meta", nil, "Metadata entries to set (key=value, empty value deletes)")
}

func runTag(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	var p assetcache.Patch
	p.AddTags, _ = flags.GetStringSlice("add")
	p.RemoveTags, _ = flags.GetStringSlice("remove")
	if flags.Changed("set") {
		set, _ := flags.GetStringSlice("set")
		p.Tags = &set
	}
	if flags.Changed("favorite") {
		v, _ := flags.GetBool("favorite")
		p.Favorite = &v
	}
	if flags.Changed("shared") {
		v, _ := flags.GetBool("shared")
		p.Shared = &v
	}
	p.Metadata, _ = flags.GetStringToString("meta")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.library.Update(cmd.Context(), args[0], p)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), rec)
}
