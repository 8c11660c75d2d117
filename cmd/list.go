// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
	"github.com/LeeDigitalWorks/assetvault/pkg/library"
	"github.com/LeeDigitalWorks/assetvault/pkg/objectstore"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached assets, or raw bucket objects with --remote",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	f := listCmd.Flags()
	f.Bool("remote", false, "List objects straight from the bucket instead of the cache")
	f.String("prefix", "", "Key prefix for --remote")
	f.Int("max_keys", objectstore.DefaultMaxKeys, "Maximum objects for --remote")
	f.String("category", "", "Only assets of this category")
	f.String("tag", "", "Only assets with this tag")
	f.String("query", "", "Only assets whose name or key contains this text")
	f.Bool("favorites", false, "Only favorite assets")
	f.Int("limit", 0, "Maximum assets to show (0 = all)")
	f.Bool("json", false, "Print JSON instead of a table")
}

func runList(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	asJSON, _ := flags.GetBool("json")

	if remote, _ := flags.GetBool("remote"); remote {
		client, err := objectstore.NewClient(loadStoreOpts(cmd).Config)
		if err != nil {
			return err
		}
		prefix, _ := flags.GetString("prefix")
		maxKeys, _ := flags.GetInt("max_keys")
		entries, err := client.List(cmd.Context(), prefix, maxKeys)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), entries)
		}
		return printEntries(cmd.OutOrStdout(), entries)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var filter library.Filter
	category, _ := flags.GetString("category")
	filter.Category = asset.Category(strings.ToLower(category))
	filter.Tag, _ = flags.GetString("tag")
	filter.Query, _ = flags.GetString("query")
	filter.Favorite, _ = flags.GetBool("favorites")
	filter.Limit, _ = flags.GetInt("limit")

	records := a.library.Find(cmd.Context(), filter)
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), records)
	}
	return printRecords(cmd.OutOrStdout(), records)
}

func printRecords(out io.Writer, records []asset.Record) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSIZE\tTAGS\tFLAGS\tADDED")
	for _, r := range records {
		var flags []string
		if r.Favorite {
			flags = append(flags, "fav")
		}
		if r.Shared {
			flags = append(flags, "shared")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Name,
			r.Category,
			humanize.IBytes(uint64(r.Size)),
			strings.Join(r.Tags, ","),
			strings.Join(flags, ","),
			humanize.Time(r.CreatedAt),
		)
	}
	return w.Flush()
}

func printEntries(out io.Writer, entries []objectstore.Entry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED\tETAG")
	var total int64
	for _, e := range entries {
		total += e.Size
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Key, humanize.IBytes(uint64(e.Size)), humanize.Time(e.LastModified), e.ETag)
	}
	fmt.Fprintf(w, "%s objects\t%s\t\t\n", humanize.Comma(int64(len(entries))), humanize.IBytes(uint64(total)))
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
