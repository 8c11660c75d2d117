// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/LeeDigitalWorks/assetvault/pkg/library"
	"github.com/LeeDigitalWorks/assetvault/pkg/objectstore"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload files to the library",
	Long: `Upload one or more files. Keys are routed to --folder, else the project
folder, else the client folder, else a folder named after the file type.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	f := uploadCmd.Flags()
	f.String("folder", "", "Explicit destination folder")
	f.String("project", "", "Project name, used as folder when --folder is empty")
	f.String("client", "", "Client name, used as folder when --folder and --project are empty")
	f.StringSlice("tags", nil, "Tags to add to every uploaded asset")
	f.String("uploader_id", "", "Uploader id recorded on the assets")
	f.String("uploader_name", "", "Uploader display name recorded on the assets")
	f.Bool("shared", false, "Mark uploaded assets as shared")
	f.Int("concurrency", objectstore.DefaultConcurrency, "Uploads in flight at once")
	f.Float64("uploads_per_second", 0, "Throttle upload starts (0 = unlimited)")

	viper.BindPFlag("concurrency", f.Lookup("concurrency"))
	viper.BindPFlag("uploads_per_second", f.Lookup("uploads_per_second"))
}

func runUpload(cmd *cobra.Command, args []string) error {
	fl := NewFlagLoader(cmd)

	files := make([]library.File, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, library.File{Name: filepath.Base(path), Data: data})
	}

	concurrency := fl.Int("concurrency")
	a, err := newApp(cmd,
		objectstore.WithConcurrency(concurrency),
		objectstore.WithRateLimit(fl.Float64("uploads_per_second"), concurrency),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	uploaderID := fl.String("uploader_id")
	if uploaderID == "" {
		uploaderID = os.Getenv("USER")
	}
	shared, _ := cmd.Flags().GetBool("shared")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	folder, _ := cmd.Flags().GetString("folder")
	project, _ := cmd.Flags().GetString("project")
	client, _ := cmd.Flags().GetString("client")

	out := a.library.Upload(cmd.Context(), library.UploadRequest{
		Files:        files,
		Route:        objectstore.Route{Folder: folder, Project: project, Client: client},
		UploaderID:   uploaderID,
		UploaderName: fl.String("uploader_name"),
		Tags:         tags,
		Shared:       shared,
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tRESULT\tSIZE\tKEY / ERROR")
	failed := 0
	for _, o := range out {
		if o.Outcome != library.OutcomeRemote {
			failed++
			fmt.Fprintf(w, "%s\t%s\t\t%v\n", o.Name, o.Outcome, o.Err)
			continue
		}
		detail := o.Record.Key
		if o.Err != nil {
			detail += " (" + o.Err.Error() + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Name, o.Outcome, humanize.IBytes(uint64(o.Record.Size)), detail)
	}
	w.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(out))
	}
	return nil
}
