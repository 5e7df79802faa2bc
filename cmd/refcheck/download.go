package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/citewell/refcheck/internal/download"
	"github.com/citewell/refcheck/internal/fetcher"
)

var downloadDir string

func init() {
	downloadCmd.Flags().StringVar(&downloadDir, "dir", "", "Destination directory (default: <cache-dir>/files)")
	rootCmd.AddCommand(downloadCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download <reference-id>",
	Short: "Download a reference's supplementary files",
	Long: `Resolve a reference and download its supplementary files, verifying
checksums when the repository provides them.

Example:
  refcheck download DOI:10.5281/zenodo.7961621`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	f := fetcher.New(cfg)
	ctx := cmd.Context()

	ref := f.Fetch(ctx, args[0], false)
	if ref == nil {
		exitWithError(ExitNotFound, "could not resolve %s", args[0])
	}
	if len(ref.SupplementaryFiles) == 0 {
		exitWithError(ExitNotFound, "%s has no supplementary files", ref.ReferenceID)
	}

	dest := downloadDir
	if dest == "" {
		dest = filepath.Join(cfg.CacheDir, "files")
	}

	d := download.New(cfg)
	failed := 0
	for i := range ref.SupplementaryFiles {
		sf := &ref.SupplementaryFiles[i]
		if err := d.DownloadSupplementary(ctx, sf, dest); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			failed++
			continue
		}
		if humanOutput {
			fmt.Printf("%s -> %s\n", sf.Filename, sf.LocalPath)
		}
	}

	if !humanOutput {
		outputJSON(ref.SupplementaryFiles)
	}
	if failed > 0 {
		exitWithError(ExitError, "%d of %d downloads failed", failed, len(ref.SupplementaryFiles))
	}
	return nil
}
