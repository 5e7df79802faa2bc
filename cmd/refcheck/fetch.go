package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citewell/refcheck/internal/fetcher"
	"github.com/citewell/refcheck/internal/reference"
)

var fetchForce bool

func init() {
	fetchCmd.Flags().BoolVar(&fetchForce, "force-refresh", false, "Bypass caches and refetch from providers")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <reference-id>",
	Short: "Resolve a reference and cache it",
	Long: `Resolve a reference identifier and print its content.

Accepts PMID:12345678, DOI:10.1038/xyz, NCT:NCT01234567, bare digit
strings, bare NCT ids, http(s) URLs, and file:<path>.

Example:
  refcheck fetch PMID:12345678`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	f := fetcher.New(cfg)

	ref := f.Fetch(cmd.Context(), args[0], fetchForce)
	if ref == nil {
		exitWithError(ExitNotFound, "could not resolve %s", args[0])
	}

	if humanOutput {
		printReference(ref)
	} else {
		outputJSON(ref)
	}
	return nil
}

func printReference(ref *reference.Content) {
	fmt.Println(ref.ReferenceID)
	if ref.Title != "" {
		fmt.Printf("Title:    %s\n", ref.Title)
	}
	if len(ref.Authors) > 0 {
		fmt.Printf("Authors:  %s\n", strings.Join(ref.Authors, ", "))
	}
	if ref.Journal != "" {
		fmt.Printf("Journal:  %s\n", ref.Journal)
	}
	if ref.Year != "" {
		fmt.Printf("Year:     %s\n", ref.Year)
	}
	if ref.DOI != "" {
		fmt.Printf("DOI:      %s\n", ref.DOI)
	}
	fmt.Printf("Type:     %s\n", ref.ContentType)
	if len(ref.Keywords) > 0 {
		fmt.Printf("Keywords: %s\n", strings.Join(ref.Keywords, "; "))
	}
	for _, f := range ref.SupplementaryFiles {
		fmt.Printf("File:     %s (%s)\n", f.Filename, f.DownloadURL)
	}
	if ref.Content != "" {
		fmt.Println()
		fmt.Println(ref.Content)
	}
}
