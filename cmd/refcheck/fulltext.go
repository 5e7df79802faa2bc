package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citewell/refcheck/internal/fulltext"
)

func init() {
	rootCmd.AddCommand(fulltextCmd)
}

var fulltextCmd = &cobra.Command{
	Use:   "fulltext <pmid-or-doi>",
	Short: "Fetch article fulltext through the provider fallback chain",
	Long: `Fetch fulltext for a PMID or DOI.

PMIDs go through BioC, then Europe PMC. DOIs are first converted to a
PMID; failing that, Unpaywall is asked for an open-access location, which
may yield only a PDF link rather than text.

Example:
  refcheck fulltext PMID:12345678
  refcheck fulltext 10.1038/s41586-024-1234`,
	Args: cobra.ExactArgs(1),
	RunE: runFulltext,
}

func runFulltext(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	f := fulltext.NewFetcher(cfg)
	ctx := cmd.Context()

	id := strings.TrimSpace(args[0])
	var result fulltext.Result
	switch {
	case strings.HasPrefix(strings.ToLower(id), "doi:"):
		result = f.FetchForDOI(ctx, id[len("doi:"):])
	case strings.HasPrefix(id, "10."):
		result = f.FetchForDOI(ctx, id)
	default:
		result = f.FetchForPMID(ctx, strings.TrimPrefix(strings.ToUpper(id), "PMID:"))
	}

	if !result.Success {
		exitWithError(ExitNotFound, "no fulltext for %s: %s", id, result.ErrorMessage)
	}

	if humanOutput {
		fmt.Printf("Source: %s (%s)\n", result.Source, result.ContentType)
		for k, v := range result.Metadata {
			fmt.Printf("%s: %s\n", k, v)
		}
		if result.Content != "" {
			fmt.Println()
			fmt.Println(result.Content)
		}
	} else {
		outputJSON(result)
	}
	return nil
}
