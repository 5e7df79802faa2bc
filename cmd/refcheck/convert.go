package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citewell/refcheck/internal/idconv"
)

func init() {
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert <conversion> <id>",
	Short: "Convert between DOI, PMID and PMCID",
	Long: `Convert an identifier across the NCBI namespaces.

Conversions:
  doi-to-pmid    10.1038/xyz   -> 12345678
  pmid-to-pmcid  12345678      -> PMC1234567
  pmid-to-doi    12345678      -> 10.1038/xyz
  pmcid-to-pmid  PMC1234567    -> 12345678

Example:
  refcheck convert doi-to-pmid 10.1038/s41586-024-1234`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	conv := idconv.New(cfg)
	ctx := cmd.Context()

	var result string
	switch strings.ToLower(args[0]) {
	case "doi-to-pmid":
		result = conv.DOIToPMID(ctx, args[1])
	case "pmid-to-pmcid":
		result = conv.PMIDToPMCID(ctx, args[1])
	case "pmid-to-doi":
		result = conv.PMIDToDOI(ctx, args[1])
	case "pmcid-to-pmid":
		result = conv.PMCIDToPMID(ctx, args[1])
	default:
		return fmt.Errorf("unknown conversion %q", args[0])
	}

	if result == "" {
		exitWithError(ExitNotFound, "no %s mapping for %s", args[0], args[1])
	}

	if humanOutput {
		fmt.Println(result)
	} else {
		outputJSON(map[string]string{"input": args[1], "conversion": args[0], "result": result})
	}
	return nil
}
