package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/citewell/refcheck/internal/fetcher"
	"github.com/citewell/refcheck/internal/validate"
)

var validateText string

func init() {
	validateCmd.Flags().StringVar(&validateText, "text", "", "Supporting text to check (required)")
	validateCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate <reference-id>",
	Short: "Check that supporting text appears in a reference",
	Long: `Resolve a reference and check that the given supporting text appears in
its content.

Example:
  refcheck validate PMID:12345678 --text "the toxin binds the receptor"`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	f := fetcher.New(cfg)

	ref := f.Fetch(cmd.Context(), args[0], false)

	var v validate.SubstringValidator
	result := v.Validate(validateText, ref)
	if result.ReferenceID == "" {
		result.ReferenceID = args[0]
	}

	if humanOutput {
		fmt.Printf("%s: %s\n", result.Severity, result.Message)
	} else {
		outputJSON(result)
	}

	if result.Severity == validate.SeverityError {
		exitWithError(ExitValidation, "%s", result.Message)
	}
	return nil
}
