package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

var validFormats = []string{"json", "text"}

// validateFormat checks the --format flag value.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// formatFileReportsText formats findings as "file:line:col: severity [code] message"
// lines, the shape editors and CI logs already know how to parse.
func formatFileReportsText(w io.Writer, reports []CLIFileReport) {
	total := 0
	for _, r := range reports {
		for _, f := range r.Findings {
			// Printed 1-based; stored 0-based.
			fmt.Fprintf(w, "%s:%d:%d: %s [%s] %s\n",
				r.File, f.Line+1, f.Col+1, f.Severity, f.Code, f.Message)
			total++
		}
	}
	if total == 0 {
		fmt.Fprintf(w, "%d file(s) checked, no findings\n", len(reports))
	}
}

// formatCompletionsText formats completion items as aligned columns.
func formatCompletionsText(w io.Writer, items []CLICompletionItem) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tKIND\tDETAIL")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Label, it.Kind, it.Detail)
	}
	tw.Flush()
}

// formatHoverText prints the hover markdown as-is.
func formatHoverText(w io.Writer, hov CLIHover) {
	fmt.Fprintln(w, hov.Contents)
}

// formatSignatureHelpText prints each signature, marking the active one and
// the active parameter.
func formatSignatureHelpText(w io.Writer, help CLISignatureHelp) {
	for i, sig := range help.Signatures {
		marker := "  "
		if i == help.ActiveSignature {
			marker = "* "
		}
		fmt.Fprintf(w, "%s%s\n", marker, sig.Label)
		if i == help.ActiveSignature && help.ActiveParameter < len(sig.Parameters) {
			fmt.Fprintf(w, "    parameter: %s\n", sig.Parameters[help.ActiveParameter].Label)
		}
		if sig.Doc != "" {
			fmt.Fprintf(w, "    %s\n", sig.Doc)
		}
	}
}

// outputResultText dispatches text formatting based on result type.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLIFileReport:
		formatFileReportsText(w, v)
	case []CLICompletionItem:
		formatCompletionsText(w, v)
	case CLIHover:
		formatHoverText(w, v)
	case CLISignatureHelp:
		formatSignatureHelpText(w, v)
	case nil:
		// No output for nil results (e.g., hover with nothing under the cursor).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}
