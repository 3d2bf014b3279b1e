package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jward/loupe"
	"github.com/jward/loupe/internal/luaparse"
	"github.com/spf13/cobra"
)

var hoverCmd = &cobra.Command{
	Use:   "hover <file> <line> <col>",
	Short: "Describe the symbol under a position",
	Long:  "Looks up what the identifier at the given position refers to and prints its signature and documentation. Line and column are 0-based.",
	Args:  cobra.ExactArgs(3),
	RunE:  runHover,
}

var completeCmd = &cobra.Command{
	Use:   "complete <file> <line> <col>",
	Short: "List completion candidates at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runComplete,
}

var signatureCmd = &cobra.Command{
	Use:   "signature <file> <line> <col>",
	Short: "Show signature help for the call enclosing a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runSignature,
}

func runHover(cmd *cobra.Command, args []string) error {
	req, doc, offset, err := loadPosition(args)
	if err != nil {
		return outputError("hover", err)
	}
	eng, err := buildEngine()
	if err != nil {
		return outputError("hover", err)
	}

	hov, err := eng.Hover(context.Background(), req, offset)
	if err != nil {
		return outputError("hover", err)
	}
	if hov == nil {
		return outputResult(CLIResult{Command: "hover"})
	}
	start := doc.OffsetToPosition(hov.Range.Start)
	end := doc.OffsetToPosition(hov.Range.End)
	return outputResult(CLIResult{Command: "hover", Results: CLIHover{
		Contents:  hov.Contents,
		StartLine: start.Line,
		StartCol:  start.Column,
		EndLine:   end.Line,
		EndCol:    end.Column,
	}})
}

func runComplete(cmd *cobra.Command, args []string) error {
	req, _, offset, err := loadPosition(args)
	if err != nil {
		return outputError("complete", err)
	}
	eng, err := buildEngine()
	if err != nil {
		return outputError("complete", err)
	}

	// The CLI has no typing context, so treat every request as an explicit
	// invocation.
	items, err := eng.Completion(context.Background(), req, offset, true)
	if err != nil {
		return outputError("complete", err)
	}
	out := make([]CLICompletionItem, len(items))
	for i, it := range items {
		out[i] = CLICompletionItem{
			Label:      it.Label,
			Kind:       it.Kind.String(),
			Detail:     it.Detail,
			Doc:        it.Documentation,
			InsertText: it.InsertText,
		}
	}
	return outputResult(CLIResult{Command: "complete", Results: out})
}

func runSignature(cmd *cobra.Command, args []string) error {
	req, _, offset, err := loadPosition(args)
	if err != nil {
		return outputError("signature", err)
	}
	eng, err := buildEngine()
	if err != nil {
		return outputError("signature", err)
	}

	help, err := eng.SignatureHelp(context.Background(), req, offset)
	if err != nil {
		return outputError("signature", err)
	}
	if help == nil {
		return outputResult(CLIResult{Command: "signature"})
	}
	out := CLISignatureHelp{
		Signatures:      make([]CLISignature, len(help.Signatures)),
		ActiveSignature: help.ActiveSignature,
		ActiveParameter: help.ActiveParameter,
	}
	for i, sig := range help.Signatures {
		params := make([]CLIParameter, len(sig.Parameters))
		for j, p := range sig.Parameters {
			params[j] = CLIParameter{Label: p.Label, Doc: p.Documentation}
		}
		out.Signatures[i] = CLISignature{Label: sig.Label, Parameters: params, Doc: sig.Documentation}
	}
	return outputResult(CLIResult{Command: "signature", Results: out})
}

// --- Helpers ---

// loadPosition reads the script named by args[0] and converts the 0-based
// <line> <col> arguments to a byte offset.
func loadPosition(args []string) (loupe.Request, *luaparse.Document, int, error) {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return loupe.Request{}, nil, 0, fmt.Errorf("read %s: %w", args[0], err)
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return loupe.Request{}, nil, 0, err
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return loupe.Request{}, nil, 0, err
	}

	text := string(content)
	doc := luaparse.NewDocument(text, nil)
	offset := doc.PositionToOffset(luaparse.Position{Line: line, Column: col})
	req := loupe.Request{Text: text, Hook: flagHook, Mode: flagMode}
	return req, doc, offset, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// outputResult writes a CLIResult in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}
