package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIFinding is a JSON-friendly diagnostic with resolved positions.
type CLIFinding struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	EndLine  int    `json:"end_line"`
	EndCol   int    `json:"end_col"`
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Source   string `json:"source,omitempty"`
	Message  string `json:"message"`
}

// CLIFileReport is one checked file with its findings.
type CLIFileReport struct {
	File     string       `json:"file"`
	Cached   bool         `json:"cached,omitempty"`
	Findings []CLIFinding `json:"findings"`
}

// CLICompletionItem is a JSON-friendly completion item.
type CLICompletionItem struct {
	Label      string `json:"label"`
	Kind       string `json:"kind"`
	Detail     string `json:"detail,omitempty"`
	Doc        string `json:"doc,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
}

// CLIHover is a JSON-friendly hover response.
type CLIHover struct {
	Contents  string `json:"contents"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIParameter is one parameter of a CLI signature.
type CLIParameter struct {
	Label string `json:"label"`
	Doc   string `json:"doc,omitempty"`
}

// CLISignature is a JSON-friendly signature.
type CLISignature struct {
	Label      string         `json:"label"`
	Parameters []CLIParameter `json:"parameters"`
	Doc        string         `json:"doc,omitempty"`
}

// CLISignatureHelp is a JSON-friendly signature-help response.
type CLISignatureHelp struct {
	Signatures      []CLISignature `json:"signatures"`
	ActiveSignature int            `json:"active_signature"`
	ActiveParameter int            `json:"active_parameter"`
}
