// Package analysis runs the two-pass semantic walk over a parsed hook
// script: pass one declares bindings into the symbol table, pass two infers
// expression types, builds the flow graph, and collects diagnostics.
package analysis

import (
	"github.com/jward/loupe/internal/flow"
	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
	"github.com/jward/loupe/internal/symtab"
)

// Severity grades a diagnostic.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	}
	return "unknown"
}

// Diagnostic codes shared by the analyzer and the provider pipeline.
const (
	CodeSyntaxError     = "SyntaxError"
	CodeUnusedLocal     = "UnusedLocal"
	CodeShadowedName    = "ShadowedName"
	CodeScriptTooLarge  = "ScriptTooLarge"
	CodeDisabledGlobal  = "DisabledGlobal"
	CodeReturnShape     = "ReturnShape"
	CodeLoopDepth       = "LoopDepth"
	CodeUnknownField    = "UnknownField"
	CodeArgumentCount   = "ArgumentCount"
	CodeRuleScript      = "RuleScript"
	CodeRuleScriptError = "RuleScriptError"
)

// DiagnosticSource identifies this subsystem in editor-facing diagnostics.
const DiagnosticSource = "loupe"

// Diagnostic is one editor-facing finding.
type Diagnostic struct {
	Range    luaparse.Range
	Severity Severity
	Code     string
	Source   string
	Message  string
}

// Return records one return statement's position and inferred type.
type Return struct {
	Range luaparse.Range
	Type  luatype.Type
}

// LoopInfo records a loop statement and its nesting depth, feeding the
// nested-loop diagnostic.
type LoopInfo struct {
	Range luaparse.Range
	Depth int
}

// CallInfo records an analyzed call: the callee's resolved type (nil when
// unresolved), its rendered name, and the argument count. Feeds the
// argument-count diagnostic.
type CallInfo struct {
	Range    luaparse.Range
	Callee   luatype.Type
	Name     string
	ArgCount int
}

// MemberAccess records a statically-typed member access whose base type was
// resolved, feeding the field-existence diagnostic.
type MemberAccess struct {
	Range    luaparse.Range
	Base     luatype.Type
	BaseName string
	Name     string
	Resolved bool
}

// Result is the full output of one analysis run. It is a fresh,
// independently owned object graph: nothing is shared with other runs.
type Result struct {
	Doc         *luaparse.Document
	Chunk       *luaparse.Chunk
	Symbols     *symtab.Table
	Graph       *flow.Graph
	Diagnostics []Diagnostic
	// Types memoizes inferred expression types keyed by start byte offset.
	Types   map[int]luatype.Type
	Returns []Return
	Loops   []LoopInfo
	Calls   []CallInfo
	Members []MemberAccess
	// Success is false when the parser reported syntax errors.
	Success bool
}

// TypeAt returns the memoized inferred type at a byte offset.
func (r *Result) TypeAt(offset int) (luatype.Type, bool) {
	t, ok := r.Types[offset]
	return t, ok
}

// NarrowingAt reports the branch condition kind (TrueCondition or
// FalseCondition) in effect for the condition at condOffset when execution
// reaches pos. Walks the flow graph backwards from the node bound at pos.
// Returns false when no narrowing applies.
func (r *Result) NarrowingAt(pos, condOffset int) (flow.NodeKind, bool) {
	if r.Graph == nil {
		return 0, false
	}
	id, ok := r.Graph.AtOffset(pos)
	if !ok {
		return 0, false
	}
	seen := map[flow.NodeID]bool{}
	for {
		if seen[id] {
			return 0, false
		}
		seen[id] = true
		kind := r.Graph.Kind(id)
		if (kind == flow.TrueCondition || kind == flow.FalseCondition) && r.Graph.Data(id) == condOffset {
			return kind, true
		}
		ants := r.Graph.Antecedents(id)
		if len(ants) != 1 {
			return 0, false
		}
		id = ants[0]
	}
}
