package loupe

import (
	"github.com/jward/loupe/internal/analysis"
	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/luatype"
)

// Public type aliases for the internal analysis model. These are Go type
// aliases (=), identical to the internal types at compile time. External
// consumers use these names; no conversion is needed.

type AnalysisResult = analysis.Result
type Diagnostic = analysis.Diagnostic
type Severity = analysis.Severity
type Range = luaparse.Range
type Position = luaparse.Position
type Document = luaparse.Document
type Type = luatype.Type

const (
	SeverityError       = analysis.SeverityError
	SeverityWarning     = analysis.SeverityWarning
	SeverityInformation = analysis.SeverityInformation
	SeverityHint        = analysis.SeverityHint
)

// Diagnostic codes, re-exported for suppression sets and baselines.
const (
	CodeSyntaxError     = analysis.CodeSyntaxError
	CodeUnusedLocal     = analysis.CodeUnusedLocal
	CodeShadowedName    = analysis.CodeShadowedName
	CodeScriptTooLarge  = analysis.CodeScriptTooLarge
	CodeDisabledGlobal  = analysis.CodeDisabledGlobal
	CodeReturnShape     = analysis.CodeReturnShape
	CodeLoopDepth       = analysis.CodeLoopDepth
	CodeUnknownField    = analysis.CodeUnknownField
	CodeArgumentCount   = analysis.CodeArgumentCount
	CodeRuleScript      = analysis.CodeRuleScript
	CodeRuleScriptError = analysis.CodeRuleScriptError
)
