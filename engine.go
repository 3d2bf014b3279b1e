package loupe

import (
	"context"
	"fmt"

	"github.com/jward/loupe/internal/analysis"
	"github.com/jward/loupe/internal/catalog"
	"github.com/jward/loupe/internal/rulescript"
)

// Defaults for the engine's tunable limits.
const (
	DefaultMaxScriptBytes     = 64 * 1024
	DefaultMaxLoopDepth       = 3
	DefaultMaxPerCode         = 20
	DefaultMaxCompletionItems = 200
)

// Engine answers editor requests for hook scripts: diagnostics, completion,
// hover, and signature help. It is stateless per request: every call
// re-parses and re-analyzes the full script text, so concurrent use across
// documents is safe and no incremental invalidation exists to get wrong.
type Engine struct {
	cat *catalog.Catalog

	maxScriptBytes     int
	maxLoopDepth       int
	maxPerCode         int
	maxCompletionItems int
	suppressed         map[string]bool
	includeHints       bool
	rules              *rulescript.Set
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog replaces the embedded definition catalog. Used by tests and
// by hosts that ship their own sandbox surface.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(e *Engine) {
		e.cat = cat
	}
}

// WithMaxScriptBytes sets the script-size ceiling for the ScriptTooLarge
// diagnostic.
func WithMaxScriptBytes(n int) Option {
	return func(e *Engine) {
		e.maxScriptBytes = n
	}
}

// WithMaxLoopDepth sets the nesting depth above which loops are flagged.
func WithMaxLoopDepth(n int) Option {
	return func(e *Engine) {
		e.maxLoopDepth = n
	}
}

// WithMaxPerCode caps how many diagnostics of a single code are returned.
func WithMaxPerCode(n int) Option {
	return func(e *Engine) {
		e.maxPerCode = n
	}
}

// WithMaxCompletionItems caps the completion result size.
func WithMaxCompletionItems(n int) Option {
	return func(e *Engine) {
		e.maxCompletionItems = n
	}
}

// WithSuppressedCodes drops diagnostics carrying any of the given codes.
func WithSuppressedCodes(codes ...string) Option {
	return func(e *Engine) {
		if e.suppressed == nil {
			e.suppressed = make(map[string]bool, len(codes))
		}
		for _, c := range codes {
			e.suppressed[c] = true
		}
	}
}

// WithHints controls whether hint-severity diagnostics are returned.
// Enabled by default.
func WithHints(enabled bool) Option {
	return func(e *Engine) {
		e.includeHints = enabled
	}
}

// WithRuleScripts plugs a loaded rule set into the diagnostics pipeline.
func WithRuleScripts(set *rulescript.Set) Option {
	return func(e *Engine) {
		e.rules = set
	}
}

// New builds an Engine with the embedded catalog and default limits.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		maxScriptBytes:     DefaultMaxScriptBytes,
		maxLoopDepth:       DefaultMaxLoopDepth,
		maxPerCode:         DefaultMaxPerCode,
		maxCompletionItems: DefaultMaxCompletionItems,
		includeHints:       true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cat == nil {
		cat, err := catalog.Load()
		if err != nil {
			return nil, fmt.Errorf("loupe: load catalog: %w", err)
		}
		e.cat = cat
	}
	return e, nil
}

// Request is one editor request's immutable inputs.
type Request struct {
	// Text is the full current hook script source.
	Text string
	// Hook selects hook-specific context fields; may be empty.
	Hook string
	// Mode is the execution mode governing return-shape checks; may be
	// empty.
	Mode string
}

// Analyze parses and analyzes the request's script, returning the raw
// semantic model. Most callers want Diagnostics, Completion, Hover, or
// SignatureHelp instead; this is the shared first step they all take.
func (e *Engine) Analyze(ctx context.Context, req Request) (*AnalysisResult, error) {
	res, err := analysis.Analyze(ctx, req.Text, req.Hook, e.cat)
	if err != nil {
		return nil, fmt.Errorf("loupe: analyze: %w", err)
	}
	return res, nil
}

// Catalog exposes the engine's definition catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}
