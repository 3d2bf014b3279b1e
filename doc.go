// Package loupe provides editor intelligence for sandboxed Lua hook
// scripts: diagnostics, completion, hover, and signature help, built on
// tree-sitter and a static definition catalog of the script sandbox.
//
// # Pipeline
//
// Every request re-parses and re-analyzes the full script text. Analysis
// runs in two passes:
//
//  1. Declare: walk the tree and populate the scoped symbol table with
//     locals, parameters, functions, and loop variables.
//
//  2. Infer: walk again to infer expression types, thread the control-flow
//     graph for reachability and truthiness narrowing, and collect
//     diagnostics.
//
// Nothing is retained between requests; the engine holds only immutable
// configuration and the catalog.
//
// # Usage
//
// Create an Engine and issue queries against script text:
//
//	e, err := loupe.New()
//	if err != nil { ... }
//
//	ctx := context.Background()
//	req := loupe.Request{Text: source, Hook: "on_task_complete", Mode: "filter"}
//
//	diags, err := e.Diagnostics(ctx, req)
//	items, err := e.Completion(ctx, req, offset, false)
//	hov, err := e.Hover(ctx, req, offset)
//	help, err := e.SignatureHelp(ctx, req, offset)
//
// # Query API
//
//   - [Engine.Diagnostics]: analyzer findings plus an ordered provider
//     pipeline: script size, disabled globals, return shape per execution
//     mode, loop nesting depth, unknown fields, argument counts, and custom
//     rule scripts.
//   - [Engine.Completion]: member, environment, and keyword providers with
//     trigger classification from the character before the cursor.
//   - [Engine.Hover]: documentation and inferred types for the word under
//     the cursor.
//   - [Engine.SignatureHelp]: the enclosing call's signature with the
//     active parameter.
//
// # Checking files on disk
//
// [Engine.NewChecker] wraps the engine for CLI use: it checks many files
// through a worker pool, skips unchanged files via a SQLite results cache,
// and can diff findings against a stored baseline.
//
// # Custom rules
//
// Rule scripts written in Risor extend the diagnostics pipeline. They
// receive the script source, symbol summary, hook, and mode via host
// functions and emit findings with report(...). See internal/rulescript.
package loupe
