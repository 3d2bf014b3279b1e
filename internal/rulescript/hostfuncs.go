package rulescript

import (
	"context"

	"github.com/risor-io/risor/object"

	"github.com/jward/loupe/internal/luaparse"
)

// findingSink collects report() calls made by one script run.
type findingSink struct {
	script   string
	findings []Finding
}

// buildGlobals constructs the globals exposed to rule scripts:
//
//	source()              → the hook script text
//	line(n)               → text of 0-based line n
//	line_count()          → number of lines
//	hook, mode            → strings, possibly empty
//	symbols()             → list of {name, kind, type, line, col} maps
//	position(offset)      → {line, col} for a byte offset
//	offset(line, col)     → byte offset for a position
//	report({...})         → record a finding
func buildGlobals(in Input, sink *findingSink) map[string]any {
	return map[string]any{
		"source":     makeSourceFn(in.Doc),
		"line":       makeLineFn(in.Doc),
		"line_count": makeLineCountFn(in.Doc),
		"hook":       in.Hook,
		"mode":       in.Mode,
		"symbols":    makeSymbolsFn(in.Symbols),
		"position":   makePositionFn(in.Doc),
		"offset":     makeOffsetFn(in.Doc),
		"report":     makeReportFn(sink),
	}
}

func makeSourceFn(doc *luaparse.Document) *object.Builtin {
	return object.NewBuiltin("source", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("source", 0, len(args))
		}
		return object.NewString(doc.Text())
	})
}

func makeLineFn(doc *luaparse.Document) *object.Builtin {
	return object.NewBuiltin("line", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("line", 1, len(args))
		}
		n, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("line: index must be an int, got %s", args[0].Type())
		}
		return object.NewString(doc.Line(int(n.Value())))
	})
}

func makeLineCountFn(doc *luaparse.Document) *object.Builtin {
	return object.NewBuiltin("line_count", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("line_count", 0, len(args))
		}
		return object.NewInt(int64(doc.LineCount()))
	})
}

func makeSymbolsFn(syms []Symbol) *object.Builtin {
	return object.NewBuiltin("symbols", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("symbols", 0, len(args))
		}
		items := make([]object.Object, 0, len(syms))
		for _, s := range syms {
			items = append(items, object.NewMap(map[string]object.Object{
				"name": object.NewString(s.Name),
				"kind": object.NewString(s.Kind),
				"type": object.NewString(s.Type),
				"line": object.NewInt(int64(s.Line)),
				"col":  object.NewInt(int64(s.Col)),
			}))
		}
		return object.NewList(items)
	})
}

func makePositionFn(doc *luaparse.Document) *object.Builtin {
	return object.NewBuiltin("position", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("position", 1, len(args))
		}
		off, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("position: offset must be an int, got %s", args[0].Type())
		}
		p := doc.OffsetToPosition(int(off.Value()))
		return object.NewMap(map[string]object.Object{
			"line": object.NewInt(int64(p.Line)),
			"col":  object.NewInt(int64(p.Column)),
		})
	})
}

func makeOffsetFn(doc *luaparse.Document) *object.Builtin {
	return object.NewBuiltin("offset", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("offset", 2, len(args))
		}
		line, ok := args[0].(*object.Int)
		if !ok {
			return object.Errorf("offset: line must be an int, got %s", args[0].Type())
		}
		col, ok := args[1].(*object.Int)
		if !ok {
			return object.Errorf("offset: col must be an int, got %s", args[1].Type())
		}
		off := doc.PositionToOffset(luaparse.Position{Line: int(line.Value()), Column: int(col.Value())})
		return object.NewInt(int64(off))
	})
}

// makeReportFn creates the report host function. Scripts call it with a map:
//
//	report({"line": 3, "col": 0, "message": "avoid this", "severity": "warning"})
//
// Only message is required. Unset positions default to 0; severity defaults
// upstream when empty.
func makeReportFn(sink *findingSink) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		obj, ok := args[0].(*object.Map)
		if !ok {
			return object.Errorf("report: argument must be a map, got %s", args[0].Type())
		}
		m := obj.Value()

		f := Finding{Script: sink.script}
		f.Message = getString(m, "message")
		if f.Message == "" {
			return object.Errorf("report: message is required")
		}
		f.Code = getString(m, "code")
		f.Severity = getString(m, "severity")
		f.Line = getInt(m, "line")
		f.Col = getInt(m, "col")
		f.EndLine = getInt(m, "end_line")
		f.EndCol = getInt(m, "end_col")
		if f.EndLine == 0 && f.EndCol == 0 {
			f.EndLine = f.Line
			f.EndCol = f.Col
		}

		sink.findings = append(sink.findings, f)
		return object.Nil
	})
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getInt(m map[string]object.Object, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return int(i.Value())
	}
	if f, ok := v.(*object.Float); ok {
		return int(f.Value())
	}
	return 0
}
