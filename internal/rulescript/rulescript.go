package rulescript

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"

	"github.com/jward/loupe/internal/luaparse"
)

// Set is a loaded collection of Risor rule scripts. Each script inspects one
// hook script through host functions and reports findings via report().
type Set struct {
	dir   string
	fsys  fs.FS
	names []string
}

// Option configures a Set.
type Option func(*Set)

// WithFS loads rule scripts from an fs.FS instead of from disk, enabling
// embedding via go:embed. Also wires the Risor importer so rule scripts can
// import shared .risor modules.
func WithFS(fsys fs.FS) Option {
	return func(s *Set) {
		s.fsys = fsys
	}
}

// Load discovers every .risor file under dir (or the configured fs.FS) and
// returns a Set ready to run. Discovery order is sorted by path so runs are
// deterministic.
func Load(dir string, opts ...Option) (*Set, error) {
	s := &Set{dir: dir}
	for _, opt := range opts {
		opt(s)
	}

	var names []string
	if s.fsys != nil {
		err := fs.WalkDir(s.fsys, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				names = append(names, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("rulescript: walk rules fs: %w", err)
		}
	} else {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				rel, rerr := filepath.Rel(dir, path)
				if rerr != nil {
					return rerr
				}
				names = append(names, rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("rulescript: walk rules dir %s: %w", dir, err)
		}
	}
	sort.Strings(names)
	s.names = names
	return s, nil
}

// Names returns the discovered rule script paths.
func (s *Set) Names() []string {
	return s.names
}

// Symbol is the symbol summary exposed to rule scripts.
type Symbol struct {
	Name string
	Kind string
	Type string
	Line int
	Col  int
}

// Input is one hook script presented to the rule set.
type Input struct {
	Doc     *luaparse.Document
	Hook    string
	Mode    string
	Symbols []Symbol
}

// Finding is one diagnostic reported by a rule script.
type Finding struct {
	Script   string
	Line     int
	Col      int
	EndLine  int
	EndCol   int
	Code     string
	Severity string
	Message  string
}

// RuleError records a rule script that failed to run. Failures are per
// script: the rest of the set still runs.
type RuleError struct {
	Script string
	Err    error
}

// Run executes every loaded rule script against the input, collecting
// findings and per-script failures.
func (s *Set) Run(ctx context.Context, in Input) ([]Finding, []RuleError) {
	var findings []Finding
	var errs []RuleError
	for _, name := range s.names {
		src, err := s.load(name)
		if err != nil {
			errs = append(errs, RuleError{Script: name, Err: err})
			continue
		}
		out, err := s.eval(ctx, src, name, in)
		if err != nil {
			errs = append(errs, RuleError{Script: name, Err: err})
			continue
		}
		findings = append(findings, out...)
	}
	return findings, errs
}

// RunSource executes a single inline rule script. Used by tests and by
// callers embedding one-off rules.
func (s *Set) RunSource(ctx context.Context, source string, in Input) ([]Finding, error) {
	return s.eval(ctx, source, "<inline>", in)
}

func (s *Set) eval(ctx context.Context, source, label string, in Input) ([]Finding, error) {
	sink := &findingSink{script: label}
	globals := buildGlobals(in, sink)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := s.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return nil, fmt.Errorf("rulescript: script %s: %w", label, err)
	}
	return sink.findings, nil
}

func (s *Set) load(name string) (string, error) {
	if s.fsys != nil {
		data, err := fs.ReadFile(s.fsys, name)
		if err != nil {
			return "", fmt.Errorf("rulescript: loading %s from fs: %w", name, err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("rulescript: loading %s: %w", name, err)
	}
	return string(data), nil
}

func (s *Set) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}
	if s.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    s.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if s.dir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   s.dir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}
