package loupe

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/jward/loupe/internal/luaparse"
	"github.com/jward/loupe/internal/store"
)

// FileReport is the outcome of checking one file.
type FileReport struct {
	Path        string
	Diagnostics []Diagnostic
	// Doc converts diagnostic byte ranges to line/column for output.
	Doc *Document
	// Cached is set when the file was unchanged and the diagnostics come
	// from the results cache instead of a fresh analysis.
	Cached bool
}

// Checker runs the engine over files on disk, optionally skipping unchanged
// files via a results cache and filtering against a stored baseline.
type Checker struct {
	eng      *Engine
	req      Request
	cache    *store.Store
	baseline *store.Store
	workers  int
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithCache records results in the store and skips files whose content hash
// is unchanged since the last check.
func WithCache(s *store.Store) CheckerOption {
	return func(c *Checker) { c.cache = s }
}

// WithBaseline drops findings already present in the baseline store, leaving
// only new ones.
func WithBaseline(s *store.Store) CheckerOption {
	return func(c *Checker) { c.baseline = s }
}

// WithWorkers sets the analysis worker count. Defaults to GOMAXPROCS-ish.
func WithWorkers(n int) CheckerOption {
	return func(c *Checker) { c.workers = n }
}

// NewChecker builds a Checker. The hook and mode of req apply to every file;
// req.Text is ignored.
func (e *Engine) NewChecker(req Request, opts ...CheckerOption) *Checker {
	c := &Checker{eng: e, req: req}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// workItem holds everything an analysis worker needs for one file.
type workItem struct {
	index int
	path  string
	text  string
	hash  string
}

// CheckFiles checks files in three phases: serial preparation (read, hash,
// cache lookup), parallel analysis via a worker pool, and serial recording.
// Reports come back in input order.
func (c *Checker) CheckFiles(ctx context.Context, paths []string) ([]FileReport, error) {
	reports := make([]FileReport, len(paths))

	var items []workItem
	for i, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		text := string(content)
		hash := store.ContentHash(content)
		doc := luaparse.NewDocument(text, nil)

		if c.cache != nil {
			cached, err := c.cache.FileByPath(path)
			if err != nil {
				return nil, fmt.Errorf("cache lookup %s: %w", path, err)
			}
			if cached != nil && cached.Hash == hash {
				findings, err := c.cache.FindingsByPath(path)
				if err != nil {
					return nil, fmt.Errorf("cache read %s: %w", path, err)
				}
				reports[i] = FileReport{
					Path:        path,
					Diagnostics: findingsToDiagnostics(doc, findings),
					Doc:         doc,
					Cached:      true,
				}
				continue
			}
		}
		items = append(items, workItem{index: i, path: path, text: text, hash: hash})
	}

	if len(items) > 0 {
		if err := c.analyzeItems(ctx, items, reports); err != nil {
			return nil, err
		}
	}

	if c.baseline != nil {
		for i := range reports {
			filtered, err := c.filterBaseline(reports[i])
			if err != nil {
				return nil, err
			}
			reports[i].Diagnostics = filtered
		}
	}
	return reports, nil
}

func (c *Checker) analyzeItems(ctx context.Context, items []workItem, reports []FileReport) error {
	numWorkers := c.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(items) {
		numWorkers = len(items)
	}

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item  workItem
		diags []Diagnostic
		err   error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				req := c.req
				req.Text = item.text
				diags, err := c.eng.Diagnostics(ctx, req)
				resultCh <- result{item: item, diags: diags, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var errs []error
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("check %s: %w", res.item.path, res.err))
			continue
		}
		doc := luaparse.NewDocument(res.item.text, nil)
		reports[res.item.index] = FileReport{
			Path:        res.item.path,
			Diagnostics: res.diags,
			Doc:         doc,
		}
		if c.cache != nil {
			findings := diagnosticsToFindings(doc, res.diags)
			if _, err := c.cache.RecordCheck(res.item.path, res.item.hash, doc.LineCount(), findings); err != nil {
				errs = append(errs, fmt.Errorf("record %s: %w", res.item.path, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("checking had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (c *Checker) filterBaseline(r FileReport) ([]Diagnostic, error) {
	known, err := c.baseline.FindingsByPath(r.Path)
	if err != nil {
		return nil, fmt.Errorf("baseline read %s: %w", r.Path, err)
	}
	if len(known) == 0 {
		return r.Diagnostics, nil
	}
	seen := make(map[string]bool, len(known))
	for _, f := range known {
		seen[f.Key()] = true
	}

	out := r.Diagnostics[:0:0]
	for i, f := range diagnosticsToFindings(r.Doc, r.Diagnostics) {
		if seen[f.Key()] {
			continue
		}
		out = append(out, r.Diagnostics[i])
	}
	return out, nil
}

func diagnosticsToFindings(doc *Document, diags []Diagnostic) []store.Finding {
	out := make([]store.Finding, len(diags))
	for i, d := range diags {
		start := doc.OffsetToPosition(d.Range.Start)
		end := doc.OffsetToPosition(d.Range.End)
		out[i] = store.Finding{
			Code:      d.Code,
			Severity:  d.Severity.String(),
			StartLine: start.Line,
			StartCol:  start.Column,
			EndLine:   end.Line,
			EndCol:    end.Column,
			Message:   d.Message,
		}
	}
	return out
}

func findingsToDiagnostics(doc *Document, findings []store.Finding) []Diagnostic {
	out := make([]Diagnostic, len(findings))
	for i, f := range findings {
		out[i] = Diagnostic{
			Range: Range{
				Start: doc.PositionToOffset(Position{Line: f.StartLine, Column: f.StartCol}),
				End:   doc.PositionToOffset(Position{Line: f.EndLine, Column: f.EndCol}),
			},
			Severity: parseSeverity(f.Severity),
			Code:     f.Code,
			Message:  f.Message,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Range.Start < out[j].Range.Start })
	return out
}

func parseSeverity(s string) Severity {
	switch s {
	case "error":
		return SeverityError
	case "information":
		return SeverityInformation
	case "hint":
		return SeverityHint
	default:
		return SeverityWarning
	}
}
