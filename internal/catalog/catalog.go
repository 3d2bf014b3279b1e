// Package catalog is the static definition catalog for the hook-script
// sandbox: global and standard-library signatures, sandbox pseudo-globals
// with per-hook context variants, disabled names, and per-execution-mode
// return requirements. The data ships embedded as YAML and is read-only
// after load.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jward/loupe/internal/luatype"
)

//go:embed defs.yaml
var embeddedDefs []byte

// DefKind classifies a catalog definition.
type DefKind string

const (
	DefFunction DefKind = "function"
	DefTable    DefKind = "table"
	DefProperty DefKind = "property"
)

// Definition is one catalog entry with its parsed type.
type Definition struct {
	Name      string
	Kind      DefKind
	Type      luatype.Type
	Signature string
	Doc       string
	Async     bool
}

// Library is a standard-library namespace with its methods.
type Library struct {
	Name    string
	Doc     string
	Methods map[string]*Definition
}

// Method returns a library method definition, or nil.
func (l *Library) Method(name string) *Definition {
	return l.Methods[name]
}

// MethodNames returns the library's method names sorted.
func (l *Library) MethodNames() []string {
	names := make([]string, 0, len(l.Methods))
	for n := range l.Methods {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SandboxItem is a sandbox pseudo-global (helpers, context, await). Fields
// are its members; HookFields are additional members only present for a
// specific hook.
type SandboxItem struct {
	Name       string
	Kind       DefKind
	Doc        string
	Signature  string
	Type       luatype.Type
	Fields     map[string]*Definition
	HookFields map[string]map[string]*Definition
}

// ExecutionMode describes how a hook script's return value is consumed.
type ExecutionMode struct {
	Name           string
	Doc            string
	RequiredFields []string
}

// Catalog is the loaded definition catalog.
type Catalog struct {
	globals   map[string]*Definition
	libraries map[string]*Library
	sandbox   map[string]*SandboxItem
	disabled  map[string]string
	modes     map[string]*ExecutionMode
}

/* ------------------------------ YAML shapes ------------------------------ */

type yamlDef struct {
	Kind      string `yaml:"kind"`
	Signature string `yaml:"signature"`
	Type      string `yaml:"type"`
	Doc       string `yaml:"doc"`
	Async     bool   `yaml:"async"`
}

type yamlLibrary struct {
	Doc     string             `yaml:"doc"`
	Methods map[string]yamlDef `yaml:"methods"`
}

type yamlSandbox struct {
	Kind      string                        `yaml:"kind"`
	Doc       string                        `yaml:"doc"`
	Signature string                        `yaml:"signature"`
	Fields    map[string]yamlDef            `yaml:"fields"`
	Hooks     map[string]map[string]yamlDef `yaml:"hooks"`
}

type yamlMode struct {
	Doc            string   `yaml:"doc"`
	RequiredFields []string `yaml:"required_return_fields"`
}

type yamlRoot struct {
	Globals   map[string]yamlDef     `yaml:"globals"`
	Libraries map[string]yamlLibrary `yaml:"libraries"`
	Sandbox   map[string]yamlSandbox `yaml:"sandbox"`
	Disabled  map[string]string      `yaml:"disabled"`
	Modes     map[string]yamlMode    `yaml:"modes"`
}

// Load parses the embedded catalog data.
func Load() (*Catalog, error) {
	return Parse(embeddedDefs)
}

// MustLoad is Load for callers that treat a broken embedded catalog as a
// programming error.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a Catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var root yamlRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("catalog: parse yaml: %w", err)
	}

	c := &Catalog{
		globals:   map[string]*Definition{},
		libraries: map[string]*Library{},
		sandbox:   map[string]*SandboxItem{},
		disabled:  map[string]string{},
		modes:     map[string]*ExecutionMode{},
	}

	for name, d := range root.Globals {
		c.globals[name] = buildDef(name, d)
	}
	for name, l := range root.Libraries {
		lib := &Library{Name: name, Doc: l.Doc, Methods: map[string]*Definition{}}
		for mname, d := range l.Methods {
			lib.Methods[mname] = buildDef(mname, d)
		}
		c.libraries[name] = lib
	}
	for name, s := range root.Sandbox {
		item := &SandboxItem{
			Name:      name,
			Kind:      DefKind(defaultKind(s.Kind, len(s.Fields) > 0 || len(s.Hooks) > 0)),
			Doc:       s.Doc,
			Signature: s.Signature,
			Fields:    map[string]*Definition{},
		}
		if s.Signature != "" {
			item.Type = luatype.MustParse(s.Signature)
		} else {
			item.Type = luatype.Table
		}
		for fname, d := range s.Fields {
			item.Fields[fname] = buildDef(fname, d)
		}
		if len(s.Hooks) > 0 {
			item.HookFields = map[string]map[string]*Definition{}
			for hook, fields := range s.Hooks {
				m := map[string]*Definition{}
				for fname, d := range fields {
					m[fname] = buildDef(fname, d)
				}
				item.HookFields[hook] = m
			}
		}
		c.sandbox[name] = item
	}
	for name, msg := range root.Disabled {
		c.disabled[name] = msg
	}
	for name, m := range root.Modes {
		c.modes[name] = &ExecutionMode{
			Name:           name,
			Doc:            m.Doc,
			RequiredFields: m.RequiredFields,
		}
	}
	return c, nil
}

func defaultKind(kind string, tableLike bool) string {
	if kind != "" {
		return kind
	}
	if tableLike {
		return string(DefTable)
	}
	return string(DefProperty)
}

func buildDef(name string, d yamlDef) *Definition {
	def := &Definition{
		Name:      name,
		Kind:      DefKind(d.Kind),
		Signature: d.Signature,
		Doc:       d.Doc,
		Async:     d.Async,
	}
	switch {
	case d.Signature != "":
		def.Type = luatype.MustParse(d.Signature)
		if def.Kind == "" {
			def.Kind = DefFunction
		}
	case d.Type != "":
		def.Type = luatype.MustParse(d.Type)
		if def.Kind == "" {
			def.Kind = DefProperty
		}
	default:
		def.Type = luatype.Unknown
	}
	if ft, ok := def.Type.(*luatype.FunctionType); ok && d.Async {
		ft.Async = true
	}
	return def
}

/* -------------------------------- lookups -------------------------------- */

// Global returns a global definition, or nil.
func (c *Catalog) Global(name string) *Definition {
	return c.globals[name]
}

// GlobalNames returns all global names sorted.
func (c *Catalog) GlobalNames() []string {
	names := make([]string, 0, len(c.globals))
	for n := range c.globals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Library returns a standard-library namespace, or nil.
func (c *Catalog) Library(name string) *Library {
	return c.libraries[name]
}

// LibraryNames returns all library names sorted.
func (c *Catalog) LibraryNames() []string {
	names := make([]string, 0, len(c.libraries))
	for n := range c.libraries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LibraryMethod returns one method of a library, or nil.
func (c *Catalog) LibraryMethod(lib, name string) *Definition {
	l := c.libraries[lib]
	if l == nil {
		return nil
	}
	return l.Method(name)
}

// Sandbox returns a sandbox pseudo-global, or nil.
func (c *Catalog) Sandbox(name string) *SandboxItem {
	return c.sandbox[name]
}

// SandboxNames returns all sandbox pseudo-global names sorted.
func (c *Catalog) SandboxNames() []string {
	names := make([]string, 0, len(c.sandbox))
	for n := range c.sandbox {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SandboxField resolves a member of a sandbox item, including hook-specific
// context fields when hook is non-empty.
func (c *Catalog) SandboxField(item, field, hook string) *Definition {
	s := c.sandbox[item]
	if s == nil {
		return nil
	}
	if hook != "" && s.HookFields != nil {
		if fields, ok := s.HookFields[hook]; ok {
			if d, ok := fields[field]; ok {
				return d
			}
		}
	}
	return s.Fields[field]
}

// SandboxFields lists the members of a sandbox item visible for a hook, in
// sorted order.
func (c *Catalog) SandboxFields(item, hook string) []*Definition {
	s := c.sandbox[item]
	if s == nil {
		return nil
	}
	merged := map[string]*Definition{}
	for n, d := range s.Fields {
		merged[n] = d
	}
	if hook != "" && s.HookFields != nil {
		for n, d := range s.HookFields[hook] {
			merged[n] = d
		}
	}
	names := make([]string, 0, len(merged))
	for n := range merged {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*Definition, 0, len(names))
	for _, n := range names {
		out = append(out, merged[n])
	}
	return out
}

// HelperMethod resolves a member of the helpers sandbox item.
func (c *Catalog) HelperMethod(name string) *Definition {
	return c.SandboxField("helpers", name, "")
}

// ContextField resolves a member of the context sandbox item for a hook.
func (c *Catalog) ContextField(name, hook string) *Definition {
	return c.SandboxField("context", name, hook)
}

// FindMethod searches helpers and every library for a method by bare name.
// Used as a return-type fallback when a callee's type is unresolved.
// Libraries are scanned in sorted name order so the result is stable.
func (c *Catalog) FindMethod(name string) *Definition {
	if d := c.HelperMethod(name); d != nil {
		return d
	}
	for _, lib := range c.LibraryNames() {
		if d := c.libraries[lib].Method(name); d != nil {
			return d
		}
	}
	return nil
}

// Disabled returns the explanation message for a disabled name.
func (c *Catalog) Disabled(name string) (string, bool) {
	msg, ok := c.disabled[name]
	return msg, ok
}

// Mode returns an execution mode, or nil.
func (c *Catalog) Mode(name string) *ExecutionMode {
	return c.modes[name]
}

// RequiredReturnFields returns the field names a script's returned table
// must contain under the given execution mode. Unknown modes require
// nothing.
func (c *Catalog) RequiredReturnFields(mode string) []string {
	m := c.modes[mode]
	if m == nil {
		return nil
	}
	return m.RequiredFields
}
