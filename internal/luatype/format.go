package luatype

import (
	"strconv"
	"strings"
)

// Format renders a type to the human-readable signature syntax used in
// hover and completion detail text. Rendering is deterministic, and
// Parse(Format(t)) reproduces t for primitives, tables, functions, arrays,
// and unions of these.
func Format(t Type) string {
	if t == nil {
		return "unknown"
	}
	switch v := t.(type) {
	case Primitive:
		switch v.K {
		case KindNil:
			return "nil"
		case KindBoolean:
			return "boolean"
		case KindNumber:
			return "number"
		case KindInteger:
			return "integer"
		case KindString:
			return "string"
		case KindFunction:
			return "function"
		case KindTable:
			return "table"
		case KindAny:
			return "any"
		case KindNever:
			return "never"
		case KindVoid:
			return "void"
		}
		return "unknown"
	case BooleanLiteral:
		if v.Value {
			return "true"
		}
		return "false"
	case NumberLiteral:
		return strconv.FormatFloat(v.Value, 'g', -1, 64)
	case StringLiteral:
		return strconv.Quote(v.Value)
	case Ref:
		return v.Name
	case *Variadic:
		return "..." + Format(v.Elem)
	case *Array:
		elem := Format(v.Elem)
		switch v.Elem.(type) {
		case *Union, *FunctionType:
			elem = "(" + elem + ")"
		}
		return elem + "[]"
	case *Tuple:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = Format(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Union:
		parts := make([]string, len(v.Types))
		for i, m := range v.Types {
			s := Format(m)
			if _, isFn := m.(*FunctionType); isFn {
				s = "(" + s + ")"
			}
			parts[i] = s
		}
		return strings.Join(parts, "|")
	case *TableType:
		var parts []string
		for _, f := range v.Fields {
			opt := ""
			if f.Optional {
				opt = "?"
			}
			parts = append(parts, f.Name+opt+": "+Format(f.Type))
		}
		if v.ValueType != nil {
			parts = append(parts, "[any]: "+Format(v.ValueType))
		}
		if len(parts) == 0 {
			return "{}"
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case *FunctionType:
		return formatFunction(v)
	}
	return "unknown"
}

func formatFunction(f *FunctionType) string {
	var b strings.Builder
	if f.Async {
		b.WriteString("async ")
	}
	b.WriteString("fun(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		switch {
		case p.Vararg:
			b.WriteString("...")
		default:
			b.WriteString(p.Name)
			if p.Optional {
				b.WriteString("?")
			}
		}
		b.WriteString(": ")
		b.WriteString(Format(p.Type))
	}
	b.WriteString(")")
	if len(f.Returns) > 0 {
		b.WriteString(": ")
		for i, r := range f.Returns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Format(r))
		}
	}
	return b.String()
}

// Parse reads the syntax produced by Format back into a Type. It exists for
// the definition catalog (signatures are authored as strings) and to keep
// Format honest. Unparseable input yields Unknown and false.
func Parse(s string) (Type, bool) {
	p := &typeParser{src: s}
	t := p.union(true)
	p.ws()
	if t == nil || p.pos != len(p.src) {
		return Unknown, false
	}
	return t, true
}

// MustParse is Parse for trusted catalog data; failures yield Unknown.
func MustParse(s string) Type {
	t, _ := Parse(s)
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) ws() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) eat(tok string) bool {
	p.ws()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) peek(tok string) bool {
	p.ws()
	return strings.HasPrefix(p.src[p.pos:], tok)
}

func (p *typeParser) ident() string {
	p.ws()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
			(p.pos > start && (c >= '0' && c <= '9' || c == '.')) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

// union parses `T (| T)*`. topLevel controls whether a fun's return list may
// consume commas.
func (p *typeParser) union(topLevel bool) Type {
	first := p.suffixed(topLevel)
	if first == nil {
		return nil
	}
	members := []Type{first}
	for p.eat("|") {
		next := p.suffixed(topLevel)
		if next == nil {
			return nil
		}
		members = append(members, next)
	}
	if len(members) == 1 {
		return first
	}
	return NewUnion(members...)
}

// suffixed parses an atom followed by any number of `[]` array suffixes.
func (p *typeParser) suffixed(topLevel bool) Type {
	t := p.atom(topLevel)
	if t == nil {
		return nil
	}
	for p.peek("[]") {
		p.eat("[]")
		t = &Array{Elem: t}
	}
	return t
}

func (p *typeParser) atom(topLevel bool) Type {
	p.ws()
	if p.pos >= len(p.src) {
		return nil
	}
	switch {
	case p.eat("("):
		t := p.union(false)
		if t == nil || !p.eat(")") {
			return nil
		}
		return t
	case p.peek("{"):
		return p.table()
	case p.peek("["):
		return p.tuple()
	case p.peek("..."):
		p.eat("...")
		elem := p.suffixed(false)
		if elem == nil {
			return nil
		}
		return &Variadic{Elem: elem}
	case p.peek(`"`):
		return p.stringLit()
	}

	if c := p.src[p.pos]; c >= '0' && c <= '9' || c == '-' {
		return p.numberLit()
	}

	name := p.ident()
	switch name {
	case "":
		return nil
	case "nil":
		return Nil
	case "boolean":
		return Boolean
	case "number":
		return Number
	case "integer":
		return Integer
	case "string":
		return String
	case "function":
		return Function
	case "table":
		return Table
	case "unknown":
		return Unknown
	case "any":
		return Any
	case "never":
		return Never
	case "void":
		return Void
	case "true":
		return BooleanLiteral{Value: true}
	case "false":
		return BooleanLiteral{Value: false}
	case "fun":
		return p.function(false, topLevel)
	case "async":
		if p.ident() != "fun" {
			return nil
		}
		return p.function(true, topLevel)
	}
	return Ref{Name: name}
}

func (p *typeParser) function(async, topLevel bool) Type {
	if !p.eat("(") {
		return nil
	}
	f := &FunctionType{Async: async}
	for !p.peek(")") {
		var param Param
		if p.peek("...") {
			p.eat("...")
			param.Vararg = true
			param.Name = "..."
		} else {
			param.Name = p.ident()
			if param.Name == "" {
				return nil
			}
			if p.eat("?") {
				param.Optional = true
			}
		}
		if !p.eat(":") {
			return nil
		}
		param.Type = p.union(false)
		if param.Type == nil {
			return nil
		}
		f.Params = append(f.Params, param)
		if !p.eat(",") {
			break
		}
	}
	if !p.eat(")") {
		return nil
	}
	if p.eat(":") {
		r := p.union(false)
		if r == nil {
			return nil
		}
		f.Returns = append(f.Returns, r)
		// Multi-return commas are only unambiguous at top level.
		for topLevel && p.eat(",") {
			r = p.union(false)
			if r == nil {
				return nil
			}
			f.Returns = append(f.Returns, r)
		}
	}
	return f
}

func (p *typeParser) table() Type {
	p.eat("{")
	t := &TableType{}
	if p.eat("}") {
		return t
	}
	for {
		if p.eat("[any]") {
			if !p.eat(":") {
				return nil
			}
			vt := p.union(false)
			if vt == nil {
				return nil
			}
			t.ValueType = vt
		} else {
			var f Field
			f.Name = p.ident()
			if f.Name == "" {
				return nil
			}
			if p.eat("?") {
				f.Optional = true
			}
			if !p.eat(":") {
				return nil
			}
			f.Type = p.union(false)
			if f.Type == nil {
				return nil
			}
			t.Fields = append(t.Fields, f)
		}
		if p.eat(",") {
			continue
		}
		break
	}
	if !p.eat("}") {
		return nil
	}
	return t
}

func (p *typeParser) tuple() Type {
	p.eat("[")
	t := &Tuple{}
	for !p.peek("]") {
		e := p.union(false)
		if e == nil {
			return nil
		}
		t.Elems = append(t.Elems, e)
		if !p.eat(",") {
			break
		}
	}
	if !p.eat("]") {
		return nil
	}
	return t
}

func (p *typeParser) stringLit() Type {
	p.eat(`"`)
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '"' {
		if p.src[p.pos] == '\\' {
			p.pos++
		}
		p.pos++
	}
	if p.pos >= len(p.src) {
		return nil
	}
	raw := p.src[start:p.pos]
	p.pos++ // closing quote
	if unq, err := strconv.Unquote(`"` + raw + `"`); err == nil {
		return StringLiteral{Value: unq}
	}
	return StringLiteral{Value: raw}
}

func (p *typeParser) numberLit() Type {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return nil
	}
	return NumberLiteral{Value: v}
}
