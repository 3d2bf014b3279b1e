// Package luatype is the structural type model shared by the analyzer and
// the editor query handlers. Types are immutable values compared
// structurally; the same Type may be bound to many AST positions.
package luatype

// Kind tags the variant of a Type.
type Kind int

const (
	KindNil Kind = iota
	KindBoolean
	KindBooleanLiteral
	KindNumber
	KindInteger
	KindNumberLiteral
	KindString
	KindStringLiteral
	KindFunction
	KindFunctionType
	KindTable
	KindTableType
	KindArray
	KindTuple
	KindUnion
	KindRef
	KindVariadic
	KindUnknown
	KindAny
	KindNever
	KindVoid
)

// Type is implemented by every type variant.
type Type interface {
	Kind() Kind
}

// Primitive covers the variants that carry no payload.
type Primitive struct {
	K Kind
}

func (p Primitive) Kind() Kind { return p.K }

// Shared primitive values. These are the canonical instances; constructors
// and the parser hand them out rather than allocating.
var (
	Nil      Type = Primitive{KindNil}
	Boolean  Type = Primitive{KindBoolean}
	Number   Type = Primitive{KindNumber}
	Integer  Type = Primitive{KindInteger}
	String   Type = Primitive{KindString}
	Function Type = Primitive{KindFunction}
	Table    Type = Primitive{KindTable}
	Unknown  Type = Primitive{KindUnknown}
	Any      Type = Primitive{KindAny}
	Never    Type = Primitive{KindNever}
	Void     Type = Primitive{KindVoid}
)

// BooleanLiteral is the type of `true` or `false`.
type BooleanLiteral struct {
	Value bool
}

func (BooleanLiteral) Kind() Kind { return KindBooleanLiteral }

// NumberLiteral is the type of a specific numeric constant.
type NumberLiteral struct {
	Value float64
}

func (NumberLiteral) Kind() Kind { return KindNumberLiteral }

// StringLiteral is the type of a specific string constant.
type StringLiteral struct {
	Value string
}

func (StringLiteral) Kind() Kind { return KindStringLiteral }

// Param describes one parameter of a FunctionType.
type Param struct {
	Name     string
	Type     Type
	Optional bool
	Vararg   bool
}

// FunctionType is a function with a known signature. Overloads, when
// present, are alternative signatures for the same callee.
type FunctionType struct {
	Params    []Param
	Returns   []Type
	Overloads []*FunctionType
	Async     bool
}

func (*FunctionType) Kind() Kind { return KindFunctionType }

// Field describes one named field of a TableType.
type Field struct {
	Name     string
	Type     Type
	Optional bool
}

// TableType is a table with known fields. ValueType, when non-nil, types
// entries under keys not listed in Fields.
type TableType struct {
	Fields    []Field
	ValueType Type
}

func (*TableType) Kind() Kind { return KindTableType }

// Field returns the named field, or nil.
func (t *TableType) Field(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// Array is a homogeneous sequence.
type Array struct {
	Elem Type
}

func (*Array) Kind() Kind { return KindArray }

// Tuple is a fixed-length sequence, 1-indexed per Lua convention.
type Tuple struct {
	Elems []Type
}

func (*Tuple) Kind() Kind { return KindTuple }

// Union is a set of alternatives. Never empty: NewUnion is the only
// constructor and it flattens, dedups, and collapses singletons.
type Union struct {
	Types []Type
}

func (*Union) Kind() Kind { return KindUnion }

// Ref is a nominal reference into the definition catalog.
type Ref struct {
	Name string
}

func (Ref) Kind() Kind { return KindRef }

// Variadic marks a trailing repeated element type.
type Variadic struct {
	Elem Type
}

func (*Variadic) Kind() Kind { return KindVariadic }

// NewUnion builds a union from the given members, flattening nested unions
// and deduplicating structurally equal members. Zero members yields Never,
// one member yields that member unwrapped.
func NewUnion(types ...Type) Type {
	var flat []Type
	var add func(t Type)
	add = func(t Type) {
		if t == nil {
			return
		}
		if u, ok := t.(*Union); ok {
			for _, m := range u.Types {
				add(m)
			}
			return
		}
		for _, seen := range flat {
			if Equal(seen, t) {
				return
			}
		}
		flat = append(flat, t)
	}
	for _, t := range types {
		add(t)
	}
	switch len(flat) {
	case 0:
		return Never
	case 1:
		return flat[0]
	}
	return &Union{Types: flat}
}

// Equal reports structural equality of two types.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Primitive:
		return true
	case BooleanLiteral:
		return x.Value == b.(BooleanLiteral).Value
	case NumberLiteral:
		return x.Value == b.(NumberLiteral).Value
	case StringLiteral:
		return x.Value == b.(StringLiteral).Value
	case Ref:
		return x.Name == b.(Ref).Name
	case *Array:
		return Equal(x.Elem, b.(*Array).Elem)
	case *Variadic:
		return Equal(x.Elem, b.(*Variadic).Elem)
	case *Tuple:
		y := b.(*Tuple)
		if len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !Equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case *Union:
		y := b.(*Union)
		if len(x.Types) != len(y.Types) {
			return false
		}
		for i := range x.Types {
			if !Equal(x.Types[i], y.Types[i]) {
				return false
			}
		}
		return true
	case *TableType:
		y := b.(*TableType)
		if len(x.Fields) != len(y.Fields) || !Equal(x.ValueType, y.ValueType) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name ||
				x.Fields[i].Optional != y.Fields[i].Optional ||
				!Equal(x.Fields[i].Type, y.Fields[i].Type) {
				return false
			}
		}
		return true
	case *FunctionType:
		y := b.(*FunctionType)
		if len(x.Params) != len(y.Params) || len(x.Returns) != len(y.Returns) ||
			len(x.Overloads) != len(y.Overloads) || x.Async != y.Async {
			return false
		}
		for i := range x.Params {
			if x.Params[i].Name != y.Params[i].Name ||
				x.Params[i].Optional != y.Params[i].Optional ||
				x.Params[i].Vararg != y.Params[i].Vararg ||
				!Equal(x.Params[i].Type, y.Params[i].Type) {
				return false
			}
		}
		for i := range x.Returns {
			if !Equal(x.Returns[i], y.Returns[i]) {
				return false
			}
		}
		for i := range x.Overloads {
			if !Equal(x.Overloads[i], y.Overloads[i]) {
				return false
			}
		}
		return true
	}
	return false
}
