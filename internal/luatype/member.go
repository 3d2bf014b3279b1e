package luatype

import "strconv"

// Member resolves field access `t.name` (or `t[name]` with a string key)
// against a type. Returns nil when the access cannot be resolved.
//
// Resolution rules:
//   - TableType: named field first, then the ValueType catch-all.
//   - Array: numeric member names resolve to the element type.
//   - Tuple: 1-indexed numeric names; out of range resolves to nil.
//   - Union: the first member that resolves wins. Order follows the union's
//     member order, so resolution is stable within one build.
//
// This is the single member-resolution path: the analyzer, completion, and
// hover all route through it rather than keeping their own copies.
func Member(t Type, name string) Type {
	if t == nil {
		return nil
	}
	switch v := t.(type) {
	case *TableType:
		if f := v.Field(name); f != nil {
			if f.Optional {
				return NewUnion(f.Type, Nil)
			}
			return f.Type
		}
		return v.ValueType
	case *Array:
		if _, err := strconv.Atoi(name); err == nil {
			return v.Elem
		}
		return nil
	case *Tuple:
		i, err := strconv.Atoi(name)
		if err != nil || i < 1 || i > len(v.Elems) {
			return nil
		}
		return v.Elems[i-1]
	case *Union:
		for _, m := range v.Types {
			if m.Kind() == KindNil {
				continue
			}
			if r := Member(m, name); r != nil {
				return r
			}
		}
		return nil
	}
	return nil
}

// Unwrap strips a single nil option out of a 2-member union: `T|nil`
// becomes `T`. Any other shape is returned unchanged.
func Unwrap(t Type) Type {
	u, ok := t.(*Union)
	if !ok || len(u.Types) != 2 {
		return t
	}
	if u.Types[0].Kind() == KindNil {
		return u.Types[1]
	}
	if u.Types[1].Kind() == KindNil {
		return u.Types[0]
	}
	return t
}
