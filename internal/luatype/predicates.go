package luatype

// IsTableLike reports whether member access makes sense on the type.
func IsTableLike(t Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case KindTable, KindTableType, KindArray, KindTuple, KindRef:
		return true
	}
	return false
}

// IsFunctionLike reports whether the type can be called.
func IsFunctionLike(t Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case KindFunction, KindFunctionType:
		return true
	}
	return false
}

// IsStringLike reports whether the type is a string or string constant.
func IsStringLike(t Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case KindString, KindStringLiteral:
		return true
	}
	return false
}

// IsNumberLike reports whether the type is numeric.
func IsNumberLike(t Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case KindNumber, KindInteger, KindNumberLiteral:
		return true
	}
	return false
}

// IsIntegerLike reports whether the type is an integer or a numeric
// constant with no fractional part.
func IsIntegerLike(t Type) bool {
	if t == nil {
		return false
	}
	switch v := t.(type) {
	case Primitive:
		return v.K == KindInteger
	case NumberLiteral:
		return v.Value == float64(int64(v.Value))
	}
	return false
}

// IsBooleanLike reports whether the type is a boolean or boolean constant.
func IsBooleanLike(t Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case KindBoolean, KindBooleanLiteral:
		return true
	}
	return false
}

// IsNullable reports whether the type admits nil.
func IsNullable(t Type) bool {
	if t == nil {
		return false
	}
	switch v := t.(type) {
	case Primitive:
		return v.K == KindNil
	case *Union:
		for _, m := range v.Types {
			if IsNullable(m) {
				return true
			}
		}
	}
	return false
}

// IsOptional reports whether a value of the type may be absent: nil,
// void, or a union admitting either.
func IsOptional(t Type) bool {
	if t == nil {
		return false
	}
	switch v := t.(type) {
	case Primitive:
		return v.K == KindNil || v.K == KindVoid
	case *Union:
		for _, m := range v.Types {
			if IsOptional(m) {
				return true
			}
		}
	}
	return false
}

// IsAlwaysTruthy reports whether every runtime value of the type is truthy
// in Lua (neither nil nor false). Unknown and Any are never always-truthy.
// A union is always-truthy only when every member is.
func IsAlwaysTruthy(t Type) bool {
	if t == nil {
		return false
	}
	switch v := t.(type) {
	case Primitive:
		switch v.K {
		case KindNil, KindBoolean, KindUnknown, KindAny, KindNever, KindVoid:
			return false
		}
		return true
	case BooleanLiteral:
		return v.Value
	case NumberLiteral, StringLiteral:
		return true
	case *FunctionType, *TableType, *Array, *Tuple:
		return true
	case Ref:
		return true
	case *Union:
		for _, m := range v.Types {
			if !IsAlwaysTruthy(m) {
				return false
			}
		}
		return true
	}
	return false
}

// IsAlwaysFalsy reports whether every runtime value of the type is falsy in
// Lua (nil or false). A union is always-falsy only when every member is.
func IsAlwaysFalsy(t Type) bool {
	if t == nil {
		return false
	}
	switch v := t.(type) {
	case Primitive:
		return v.K == KindNil
	case BooleanLiteral:
		return !v.Value
	case *Union:
		for _, m := range v.Types {
			if !IsAlwaysFalsy(m) {
				return false
			}
		}
		return true
	}
	return false
}
