// Completion: 100% - Type system complete
package main

import (
	"fmt"
	"strconv"
)

// ValueType is the static type of the value a piece of generated code
// leaves on top of the virtual stack. It only exists at compile time; the
// generated code carries no type information.
type ValueType int

const (
	TypeNull ValueType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
)

// String returns a human-readable representation of the type
func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// IsFloat reports whether values of this type live in a floating-point register
func (t ValueType) IsFloat() bool {
	return t == TypeFloat
}

// IsNumeric reports whether arithmetic is defined on the type
func (t ValueType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// Op is a binary or unary operator of the expression language
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpPow:
		return "**"
	default:
		return "?"
	}
}

// Coercion says how the operands of a binary operator are brought together
type Coercion int

const (
	CoerceNone   Coercion = iota // Int op Int, in general-purpose registers
	CoerceFloat                  // promote Int operands, operate on doubles
	CoerceConcat                 // String + String through the runtime
)

func (c Coercion) String() string {
	switch c {
	case CoerceNone:
		return "int"
	case CoerceFloat:
		return "float"
	case CoerceConcat:
		return "concat"
	default:
		return "unknown"
	}
}

// Promote applies the operator table to a binary operator:
//
//	Int    op Int    -> Int (any operator)
//	Float  op Float  -> Float
//	Float  op Int    -> Float (Int promoted)
//	Int    op Float  -> Float (Int promoted)
//	String +  String -> String
//
// Every other combination is a type error.
func Promote(op Op, left, right ValueType) (ValueType, Coercion, error) {
	switch {
	case left == TypeInt && right == TypeInt:
		return TypeInt, CoerceNone, nil
	case left.IsNumeric() && right.IsNumeric():
		return TypeFloat, CoerceFloat, nil
	case op == OpAdd && left == TypeString && right == TypeString:
		return TypeString, CoerceConcat, nil
	}
	return TypeNull, CoerceNone, fmt.Errorf("%w: cannot apply '%s' to %s and %s", ErrType, op, left, right)
}

// UnaryResult applies the operator table to unary '+' and '-'.
// Unary '+' always yields an Int; a Float operand is converted (truncated
// toward zero), not just relabelled.
func UnaryResult(op Op, operand ValueType) (ValueType, error) {
	if !operand.IsNumeric() {
		return TypeNull, fmt.Errorf("%w: cannot apply unary '%s' to %s", ErrType, op, operand)
	}
	switch op {
	case OpSub:
		return operand, nil
	case OpAdd:
		return TypeInt, nil
	}
	return TypeNull, fmt.Errorf("%w: '%s' is not a unary operator", ErrType, op)
}

// Value is the result of calling a compiled function
type Value struct {
	Type  ValueType
	Int   int64 // Null, Bool and Int
	Float float64
	Str   string
}

// String formats the value the way the CLI prints it
func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeBool:
		if v.Int != 0 {
			return "true"
		}
		return "false"
	case TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case TypeString:
		return v.Str
	default:
		return "?"
	}
}

// Quoted formats strings with quotes and everything else like String
func (v Value) Quoted() string {
	if v.Type == TypeString {
		return strconv.Quote(v.Str)
	}
	return v.String()
}
