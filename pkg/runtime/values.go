package runtime

import (
	"fmt"
	"strconv"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindInteger Kind = iota
	KindString
	KindUnit
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "i64"
	case KindString:
		return "string"
	case KindUnit:
		return "unit"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

// IntegerValue is the one storable value shape: a signed 64-bit
// integer. Arithmetic wraps two's-complement.
type IntegerValue struct {
	Val int64
}

func (v IntegerValue) Kind() Kind { return KindInteger }

func (v IntegerValue) String() string { return strconv.FormatInt(v.Val, 10) }

// StringValue carries a print template from its literal to the
// formatter. Programs cannot store or combine strings.
type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind { return KindString }

// UnitValue is what a call yields when the callee declares no return
// type.
type UnitValue struct{}

func (UnitValue) Kind() Kind { return KindUnit }
