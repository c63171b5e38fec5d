// Package materialize turns delimited text and JSON into typed input records.
package materialize

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the coercion class of a schema field.
type Kind int

const (
	KindUnsupported Kind = iota
	KindString
	KindBool
	KindInt
	KindUint
	KindFloat
	KindBytes
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindBytes:
		return "bytes"
	case KindImage:
		return "image"
	}
	return "unsupported"
}

// KindOf maps a Go type expression to its coercion class.
func KindOf(goType string) Kind {
	switch goType {
	case "string":
		return KindString
	case "bool":
		return KindBool
	case "int", "int8", "int16", "int32", "int64", "rune":
		return KindInt
	case "uint", "uint8", "uint16", "uint32", "uint64", "byte":
		return KindUint
	case "float32", "float64":
		return KindFloat
	case "[]byte", "[]uint8":
		return KindBytes
	case "image.Image":
		return KindImage
	}
	return KindUnsupported
}

// Field is one input record field.
type Field struct {
	Name string
	// Column is an explicit source column name, matched before Name.
	Column string
	Kind   Kind
}

// Schema is the ordered field list of an input record type.
type Schema []Field

// Index returns the position of the field called name, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Record holds one value per schema field, in schema order.
type Record []any

// Zero returns the zero value used for kind k.
func Zero(k Kind) any {
	switch k {
	case KindString:
		return ""
	case KindBool:
		return false
	case KindInt:
		return int64(0)
	case KindUint:
		return uint64(0)
	case KindFloat:
		return float64(0)
	}
	return nil
}

// ZeroRecord returns a record with every field at its zero value.
func ZeroRecord(s Schema) Record {
	rec := make(Record, len(s))
	for i, f := range s {
		rec[i] = Zero(f.Kind)
	}
	return rec
}

// Coerce converts raw text to kind k. Empty text yields the zero value.
// Numbers are parsed leniently: surrounding space is ignored and integer
// fields accept a whole-valued float such as "3.0".
func Coerce(raw string, k Kind) (any, error) {
	s := strings.TrimSpace(raw)
	switch k {
	case KindString:
		return raw, nil
	case KindBytes:
		return []byte(raw), nil
	case KindUnsupported, KindImage:
		return nil, nil
	}
	if s == "" {
		return Zero(k), nil
	}
	switch k {
	case KindBool:
		b, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return false, err
		}
		return b, nil
	case KindInt:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != float64(int64(f)) {
			return int64(0), fmt.Errorf("not an integer: %q", s)
		}
		return int64(f), nil
	case KindUint:
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 || f != float64(uint64(f)) {
			return uint64(0), fmt.Errorf("not an unsigned integer: %q", s)
		}
		return uint64(f), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return float64(0), err
		}
		return f, nil
	}
	return nil, nil
}
