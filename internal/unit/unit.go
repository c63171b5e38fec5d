// Package unit builds an executable unit from a model descriptor source file.
//
// A descriptor is a single Go file declaring the model's input and output
// record types and an entry type with prediction methods. It is evaluated in
// memory by an embedded interpreter; the static shape of its types comes from
// go/ast so the rest of the program can reason about it without executing it.
package unit

import (
	"context"
	"reflect"

	"mlpredict/internal/deps"
)

// Source is descriptor text held in memory.
type Source struct {
	Filename string
	Text     []byte
}

// Unit is a compiled descriptor.
type Unit interface {
	// Name is the descriptor's package name.
	Name() string
	Types() []TypeDesc
	Type(name string) (TypeDesc, bool)
	Vars() []string
	// New returns an addressable zero value of the named type.
	New(typeName string) (reflect.Value, error)
	// Call invokes method on a fresh value of typeName.
	Call(typeName, method string, args ...reflect.Value) ([]reflect.Value, error)
	// SetString assigns a package-level string variable.
	SetString(name, value string) error
}

// Compiler turns descriptor sources into units.
type Compiler interface {
	Compile(ctx context.Context, src Source, resolved []deps.Resolved) (Unit, error)
}
