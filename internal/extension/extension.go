// Package extension implements the pluggable scalar-function interface: a
// named function with a typed argument signature, enabled per-database via
// CREATE EXTENSION and persisted in the catalog.
package extension

import (
	"fmt"

	"github.com/minifish-org/tegdb-sub001/internal/dberr"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
	"github.com/minifish-org/tegdb-sub001/internal/vectordist"
)

// ArgKind constrains what an argument position accepts.
type ArgKind uint8

const (
	ArgAny ArgKind = iota
	ArgNumeric
	ArgText
	ArgVector
)

func (k ArgKind) accepts(v sqlast.Value) bool {
	switch k {
	case ArgAny:
		return true
	case ArgNumeric:
		return v.Kind == sqlast.KindInteger || v.Kind == sqlast.KindReal
	case ArgText:
		return v.Kind == sqlast.KindText
	case ArgVector:
		return v.Kind == sqlast.KindVector
	default:
		return false
	}
}

func (k ArgKind) String() string {
	switch k {
	case ArgNumeric:
		return "numeric"
	case ArgText:
		return "text"
	case ArgVector:
		return "vector"
	default:
		return "any"
	}
}

// Signature describes a function's argument kinds and, if Variadic, the
// kind every argument beyond len(Args) must satisfy.
type Signature struct {
	Args     []ArgKind
	Variadic bool
	VarKind  ArgKind
}

func (s Signature) check(args []sqlast.Value) error {
	if s.Variadic {
		if len(args) < len(s.Args) {
			return dberr.ErrFunctionArity
		}
	} else if len(args) != len(s.Args) {
		return dberr.ErrFunctionArity
	}
	for i, v := range args {
		var want ArgKind
		if i < len(s.Args) {
			want = s.Args[i]
		} else {
			want = s.VarKind
		}
		if !v.IsNull() && !want.accepts(v) {
			return dberr.ErrFunctionArgType
		}
	}
	return nil
}

// Callable is a registered scalar function's implementation, receiving
// already-evaluated argument values.
type Callable func(args []sqlast.Value) (sqlast.Value, error)

// Function is one entry in a Registry.
type Function struct {
	Name      string
	Signature Signature
	Call      Callable
}

// Registry holds every function an extension contributes. Distance
// functions are always present: they are built-ins usable from ORDER BY
// without any CREATE EXTENSION. Any other function is callable once it is
// registered; the registry does not consult the catalog's extension set.
type Registry struct {
	funcs map[string]*Function
}

// NewRegistry returns a registry preloaded with the built-in distance
// functions.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]*Function)}
	for _, name := range []string{vectordist.CosineSimilarity, vectordist.EuclideanDistance, vectordist.DotProduct} {
		name := name
		r.Register(&Function{
			Name:      name,
			Signature: Signature{Args: []ArgKind{ArgVector, ArgVector}},
			Call: func(args []sqlast.Value) (sqlast.Value, error) {
				d, err := vectordist.Compute(name, args[0].Vector, args[1].Vector)
				if err != nil {
					return sqlast.Null, err
				}
				return sqlast.Real(d), nil
			},
		})
	}
	return r
}

// Register adds or replaces a function definition.
func (r *Registry) Register(f *Function) { r.funcs[f.Name] = f }

// Unregister removes a function definition.
func (r *Registry) Unregister(name string) { delete(r.funcs, name) }

// Lookup finds a function by name (case-sensitive; the parser upper-cases
// function-call identifiers before this is consulted).
func (r *Registry) Lookup(name string) (*Function, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// CatalogExtensionAware reports whether an extension has been enabled via
// CREATE EXTENSION (catalog.Catalog implements it). Resolver does not use
// it: function calls are not checked against the enabled extensions.
type CatalogExtensionAware interface {
	HasExtension(name string) bool
}

// Resolver adapts a Registry to sqleval.FunctionResolver. It resolves names
// against the Registry alone, not against a catalog's enabled extensions.
type Resolver struct {
	Registry *Registry
}

// Call resolves name against the registry, validates arity/argument types,
// and invokes it.
func (r *Resolver) Call(name string, args []sqlast.Value) (sqlast.Value, error) {
	f, ok := r.Registry.Lookup(name)
	if !ok {
		return sqlast.Null, &dberr.FunctionError{Name: name, Kind: dberr.ErrUnknownFunction, Msg: fmt.Sprintf("no function named %q is registered", name)}
	}
	if err := f.Signature.check(args); err != nil {
		return sqlast.Null, &dberr.FunctionError{Name: name, Kind: err, Msg: fmt.Sprintf("call to %q with %d argument(s)", name, len(args))}
	}
	return f.Call(args)
}
