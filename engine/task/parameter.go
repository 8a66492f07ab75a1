package task

import (
	"fmt"

	"github.com/bricoler/bricoler/engine/core"
)

// Resolver computes a parameter default lazily, at instance construction
// time. A resolver may return another resolver; resolution repeats until a
// plain value is produced, bounded by maxDefaultDepth.
type Resolver func() any

// maxDefaultDepth bounds chained default resolvers so that a resolver which
// keeps returning resolvers fails instead of looping forever.
const maxDefaultDepth = 8

// ParameterSpec is the declarative form of a parameter, as written in a
// task definition. Define converts it into an immutable Parameter.
type ParameterSpec struct {
	Description string
	// Type defaults to String when nil.
	Type ValueType
	// Default is a literal value of Type, or a Resolver producing one.
	Default  any
	Choices  []any
	Required bool
}

// Parameter describes one configurable input of a task. It is immutable
// once constructed; all state is reachable only through accessors.
type Parameter struct {
	name        string
	description string
	typ         ValueType
	def         any
	choices     []any
	required    bool
}

func newParameter(name string, spec ParameterSpec) (*Parameter, error) {
	typ := spec.Type
	if typ == nil {
		typ = String
	}
	p := &Parameter{
		name:        name,
		description: spec.Description,
		typ:         typ,
		def:         spec.Default,
		choices:     append([]any(nil), spec.Choices...),
		required:    spec.Required,
	}
	if spec.Default != nil {
		val, err := resolveDefault(spec.Default)
		if err != nil {
			return nil, core.NewError(
				fmt.Errorf("parameter %q: %w", name, err),
				"INVALID_DEFAULT",
				map[string]any{"parameter": name},
			)
		}
		if val != nil && !typ.Accepts(val) {
			return nil, core.NewError(
				fmt.Errorf("parameter %q default value %v does not match type %s", name, val, typ.Name()),
				"INVALID_DEFAULT",
				map[string]any{"parameter": name, "type": typ.Name()},
			)
		}
	}
	return p, nil
}

func resolveDefault(def any) (any, error) {
	for range maxDefaultDepth {
		r, ok := def.(Resolver)
		if !ok {
			return def, nil
		}
		def = r()
	}
	return nil, fmt.Errorf("default resolver did not settle after %d steps", maxDefaultDepth)
}

func (p *Parameter) Name() string        { return p.name }
func (p *Parameter) Description() string { return p.description }
func (p *Parameter) Type() ValueType     { return p.typ }
func (p *Parameter) Required() bool      { return p.required }

func (p *Parameter) Choices() []any {
	return append([]any(nil), p.choices...)
}

// DefaultValue resolves the parameter's default. Lazy defaults are invoked
// here, once per call, so values that depend on host state are computed
// when an instance is constructed rather than at declaration time.
func (p *Parameter) DefaultValue() (any, error) {
	return resolveDefault(p.def)
}

// Coerce converts a textual command-line value into the parameter's type.
func (p *Parameter) Coerce(raw string) (any, error) {
	val, err := p.typ.Parse(raw)
	if err != nil {
		return nil, core.NewError(
			fmt.Errorf("parameter %q: value %q is not of type %s", p.name, raw, p.typ.Name()),
			"INVALID_VALUE",
			map[string]any{"parameter": p.name, "value": raw, "type": p.typ.Name()},
		)
	}
	return val, nil
}
