package task

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"dario.cat/mergo"

	"github.com/bricoler/bricoler/engine/core"
)

// WorkFunc performs the actual work of a task. It reads bound parameters
// and resolved inputs from the instance and returns the task's outputs.
type WorkFunc func(ctx context.Context, t *Instance) (core.Output, error)

// reservedNames may not be used for parameters, inputs or outputs; they
// collide with the declaration surface itself.
var reservedNames = map[string]struct{}{
	"bindings":    {},
	"config":      {},
	"description": {},
	"inputs":      {},
	"name":        {},
	"outputs":     {},
	"parameters":  {},
	"run":         {},
	"skip":        {},
}

var taskNameRE = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Spec is the declarative form of a task definition. A Spec with an empty
// Name declares an anonymous definition: a mixin of parameters and behavior
// that is not registered, not invokable, and not usable as an input target.
type Spec struct {
	Name        string
	Description string
	// Extends lists ancestor definitions whose parameters, inputs and
	// outputs are merged into this one. Later ancestors shadow earlier
	// ones; own declarations shadow all ancestors.
	Extends    []*Definition
	Parameters map[string]ParameterSpec
	// Overrides assigns definition-level literals to parameters declared
	// here or inherited from an ancestor. They are applied to every
	// instance with Overridden provenance, after defaults.
	Overrides map[string]any
	Inputs    map[string]*Definition
	Outputs   map[string]ValueType
	Run       WorkFunc
}

// Definition is an immutable declarative template for a unit of work. The
// parameter, input and output maps are fully merged at Define time and
// never change afterwards.
type Definition struct {
	name        string
	description string
	parameters  map[string]*Parameter
	overrides   map[string]any
	inputs      map[string]*Definition
	outputs     map[string]ValueType
	work        WorkFunc
}

// Define validates a Spec, merges it with its ancestors and registers the
// resulting definition in the default registry when it is named.
func Define(spec Spec) (*Definition, error) {
	return DefaultRegistry.Define(spec)
}

// MustDefine is Define for static task declarations, where a definition
// error is a programming mistake.
func MustDefine(spec Spec) *Definition {
	def, err := Define(spec)
	if err != nil {
		panic(err)
	}
	return def
}

func (r *Registry) Define(spec Spec) (*Definition, error) {
	def, err := build(spec)
	if err != nil {
		return nil, err
	}
	if def.name != "" {
		if err := r.register(def); err != nil {
			return nil, err
		}
	}
	return def, nil
}

func build(spec Spec) (*Definition, error) {
	if spec.Name != "" && !taskNameRE.MatchString(spec.Name) {
		return nil, core.NewError(
			fmt.Errorf("task name %q is not a valid task name", spec.Name),
			"INVALID_TASK_NAME",
			map[string]any{"task": spec.Name},
		)
	}
	def := &Definition{
		name:        spec.Name,
		description: spec.Description,
		parameters:  make(map[string]*Parameter),
		overrides:   make(map[string]any),
		inputs:      make(map[string]*Definition),
		outputs:     make(map[string]ValueType),
	}
	if err := def.merge(spec); err != nil {
		return nil, err
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// merge computes the union of ancestor and own declarations, nearer
// shadowing farther by name.
func (d *Definition) merge(spec Spec) error {
	for _, ancestor := range spec.Extends {
		if ancestor == nil {
			return core.NewError(
				fmt.Errorf("task %q extends a nil definition", spec.Name),
				"INVALID_DEFINITION",
				map[string]any{"task": spec.Name},
			)
		}
		// Merged parameters, inputs and outputs share the ancestor's
		// immutable values; shadowing replaces the reference wholesale.
		for name, param := range ancestor.parameters {
			d.parameters[name] = param
		}
		for name, input := range ancestor.inputs {
			d.inputs[name] = input
		}
		for name, typ := range ancestor.outputs {
			d.outputs[name] = typ
		}
		if err := mergo.Merge(&d.overrides, ancestor.overrides, mergo.WithOverride); err != nil {
			return err
		}
		if ancestor.work != nil {
			d.work = ancestor.work
		}
	}
	for name, pspec := range spec.Parameters {
		param, err := newParameter(name, pspec)
		if err != nil {
			return err
		}
		d.parameters[name] = param
	}
	for name, val := range spec.Overrides {
		d.overrides[name] = val
	}
	for name, input := range spec.Inputs {
		d.inputs[name] = input
	}
	for name, typ := range spec.Outputs {
		d.outputs[name] = typ
	}
	if spec.Run != nil {
		d.work = spec.Run
	}
	return nil
}

func (d *Definition) validate() error {
	reservedSeen := make(map[string]struct{})
	for name := range d.parameters {
		if _, ok := reservedNames[name]; ok {
			reservedSeen[name] = struct{}{}
		}
	}
	for name := range d.inputs {
		if _, ok := reservedNames[name]; ok {
			reservedSeen[name] = struct{}{}
		}
	}
	for name := range d.outputs {
		if _, ok := reservedNames[name]; ok {
			reservedSeen[name] = struct{}{}
		}
	}
	reserved := make([]string, 0, len(reservedSeen))
	for name := range reservedSeen {
		reserved = append(reserved, name)
	}
	if len(reserved) > 0 {
		sort.Strings(reserved)
		return core.NewError(
			fmt.Errorf("task %q uses reserved names: %s", d.name, strings.Join(reserved, ", ")),
			"RESERVED_NAME",
			map[string]any{"task": d.name, "names": reserved},
		)
	}
	var overlap []string
	for name := range d.inputs {
		if _, ok := d.parameters[name]; ok {
			overlap = append(overlap, name)
		}
	}
	if len(overlap) > 0 {
		sort.Strings(overlap)
		return core.NewError(
			fmt.Errorf("task %q has overlapping parameter and input names: %s", d.name, strings.Join(overlap, ", ")),
			"NAME_OVERLAP",
			map[string]any{"task": d.name, "names": overlap},
		)
	}
	for name, input := range d.inputs {
		if input == nil {
			return core.NewError(
				fmt.Errorf("input %q in task %q must be a task definition", name, d.name),
				"INVALID_INPUT",
				map[string]any{"task": d.name, "input": name},
			)
		}
		// Anonymous definitions are parameter mixins; they have no
		// identity for the schedule to deduplicate on.
		if input.name == "" {
			return core.NewError(
				fmt.Errorf("input %q in task %q references an anonymous definition", name, d.name),
				"INVALID_INPUT",
				map[string]any{"task": d.name, "input": name},
			)
		}
	}
	for name, typ := range d.outputs {
		if typ == nil {
			return core.NewError(
				fmt.Errorf("output %q in task %q has no value type", name, d.name),
				"INVALID_DEFINITION",
				map[string]any{"task": d.name, "output": name},
			)
		}
	}
	for name, val := range d.overrides {
		param, ok := d.parameters[name]
		if !ok {
			return core.NewError(
				fmt.Errorf("task %q has no parameter named %q", d.name, name),
				"UNKNOWN_PARAMETER",
				map[string]any{"task": d.name, "parameter": name},
			)
		}
		if !param.Type().Accepts(val) {
			return core.NewError(
				fmt.Errorf("parameter %q in task %q has type %T, expected %s", name, d.name, val, param.Type().Name()),
				"PARAMETER_TYPE_MISMATCH",
				map[string]any{"task": d.name, "parameter": name, "type": param.Type().Name()},
			)
		}
	}
	// A named definition is invokable and must carry a work procedure,
	// its own or an inherited one. Anonymous mixins may omit it.
	if d.name != "" && d.work == nil {
		return core.NewError(
			fmt.Errorf("task %q has no run procedure", d.name),
			"INVALID_DEFINITION",
			map[string]any{"task": d.name},
		)
	}
	return nil
}

func (d *Definition) Name() string        { return d.name }
func (d *Definition) Description() string { return d.description }

// Parameter returns the merged parameter with the given name.
func (d *Definition) Parameter(name string) (*Parameter, bool) {
	p, ok := d.parameters[name]
	return p, ok
}

// ParameterNames returns the merged parameter names in sorted order.
func (d *Definition) ParameterNames() []string {
	names := make([]string, 0, len(d.parameters))
	for name := range d.parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Inputs returns the merged input map. The returned map is a copy; the
// referenced definitions are shared.
func (d *Definition) Inputs() map[string]*Definition {
	inputs := make(map[string]*Definition, len(d.inputs))
	for name, input := range d.inputs {
		inputs[name] = input
	}
	return inputs
}

// Outputs returns the merged output schema as a copy.
func (d *Definition) Outputs() map[string]ValueType {
	outputs := make(map[string]ValueType, len(d.outputs))
	for name, typ := range d.outputs {
		outputs[name] = typ
	}
	return outputs
}

// Work exposes the definition's work procedure so that an extending
// definition can compose with it.
func (d *Definition) Work() WorkFunc {
	return d.work
}
