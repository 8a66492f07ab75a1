package task

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bricoler/bricoler/engine/core"
	"github.com/bricoler/bricoler/pkg/config"
	"github.com/bricoler/bricoler/pkg/logger"
)

// Instance is one stateful, runnable occurrence of a Definition within a
// schedule. A schedule deduplicates instances by task name, so a single
// instance may be referenced by several schedule nodes; the write-once
// outputs cache makes the shared instance run exactly once.
type Instance struct {
	def      *Definition
	cfg      *config.Config
	bindings map[string]*Binding
	inputs   map[string]core.Input
	outputs  core.Output
	skip     bool
}

// NewInstance constructs an instance, seeding one Default binding per
// merged parameter and then applying the definition-level overrides. Lazy
// parameter defaults are resolved here so that host-state-dependent values
// are computed per instance.
func NewInstance(def *Definition, cfg *config.Config) (*Instance, error) {
	t := &Instance{
		def:      def,
		cfg:      cfg,
		bindings: make(map[string]*Binding),
		inputs:   make(map[string]core.Input),
	}
	for name, param := range def.parameters {
		val, err := param.DefaultValue()
		if err != nil {
			return nil, core.NewError(
				fmt.Errorf("task %q parameter %q: %w", def.name, name, err),
				"INVALID_DEFAULT",
				map[string]any{"task": def.name, "parameter": name},
			)
		}
		if err := t.Bind(map[string]any{name: val}, SourceDefault); err != nil {
			return nil, err
		}
	}
	for name, val := range def.overrides {
		if err := t.Bind(map[string]any{name: val}, SourceOverridden); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Bind assigns values to parameters with the given provenance. Rebinding a
// parameter replaces the prior binding outright.
func (t *Instance) Bind(values map[string]any, source BindingSource) error {
	for name, val := range values {
		if _, ok := t.def.parameters[name]; !ok {
			return core.NewError(
				fmt.Errorf("task %q has no parameter named %q", t.def.name, name),
				"UNKNOWN_PARAMETER",
				map[string]any{"task": t.def.name, "parameter": name},
			)
		}
		t.bindings[name] = &Binding{Value: val, Source: source, Task: t.def.name}
	}
	return nil
}

// Binding returns the current binding for a parameter, if any.
func (t *Instance) Binding(name string) (*Binding, bool) {
	b, ok := t.bindings[name]
	return b, ok
}

// UnboundRequired returns the names of required parameters that currently
// have no non-nil binding, sorted.
func (t *Instance) UnboundRequired() []string {
	var missing []string
	for name, param := range t.def.parameters {
		if !param.Required() {
			continue
		}
		if b, ok := t.bindings[name]; !ok || b.Value == nil {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Run executes the task's work procedure inside a working directory named
// after the task, validates the produced outputs against the declared
// schema, and caches them. A second call returns the cached outputs
// without re-invoking the work procedure.
func (t *Instance) Run(ctx context.Context) (out core.Output, err error) {
	if t.outputs != nil {
		logger.Debug("task already ran, reusing outputs", "task", t.def.name)
		return t.outputs, nil
	}
	restore, err := core.EnterDir(t.def.name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := restore(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	logger.Info("running task", "task", t.def.name, "skip", t.skip)
	out, err = t.def.work(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := t.validateOutputs(out); err != nil {
		return nil, err
	}
	t.outputs = out
	return out, nil
}

func (t *Instance) validateOutputs(out core.Output) error {
	var missing []string
	for name := range t.def.outputs {
		if _, ok := out[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return core.NewError(
			fmt.Errorf("task %q did not produce expected outputs: %s", t.def.name, strings.Join(missing, ", ")),
			"MISSING_OUTPUTS",
			map[string]any{"task": t.def.name, "outputs": missing},
		)
	}
	var unexpected []string
	for name := range out {
		if _, ok := t.def.outputs[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return core.NewError(
			fmt.Errorf("task %q produced undeclared outputs: %s", t.def.name, strings.Join(unexpected, ", ")),
			"UNEXPECTED_OUTPUTS",
			map[string]any{"task": t.def.name, "outputs": unexpected},
		)
	}
	for name, typ := range t.def.outputs {
		if val := out[name]; !typ.Accepts(val) {
			return core.NewError(
				fmt.Errorf("output %q in task %q has type %T, expected %s", name, t.def.name, val, typ.Name()),
				"OUTPUT_TYPE_MISMATCH",
				map[string]any{"task": t.def.name, "output": name, "expected": typ.Name(), "actual": fmt.Sprintf("%T", val)},
			)
		}
	}
	return nil
}

func (t *Instance) Definition() *Definition { return t.def }
func (t *Instance) Name() string            { return t.def.name }
func (t *Instance) Config() *config.Config  { return t.cfg }

// Skip reports whether side-effecting work should be suppressed for this
// instance. The flag is opaque to the engine; work procedures decide what
// it means.
func (t *Instance) Skip() bool        { return t.skip }
func (t *Instance) SetSkip(skip bool) { t.skip = skip }

// Outputs returns the cached outputs, or nil if the task has not run.
func (t *Instance) Outputs() core.Output { return t.outputs }

// SetInput exposes a dependency's outputs to this instance under the given
// input slot name. The engine calls this before Run.
func (t *Instance) SetInput(slot string, in core.Input) {
	t.inputs[slot] = in
}

// Input returns the aggregate of named values produced by the dependency
// bound to the given input slot.
func (t *Instance) Input(slot string) core.Input {
	return t.inputs[slot]
}

// Value returns the currently bound value of a parameter, or nil when the
// parameter is unknown or unbound.
func (t *Instance) Value(name string) any {
	if b, ok := t.bindings[name]; ok {
		return b.Value
	}
	return nil
}

// String returns the bound value of a string or enum parameter, or "" when
// unbound.
func (t *Instance) String(name string) string {
	s, _ := t.Value(name).(string)
	return s
}

// Int returns the bound value of an integer parameter, or 0 when unbound.
func (t *Instance) Int(name string) int {
	i, _ := t.Value(name).(int)
	return i
}

// Bool returns the bound value of a boolean parameter, or false when
// unbound.
func (t *Instance) Bool(name string) bool {
	b, _ := t.Value(name).(bool)
	return b
}

// Path returns the bound value of a path parameter, or "" when unbound.
func (t *Instance) Path(name string) string {
	s, _ := t.Value(name).(string)
	return s
}
