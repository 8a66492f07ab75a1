package task

import "fmt"

// BindingSource records where a parameter value came from. Precedence is
// positional: defaults are installed first, definition-level overrides
// next, and command-line values last. Rebinding replaces the prior binding
// outright.
type BindingSource string

const (
	SourceDefault     BindingSource = "default"
	SourceOverridden  BindingSource = "overridden"
	SourceCommandLine BindingSource = "command-line"
)

// Binding pairs a concrete parameter value with its provenance. Task names
// the instance the binding was applied to, for diagnostics.
type Binding struct {
	Value  any
	Source BindingSource
	Task   string
}

func (b *Binding) String() string {
	if b == nil || b.Value == nil {
		return ""
	}
	return fmt.Sprintf("%v", b.Value)
}
