package core

import "sort"

// Input is the aggregate of named values a task receives from one of its
// input slots. It is a snapshot of the producing task's outputs.
type Input map[string]any

// Output is the set of named values a task produces.
type Output map[string]any

func (i Input) Get(name string) any {
	return i[name]
}

// Keys returns the output names in sorted order.
func (o Output) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsInput snapshots the outputs for consumption by a dependent task.
func (o Output) AsInput() Input {
	in := make(Input, len(o))
	for k, v := range o {
		in[k] = v
	}
	return in
}
