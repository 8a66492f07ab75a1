// Package schedule builds the deduplicated dependency DAG for a root task
// definition and executes it bottom-up, threading outputs between stages.
package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bricoler/bricoler/engine/core"
	"github.com/bricoler/bricoler/engine/task"
	"github.com/bricoler/bricoler/pkg/config"
)

// Node pairs a task instance with its resolved input subtrees. After the
// dedup pass, nodes reachable through different paths share instances.
type Node struct {
	task     *task.Instance
	children map[string]*Node
}

// Task returns the instance this node runs.
func (n *Node) Task() *task.Instance {
	return n.task
}

// walk visits every node depth-first, root first.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, slot := range n.slots() {
		n.children[slot].walk(fn)
	}
}

// slots returns the input slot names in sorted order, for deterministic
// traversal.
func (n *Node) slots() []string {
	slots := make([]string, 0, len(n.children))
	for slot := range n.children {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return slots
}

// Schedule is the dependency DAG built for a chosen root definition.
type Schedule struct {
	cfg  *config.Config
	root *Node
}

// New instantiates the root definition and its transitive inputs,
// collapses same-named instances onto one shared instance, routes the
// command-line override pool onto the right instances, and propagates the
// skip flag to every non-root instance.
func New(root *task.Definition, cfg *config.Config) (*Schedule, error) {
	if root == nil || root.Name() == "" {
		return nil, core.NewError(
			fmt.Errorf("schedule root must be a named task definition"),
			"INVALID_DEFINITION",
			nil,
		)
	}
	node, err := buildNode(root, cfg)
	if err != nil {
		return nil, err
	}
	s := &Schedule{cfg: cfg, root: node}

	// Dedup pass: keep one instance per task name. An input reachable via
	// more than one path is built once, and every dependent observes the
	// same outputs.
	instances := make(map[string]*task.Instance)
	s.root.walk(func(n *Node) {
		if seen, ok := instances[n.task.Name()]; ok {
			n.task = seen
		} else {
			instances[n.task.Name()] = n.task
		}
	})

	if err := s.routeOverrides(); err != nil {
		return nil, err
	}

	if cfg.Skip {
		rootTask := s.root.task
		s.root.walk(func(n *Node) {
			if n.task != rootTask {
				n.task.SetSkip(true)
			}
		})
	}
	return s, nil
}

func buildNode(def *task.Definition, cfg *config.Config) (*Node, error) {
	t, err := task.NewInstance(def, cfg)
	if err != nil {
		return nil, err
	}
	node := &Node{task: t, children: make(map[string]*Node)}
	for slot, input := range def.Inputs() {
		child, err := buildNode(input, cfg)
		if err != nil {
			return nil, err
		}
		node.children[slot] = child
	}
	return node, nil
}

// routeOverrides binds the command-line parameter pool onto the matching
// instances with CommandLine provenance. Pool entries naming a task absent
// from this schedule are an error.
func (s *Schedule) routeOverrides() error {
	pool := make(map[string]map[string]string, len(s.cfg.Overrides))
	for name, params := range s.cfg.Overrides {
		pool[name] = params
	}
	var walkErr error
	s.root.walk(func(n *Node) {
		if walkErr != nil {
			return
		}
		params, ok := pool[n.task.Name()]
		if !ok {
			return
		}
		for name, raw := range params {
			param, ok := n.task.Definition().Parameter(name)
			if !ok {
				walkErr = core.NewError(
					fmt.Errorf("task %q has no parameter named %q", n.task.Name(), name),
					"UNKNOWN_PARAMETER",
					map[string]any{"task": n.task.Name(), "parameter": name},
				)
				return
			}
			val, err := param.Coerce(raw)
			if err != nil {
				walkErr = err
				return
			}
			if err := n.task.Bind(map[string]any{name: val}, task.SourceCommandLine); err != nil {
				walkErr = err
				return
			}
		}
		delete(pool, n.task.Name())
	})
	if walkErr != nil {
		return walkErr
	}
	if len(pool) > 0 {
		unknown := make([]string, 0, len(pool))
		for name := range pool {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		return core.NewError(
			fmt.Errorf("unknown tasks in command-line parameters: %s", strings.Join(unknown, ", ")),
			"UNKNOWN_TASKS",
			map[string]any{"tasks": unknown},
		)
	}
	return nil
}

// validate fails when any instance in the schedule has an unbound required
// parameter. It runs on demand rather than at construction so that the
// schedule remains introspectable with unbound parameters.
func (s *Schedule) validate() error {
	var err error
	s.root.walk(func(n *Node) {
		if err != nil {
			return
		}
		if missing := n.task.UnboundRequired(); len(missing) > 0 {
			err = core.NewError(
				fmt.Errorf("task %q is missing required parameters: %s", n.task.Name(), strings.Join(missing, ", ")),
				"MISSING_REQUIRED_PARAMETERS",
				map[string]any{"task": n.task.Name(), "parameters": missing},
			)
		}
	})
	return err
}

// ParameterValue pairs a merged parameter with its current binding, which
// is nil when the parameter is unbound.
type ParameterValue struct {
	Parameter *task.Parameter
	Binding   *task.Binding
}

// Parameters returns the flattened parameter table for the whole schedule,
// keyed "<task>/<parameter>". Instances reached through multiple paths
// appear once.
func (s *Schedule) Parameters() map[string]ParameterValue {
	result := make(map[string]ParameterValue)
	s.root.walk(func(n *Node) {
		def := n.task.Definition()
		for _, name := range def.ParameterNames() {
			param, _ := def.Parameter(name)
			pv := ParameterValue{Parameter: param}
			if b, ok := n.task.Binding(name); ok {
				pv.Binding = b
			}
			result[def.Name()+"/"+name] = pv
		}
	})
	return result
}

// Tasks returns every instance in the schedule keyed by task name.
func (s *Schedule) Tasks() map[string]*task.Instance {
	result := make(map[string]*task.Instance)
	s.root.walk(func(n *Node) {
		result[n.task.Name()] = n.task
	})
	return result
}

// Target returns the root task instance of the schedule.
func (s *Schedule) Target() *task.Instance {
	return s.root.task
}
