package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bricoler/bricoler/engine/schedule"
	"github.com/bricoler/bricoler/engine/task"
)

func ShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [task]",
		Short: "Show available tasks, or the parameters of one task's schedule",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showTasks,
	}
	cmd.Flags().StringP("workdir", "w", "", "work directory (default: $BRICOLER_WORKDIR or $HOME/bricoler)")
	return cmd
}

func showTasks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	defer w.Flush()
	if len(args) == 0 {
		for _, name := range task.DefaultRegistry.Names() {
			def, _ := task.DefaultRegistry.Lookup(name)
			fmt.Fprintf(w, "%s\t%s\n", name, def.Description())
		}
		return nil
	}
	def, ok := task.DefaultRegistry.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown task %q", args[0])
	}
	// Schedules stay introspectable with unbound parameters; required
	// values are only checked when the schedule runs.
	sched, err := schedule.New(def, cfg)
	if err != nil {
		return err
	}
	params := sched.Parameters()
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "PARAMETER\tTYPE\tREQUIRED\tVALUE\tSOURCE\tCHOICES\n")
	for _, key := range keys {
		pv := params[key]
		value, source := "", ""
		if pv.Binding != nil && pv.Binding.Value != nil {
			value = pv.Binding.String()
			source = string(pv.Binding.Source)
		}
		required := ""
		if pv.Parameter.Required() {
			required = "yes"
		}
		choices := make([]string, 0, len(pv.Parameter.Choices()))
		for _, c := range pv.Parameter.Choices() {
			choices = append(choices, fmt.Sprintf("%v", c))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			key, pv.Parameter.Type().Name(), required, value, source, strings.Join(choices, "|"))
	}
	return nil
}

// TasksCmd prints bare task names, one per line, for shell completion
// handlers.
func TasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "tasks",
		Short:  "List registered task names",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range task.DefaultRegistry.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
