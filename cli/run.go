package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bricoler/bricoler/engine/schedule"
	"github.com/bricoler/bricoler/engine/task"
	"github.com/bricoler/bricoler/pkg/config"
	"github.com/bricoler/bricoler/pkg/logger"
)

func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <task> [<task>/<param>=<value> ...]",
		Short: "Build the schedule for a task and run it",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTask,
	}
	cmd.Flags().IntP("max-jobs", "j", 0, "maximum number of concurrent jobs passed to tasks (default: number of CPUs)")
	cmd.Flags().BoolP("skip", "S", false, "skip execution of dependent tasks")
	cmd.Flags().StringP("workdir", "w", "", "work directory (default: $BRICOLER_WORKDIR or $HOME/bricoler)")
	cmd.Flags().StringP("alias", "a", "", "store an alias for this invocation")
	return cmd
}

func runTask(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	state, err := config.LoadState(cfg.Workdir)
	if err != nil {
		return err
	}
	def, tokens, err := resolveTarget(state, args)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		if err := cfg.AddOverride(token); err != nil {
			return err
		}
	}
	if err := state.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := state.Unlock(); err != nil {
			logger.Warn("failed to release state lock", "error", err)
		}
	}()
	if alias, _ := cmd.Flags().GetString("alias"); alias != "" {
		if err := state.AddAlias(alias, def.Name(), cfg.OverrideTokens); err != nil {
			return err
		}
	}
	sched, err := schedule.New(def, cfg)
	if err != nil {
		return err
	}
	return sched.Run(cmd.Context())
}

// resolveTarget maps the first argument to a task definition, falling back
// to stored aliases. An alias prepends its recorded parameter tokens so
// they apply as if typed again.
func resolveTarget(state *config.State, args []string) (*task.Definition, []string, error) {
	name := args[0]
	tokens := args[1:]
	if def, ok := task.DefaultRegistry.Lookup(name); ok {
		return def, tokens, nil
	}
	alias, ok := state.LookupAlias(name)
	if !ok {
		return nil, nil, fmt.Errorf("unknown task %q", name)
	}
	def, ok := task.DefaultRegistry.Lookup(alias.Task)
	if !ok {
		return nil, nil, fmt.Errorf("unknown task %q in alias %q", alias.Task, name)
	}
	replay := append([]string(nil), alias.Parameters...)
	return def, append(replay, tokens...), nil
}
