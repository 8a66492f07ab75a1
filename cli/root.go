// Package cli wires the bricoler commands: run a task schedule, show tasks
// and parameters, list task names.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/bricoler/bricoler/engine/core"
	"github.com/bricoler/bricoler/pkg/config"
	"github.com/bricoler/bricoler/pkg/logger"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "bricoler",
		Short:        "Task-based build and test pipeline runner",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "", "set the log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "emit logs as JSON")
	root.AddCommand(
		RunCmd(),
		ShowCmd(),
		TasksCmd(),
	)
	return root
}

// loadConfig builds the configuration from defaults and environment, then
// layers the command's flags on top and initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("workdir") {
		cfg.Workdir, _ = flags.GetString("workdir")
	}
	if flags.Changed("max-jobs") {
		cfg.MaxJobs, _ = flags.GetInt("max-jobs")
	}
	if flags.Changed("skip") {
		cfg.Skip, _ = flags.GetBool("skip")
	}
	// A relative -w is anchored to the invocation directory before the
	// schedule starts changing directories.
	cwd, err := core.CWDFromPath(cfg.Workdir)
	if err != nil {
		return nil, err
	}
	if err := cwd.Validate(); err != nil {
		return nil, err
	}
	cfg.Workdir = cwd.PathStr()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.JSON)
	return cfg, nil
}
