package schedule

import (
	"context"

	"github.com/bricoler/bricoler/engine/core"
	"github.com/bricoler/bricoler/pkg/logger"
)

// Run validates the whole schedule and then executes it post-order:
// dependencies strictly precede dependents, each dependency's outputs are
// exposed to the dependent under the corresponding input slot name, and
// shared instances run once. The entire run happens inside a working
// directory scope rooted at the configured base directory.
func (s *Schedule) Run(ctx context.Context) (err error) {
	if err := s.validate(); err != nil {
		return err
	}
	restore, err := core.EnterDir(s.cfg.Workdir)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := restore(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	logger.Info("running schedule",
		"target", s.root.task.Name(),
		"workdir", s.cfg.Workdir,
		"max_jobs", s.cfg.MaxJobs,
	)
	_, err = s.root.run(ctx)
	return err
}

func (n *Node) run(ctx context.Context) (core.Output, error) {
	for _, slot := range n.slots() {
		out, err := n.children[slot].run(ctx)
		if err != nil {
			return nil, err
		}
		n.task.SetInput(slot, out.AsInput())
	}
	return n.task.Run(ctx)
}
