package main

import (
	"fmt"
	"os"

	"github.com/bricoler/bricoler/cli"
	"github.com/bricoler/bricoler/engine/task"
	"github.com/bricoler/bricoler/tasks"
)

func main() {
	if err := tasks.Register(task.DefaultRegistry); err != nil {
		fmt.Fprintln(os.Stderr, "bricoler:", err)
		os.Exit(1)
	}
	if err := cli.RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bricoler:", err)
		os.Exit(1)
	}
}
