// Command srsctl is a local command line client for the scheduler. It keeps
// one learner's study state in a SQLite file and exposes the scheduling
// operations as subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := newSession()
	err := newRootCmd(s).ExecuteContext(ctx)
	if cerr := s.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
