// Command status-sentinel runs every service probe under the services root and
// mirrors status changes onto Statuspage components.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nholik/status-sentinel/internal/monitor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(execute(ctx, os.Args[1:]))
}

func execute(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var fatal *monitor.FatalError
		if errors.As(err, &fatal) {
			fmt.Fprintf(os.Stderr, "status-sentinel: %v\n", fatal.Err)
		} else {
			fmt.Fprintf(os.Stderr, "status-sentinel: %v\n", err)
		}
		return 1
	}
	return 0
}
