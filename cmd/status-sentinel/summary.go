package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/nholik/status-sentinel/internal/monitor"
	"github.com/nholik/status-sentinel/internal/status"
)

func printSummary(w io.Writer, summary monitor.Summary) {
	if summary.Checked == 0 {
		fmt.Fprintln(w, "No services found.")
		return
	}

	names := make([]string, 0, len(summary.Statuses))
	for name := range summary.Statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-24s %s\n", name, summary.Statuses[name])
	}
	for _, change := range summary.Transitions {
		fmt.Fprintf(w, "  updated %s: %s -> %s\n", change.Service, status.Label(change.PreviousStatus), change.CurrentStatus)
	}

	fmt.Fprintf(w, "Services checked: %d\n", summary.Checked)
	fmt.Fprintf(w, "Status changes: %d\n", summary.Changes)
	if summary.FailedUpdates > 0 {
		fmt.Fprintf(w, "Failed updates: %d\n", summary.FailedUpdates)
	}
	if summary.Errors > 0 {
		fmt.Fprintf(w, "Service errors: %d\n", summary.Errors)
	}
	fmt.Fprintf(w, "Cache file: %s\n", summary.CacheFile)
}
