package executor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/nholik/status-sentinel/internal/discovery"
	"github.com/nholik/status-sentinel/internal/status"
	"github.com/rs/zerolog"
)

func writeProbe(t *testing.T, script string) discovery.Service {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell probes require a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "ping")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write probe: %v", err)
	}
	return discovery.Service{Name: "svc", Dir: dir, ProbePath: path}
}

func TestExecutor_Run(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   status.Value
	}{
		{"operational", "echo operational", status.Operational},
		{"surrounding whitespace trimmed", "printf '  partial_outage \\n\\n'", status.PartialOutage},
		{"empty output", "exit 0", status.MajorOutage},
		{"whitespace only", "echo '   '", status.MajorOutage},
		{"exit status ignored", "echo operational; exit 3", status.Operational},
		{"stderr does not count", "echo oops >&2", status.MajorOutage},
		{"degraded performance", "echo degraded_performance", status.DegradedPerformance},
		{"vendor label not validated", "echo custom_state", status.Value("custom_state")},
	}

	ex := New(zerolog.Nop(), 5*time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := writeProbe(t, tt.script)
			if got := ex.Run(context.Background(), svc, 0); got != tt.want {
				t.Fatalf("Run() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecutor_TimeoutIsMajorOutage(t *testing.T) {
	svc := writeProbe(t, "exec sleep 5")

	start := time.Now()
	got := New(zerolog.Nop(), time.Minute).Run(context.Background(), svc, 100*time.Millisecond)
	if got != status.MajorOutage {
		t.Fatalf("expected major_outage on timeout, got %q", got)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("probe was not stopped at the timeout, took %s", elapsed)
	}
}

func TestExecutor_DefaultTimeoutApplies(t *testing.T) {
	svc := writeProbe(t, "exec sleep 5")

	got := New(zerolog.Nop(), 100*time.Millisecond).Run(context.Background(), svc, 0)
	if got != status.MajorOutage {
		t.Fatalf("expected major_outage on default timeout, got %q", got)
	}
}

func TestExecutor_MissingProbeIsMajorOutage(t *testing.T) {
	dir := t.TempDir()
	svc := discovery.Service{Name: "svc", Dir: dir, ProbePath: filepath.Join(dir, "ping")}

	if got := New(zerolog.Nop(), time.Second).Run(context.Background(), svc, 0); got != status.MajorOutage {
		t.Fatalf("expected major_outage for missing probe, got %q", got)
	}
}

func TestExecutor_CanceledContextIsMajorOutage(t *testing.T) {
	svc := writeProbe(t, "echo operational")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := New(zerolog.Nop(), time.Second).Run(ctx, svc, 0); got != status.MajorOutage {
		t.Fatalf("expected major_outage for canceled context, got %q", got)
	}
}

func TestExecutor_RunsInServiceDir(t *testing.T) {
	svc := writeProbe(t, "cat marker")
	if err := os.WriteFile(filepath.Join(svc.Dir, "marker"), []byte("partial_outage\n"), 0o600); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	if got := New(zerolog.Nop(), 5*time.Second).Run(context.Background(), svc, 0); got != status.PartialOutage {
		t.Fatalf("expected probe to run from its directory, got %q", got)
	}
}

func TestExecutor_RelativeProbePath(t *testing.T) {
	svc := writeProbe(t, "echo operational")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	rel, err := filepath.Rel(wd, svc.ProbePath)
	if err != nil {
		t.Skipf("temp dir not relative to working dir: %v", err)
	}
	relDir, _ := filepath.Rel(wd, svc.Dir)
	svc.ProbePath = rel
	svc.Dir = relDir

	if got := New(zerolog.Nop(), 5*time.Second).Run(context.Background(), svc, 0); got != status.Operational {
		t.Fatalf("expected relative probe path to resolve, got %q", got)
	}
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 4}
	n, err := b.Write([]byte("abcdef"))
	if err != nil || n != 6 {
		t.Fatalf("expected full write count, got %d, %v", n, err)
	}
	_, _ = b.Write([]byte("gh"))
	if b.String() != "abcd" {
		t.Fatalf("expected capped content, got %q", b.String())
	}
}
