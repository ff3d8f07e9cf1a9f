package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nholik/status-sentinel/internal/discovery"
	"github.com/nholik/status-sentinel/internal/status"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single probe invocation.
	DefaultTimeout = 60 * time.Second

	// waitDelay bounds how long Wait blocks on pipes held open by probe children after a kill.
	waitDelay = 2 * time.Second

	maxOutputBytes = 4 << 10
)

// Runner executes a service probe and returns its status.
type Runner interface {
	Run(ctx context.Context, svc discovery.Service, timeout time.Duration) status.Value
}

// Executor runs probe executables as child processes.
type Executor struct {
	logger  zerolog.Logger
	timeout time.Duration
}

// New returns an Executor using timeout when a call does not override it.
func New(logger zerolog.Logger, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{logger: logger, timeout: timeout}
}

// Run invokes the probe with no arguments from the service directory and returns
// its trimmed stdout. Timeouts, launch failures and empty output all map to
// major_outage; the exit status is ignored.
func (e *Executor) Run(ctx context.Context, svc discovery.Service, timeout time.Duration) status.Value {
	if timeout <= 0 {
		timeout = e.timeout
	}
	logger := e.logger.With().Str("service", svc.Name).Logger()

	probePath, err := filepath.Abs(svc.ProbePath)
	if err != nil {
		logger.Error().Err(err).Str("probe", svc.ProbePath).Msg("resolve probe path failed, assuming major_outage")
		return status.MajorOutage
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := &cappedBuffer{limit: maxOutputBytes}
	stderr := &cappedBuffer{limit: maxOutputBytes}

	cmd := exec.CommandContext(runCtx, probePath)
	cmd.Dir = svc.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if stderrText := strings.TrimSpace(stderr.String()); stderrText != "" {
		logger.Debug().Str("stderr", stderrText).Msg("probe stderr")
	}

	if ctxErr := runCtx.Err(); ctxErr != nil {
		logger.Error().
			Err(ctxErr).
			Dur("timeout", timeout).
			Dur("elapsed", elapsed).
			Msg("probe timed out, assuming major_outage")
		return status.MajorOutage
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
			logger.Error().Err(err).Msg("probe execution failed, assuming major_outage")
			return status.MajorOutage
		}
		logger.Debug().Err(err).Msg("probe exited with error, using its output")
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		logger.Warn().Msg("probe returned empty output, assuming major_outage")
		return status.MajorOutage
	}

	value := status.Value(output)
	if !status.Known(value) {
		logger.Warn().Str("status", output).Msg("probe returned an unrecognized status label")
	}
	logger.Debug().Str("status", output).Dur("elapsed", elapsed).Msg("probe completed")
	return value
}

// cappedBuffer keeps at most limit bytes and silently drops the rest.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
