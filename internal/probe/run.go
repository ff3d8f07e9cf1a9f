package probe

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Main evaluates policy with a fresh HTTPChecker and emits the label to out.
// It is the body of every ping executable.
func Main(ctx context.Context, policy Policy, out io.Writer, logger zerolog.Logger) error {
	checker := NewHTTPChecker(logger, DefaultRequestTimeout)

	start := time.Now()
	value := policy.Evaluate(ctx, checker)
	logger.Info().
		Str("status", string(value)).
		Dur("elapsed", time.Since(start)).
		Msg("probe finished")

	return Emit(out, value)
}
