package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRequestTimeout bounds each GET issued by a probe.
const DefaultRequestTimeout = 10 * time.Second

// HTTPChecker issues GET requests and records their outcome.
type HTTPChecker struct {
	client *http.Client
	logger zerolog.Logger
}

// NewHTTPChecker returns a checker whose requests are bounded by timeout.
func NewHTTPChecker(logger zerolog.Logger, timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPChecker{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Get implements Getter. Transport errors are reported in Outcome.Err.
func (c *HTTPChecker) Get(ctx context.Context, url string) Outcome {
	start := time.Now()
	outcome := Outcome{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		outcome.Err = err
		c.logger.Warn().Err(err).Str("url", url).Msg("build request failed")
		return outcome
	}

	resp, err := c.client.Do(req)
	if err != nil {
		outcome.Err = err
		c.logger.Warn().Err(err).Str("url", url).Dur("elapsed", time.Since(start)).Msg("request failed")
		return outcome
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	outcome.StatusCode = resp.StatusCode
	c.logger.Debug().
		Str("url", url).
		Int("status_code", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")
	return outcome
}
