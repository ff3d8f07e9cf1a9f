package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const responseBodyLimit = 1024

// delivery tunes outbound notification requests.
type delivery struct {
	timeout     time.Duration
	minInterval time.Duration
	burst       int
	firstRetry  time.Duration
	maxRetry    time.Duration
	giveUpAfter time.Duration
}

var defaultDelivery = delivery{
	timeout:     10 * time.Second,
	minInterval: time.Second,
	burst:       1,
	firstRetry:  time.Second,
	maxRetry:    10 * time.Second,
	giveUpAfter: 30 * time.Second,
}

// poster sends JSON payloads to one endpoint. Requests are spaced by a token
// bucket; 429 and 5xx responses are retried, everything else is final.
type poster struct {
	logger  zerolog.Logger
	target  string
	url     string
	client  *retryablehttp.Client
	limiter *rate.Limiter
	tuning  delivery
}

func newPoster(logger zerolog.Logger, target, url string, tuning delivery) *poster {
	client := retryablehttp.NewClient()
	// Retries are driven by send so that Retry-After and the overall deadline apply.
	client.RetryMax = 0
	client.CheckRetry = func(context.Context, *http.Response, error) (bool, error) {
		return false, nil
	}
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: tuning.timeout}

	return &poster{
		logger:  logger.With().Str("target", target).Logger(),
		target:  target,
		url:     url,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(tuning.minInterval), tuning.burst),
		tuning:  tuning,
	}
}

// wait blocks until the rate limiter admits one more notification.
func (p *poster) wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// send delivers payload, retrying transient failures until giveUpAfter elapses.
func (p *poster) send(ctx context.Context, payload []byte) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.tuning.firstRetry
	exp.MaxInterval = p.tuning.maxRetry
	exp.MaxElapsedTime = p.tuning.giveUpAfter
	exp.Reset()
	policy := &hintedBackOff{BackOff: exp}

	operation := func() error {
		err := p.attempt(ctx, payload)
		var hint *retryAfterError
		if errors.As(err, &hint) {
			policy.hint = hint.Duration
		}
		return err
	}
	onRetry := func(err error, wait time.Duration) {
		p.logger.Debug().Err(err).Dur("wait", wait).Msg("notification failed, retrying")
	}

	return backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), onRetry)
}

// attempt performs one POST. Non-retryable failures are wrapped in backoff.Permanent.
func (p *poster) attempt(ctx context.Context, payload []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.tuning.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build %s request: %w", p.target, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", p.target, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	detail := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		cause := fmt.Errorf("%s rate limited: %s", p.target, resp.Status)
		if wait, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			return &retryAfterError{Duration: wait, err: cause}
		}
		return cause
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%s server error: %s", p.target, resp.Status)
	case detail != "":
		return backoff.Permanent(fmt.Errorf("%s request failed: %s (%s)", p.target, resp.Status, detail))
	default:
		return backoff.Permanent(fmt.Errorf("%s request failed: %s", p.target, resp.Status))
	}
}

// hintedBackOff lets a server-provided Retry-After replace the next computed delay.
type hintedBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (b *hintedBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.hint > 0 {
		next, b.hint = b.hint, 0
	}
	return next
}

// parseRetryAfter accepts delay-seconds or an HTTP date relative to now.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, seconds > 0
	}
	if when, err := http.ParseTime(value); err == nil {
		wait := when.Sub(now)
		return wait, wait > 0
	}
	return 0, false
}

type retryAfterError struct {
	Duration time.Duration
	err      error
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("%v; retry after %s", e.err, e.Duration)
}

func (e *retryAfterError) Unwrap() error {
	return e.err
}
