package statuspage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/nholik/status-sentinel/internal/status"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Statuspage REST API root.
	DefaultBaseURL = "https://api.statuspage.io/v1"
	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 30 * time.Second
	// DefaultRateInterval spaces API calls to stay under the vendor's per-key limit.
	DefaultRateInterval = time.Second

	// EnvAPIKey and EnvPageID name the credentials in the secrets store.
	EnvAPIKey = "STATUSPAGE_API_KEY"
	EnvPageID = "STATUSPAGE_PAGE_ID"

	errorBodyLimit = 1024
)

// Component is the vendor's component representation returned by updates.
type Component struct {
	ID                 string       `json:"id"`
	PageID             string       `json:"page_id"`
	GroupID            string       `json:"group_id,omitempty"`
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	Status             status.Value `json:"status"`
	Position           int          `json:"position"`
	Showcase           bool         `json:"showcase"`
	OnlyShowIfDegraded bool         `json:"only_show_if_degraded"`
	CreatedAt          *time.Time   `json:"created_at,omitempty"`
	UpdatedAt          *time.Time   `json:"updated_at,omitempty"`
}

// ComponentUpdater changes the status of a Statuspage component.
type ComponentUpdater interface {
	UpdateComponentStatus(ctx context.Context, componentID string, value status.Value) (*Component, error)
}

// SecretSource resolves credentials by name.
type SecretSource interface {
	Lookup(key string) (string, bool)
}

type updateRequest struct {
	Component componentUpdate `json:"component"`
}

type componentUpdate struct {
	Status status.Value `json:"status"`
}

// Client calls the Statuspage components API for a single page.
type Client struct {
	apiKey       string
	pageID       string
	baseURL      string
	timeout      time.Duration
	rateInterval time.Duration
	httpClient   *http.Client
	logger       zerolog.Logger

	client  *retryablehttp.Client
	limiter *rate.Limiter
}

// Option customizes Client behavior.
type Option func(*Client)

// WithBaseURL overrides the API root (primarily for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimit sets the minimum spacing between API calls. Zero disables limiting.
func WithRateLimit(interval time.Duration) Option {
	return func(c *Client) {
		c.rateInterval = interval
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a client for pageID authenticated with apiKey.
// A missing credential yields a *ConfigError.
func NewClient(apiKey, pageID string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	pageID = strings.TrimSpace(pageID)
	if apiKey == "" {
		return nil, &ConfigError{Missing: EnvAPIKey}
	}
	if pageID == "" {
		return nil, &ConfigError{Missing: EnvPageID}
	}

	c := &Client{
		apiKey:       apiKey,
		pageID:       pageID,
		baseURL:      DefaultBaseURL,
		timeout:      DefaultTimeout,
		rateInterval: DefaultRateInterval,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
		return false, nil
	}
	client.Logger = nil
	client.HTTPClient = c.httpClient
	c.client = client

	if c.rateInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(c.rateInterval), 1)
	}

	return c, nil
}

// NewClientFromSecrets reads STATUSPAGE_API_KEY and STATUSPAGE_PAGE_ID from source.
func NewClientFromSecrets(source SecretSource, opts ...Option) (*Client, error) {
	apiKey, _ := source.Lookup(EnvAPIKey)
	pageID, _ := source.Lookup(EnvPageID)
	return NewClient(apiKey, pageID, opts...)
}

// PageID returns the page the client updates.
func (c *Client) PageID() string {
	return c.pageID
}

// UpdateComponentStatus sends a single PATCH setting the component's status.
// There are no retries; any non-2xx response is returned as *APIError.
func (c *Client) UpdateComponentStatus(ctx context.Context, componentID string, value status.Value) (*Component, error) {
	componentID = strings.TrimSpace(componentID)
	if componentID == "" {
		return nil, errors.New("component id must not be empty")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	payload, err := json.Marshal(updateRequest{Component: componentUpdate{Status: value}})
	if err != nil {
		return nil, fmt.Errorf("marshal statuspage payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/pages/%s/components/%s", c.baseURL, url.PathEscape(c.pageID), url.PathEscape(componentID))
	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodPatch, endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("build statuspage request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("statuspage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	component := &Component{ID: componentID, PageID: c.pageID, Status: value}
	if err := json.NewDecoder(resp.Body).Decode(component); err != nil && !errors.Is(err, io.EOF) {
		c.logger.Debug().Err(err).Str("component_id", componentID).Msg("could not decode component response")
	}

	c.logger.Debug().
		Str("component_id", componentID).
		Str("status", string(value)).
		Int("status_code", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("statuspage component updated")

	return component, nil
}
