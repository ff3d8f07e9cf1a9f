package statuspage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nholik/status-sentinel/internal/secrets"
	"github.com/nholik/status-sentinel/internal/status"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithBaseURL(baseURL), WithRateLimit(0)}, opts...)
	client, err := NewClient("secret-key", "page-1", opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClient_MissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		pageID  string
		missing string
	}{
		{"no api key", "", "page", EnvAPIKey},
		{"blank api key", "   ", "page", EnvAPIKey},
		{"no page id", "key", "", EnvPageID},
		{"neither", "", "", EnvAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.apiKey, tt.pageID)
			if client != nil {
				t.Fatalf("expected nil client")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Missing != tt.missing {
				t.Fatalf("expected missing %s, got %s", tt.missing, cfgErr.Missing)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Fatalf("expected error to name %s, got %q", tt.missing, err.Error())
			}
		})
	}
}

func TestNewClientFromSecrets(t *testing.T) {
	store := secrets.New(map[string]string{
		EnvAPIKey: "key",
		EnvPageID: "page-42",
	})

	client, err := NewClientFromSecrets(store)
	if err != nil {
		t.Fatalf("NewClientFromSecrets: %v", err)
	}
	if client.PageID() != "page-42" {
		t.Fatalf("unexpected page id: %s", client.PageID())
	}

	_, err = NewClientFromSecrets(secrets.New(map[string]string{EnvAPIKey: "key"}))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Missing != EnvPageID {
		t.Fatalf("expected missing page id error, got %v", err)
	}
}

func TestUpdateComponentStatus_RequestShape(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotAuth   string
		gotType   string
		gotBody   map[string]map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmp-1","page_id":"page-1","name":"Webapp","status":"major_outage","updated_at":"2024-01-02T03:04:05Z"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/v1/")
	component, err := client.UpdateComponentStatus(context.Background(), "cmp-1", status.MajorOutage)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Fatalf("expected PATCH, got %s", gotMethod)
	}
	if gotPath != "/v1/pages/page-1/components/cmp-1" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "OAuth secret-key" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Fatalf("unexpected content type: %q", gotType)
	}
	if gotBody["component"]["status"] != "major_outage" {
		t.Fatalf("unexpected body: %v", gotBody)
	}

	if component.Name != "Webapp" || component.Status != status.MajorOutage {
		t.Fatalf("unexpected component: %+v", component)
	}
	if component.UpdatedAt == nil || component.UpdatedAt.Year() != 2024 {
		t.Fatalf("expected updated_at to decode, got %v", component.UpdatedAt)
	}
}

func TestUpdateComponentStatus_EmptySuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	component, err := newTestClient(t, server.URL).UpdateComponentStatus(context.Background(), "cmp-9", status.Operational)
	if err != nil {
		t.Fatalf("expected 204 to succeed, got %v", err)
	}
	if component.ID != "cmp-9" || component.Status != status.Operational {
		t.Fatalf("unexpected synthesized component: %+v", component)
	}
}

func TestUpdateComponentStatus_NonSuccessIsAPIError(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError} {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}))

		_, err := newTestClient(t, server.URL).UpdateComponentStatus(context.Background(), "cmp-1", status.PartialOutage)
		server.Close()

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: expected APIError, got %v", code, err)
		}
		if apiErr.StatusCode != code {
			t.Fatalf("expected status %d, got %d", code, apiErr.StatusCode)
		}
		if !strings.Contains(apiErr.Error(), "nope") {
			t.Fatalf("expected response detail in error, got %q", apiErr.Error())
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Fatalf("status %d: expected exactly one attempt, got %d", code, got)
		}
	}
}

func TestUpdateComponentStatus_ErrorBodyTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(strings.Repeat("x", 4*errorBodyLimit)))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).UpdateComponentStatus(context.Background(), "cmp-1", status.Operational)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if len(apiErr.Body) != errorBodyLimit {
		t.Fatalf("expected body truncated to %d, got %d", errorBodyLimit, len(apiErr.Body))
	}
}

func TestUpdateComponentStatus_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithTimeout(50*time.Millisecond))
	start := time.Now()
	if _, err := client.UpdateComponentStatus(context.Background(), "cmp-1", status.Operational); err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Fatalf("timeout not enforced, took %s", elapsed)
	}
}

func TestUpdateComponentStatus_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url).UpdateComponentStatus(context.Background(), "cmp-1", status.Operational)
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("transport error should not be an APIError: %v", err)
	}
}

func TestUpdateComponentStatus_EmptyComponentID(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	if _, err := client.UpdateComponentStatus(context.Background(), " ", status.Operational); err == nil {
		t.Fatalf("expected error for empty component id")
	}
}

func TestUpdateComponentStatus_RateLimitBlocks(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithRateLimit(500*time.Millisecond))
	if _, err := client.UpdateComponentStatus(context.Background(), "a", status.Operational); err != nil {
		t.Fatalf("first update: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.UpdateComponentStatus(ctx, "b", status.Operational); err == nil {
		t.Fatalf("expected rate limiter to block second call")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected one request to reach the server, got %d", got)
	}
}

func TestDryRunUpdater(t *testing.T) {
	updater := NewDryRunUpdater(zerolog.Nop(), "page-1")
	component, err := updater.UpdateComponentStatus(context.Background(), "cmp-1", status.MajorOutage)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if component.ID != "cmp-1" || component.PageID != "page-1" || component.Status != status.MajorOutage {
		t.Fatalf("unexpected component: %+v", component)
	}
}
