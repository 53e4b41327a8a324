// Retrying HTTP client for the JSON APIs of the lyrics providers
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicblah/internal/shared"
	"github.com/hashicorp/go-retryablehttp"
)

const defaultUserAgent = "musicblah/1.0"

// APIClient makes GET requests to third-party HTTP APIs.
//
// Connection errors and 5xx/429 answers are retried with backoff by [retryablehttp].
// Once retries run out the last answer is returned as is.
type APIClient struct {
	client    *retryablehttp.Client
	userAgent string
}

// NewAPIClient creates an [APIClient] on top of client, retrying at most retryMax times.
//
// A nil client gets a 15 second timeout and a nil logger silences retry logs.
func NewAPIClient(client *http.Client, retryMax int, logger *log.Logger) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = client
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if logger != nil {
		rc.Logger = shared.LeveledLogger{Logger: logger}
	}

	return &APIClient{client: rc, userAgent: defaultUserAgent}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *APIResponse) OK() bool {
	return isSuccess(r.StatusCode)
}

// Decode unmarshals the JSON body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Get performs a GET request and returns the raw response, whatever its status.
func (a *APIClient) Get(ctx context.Context, url string, headers http.Header) (*APIResponse, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

// GetJSON performs a GET request and decodes a 2xx JSON answer into v.
//
// Other statuses come back as a [StatusError] wrapping [shared.ErrNotFound] for 404 and [shared.ErrAPIRequest] otherwise.
func (a *APIClient) GetJSON(ctx context.Context, provider, url string, headers http.Header, v any) error {
	resp, err := a.Get(ctx, url, headers)
	if err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	if !resp.OK() {
		return statusError(provider, resp.StatusCode, map[int]error{
			http.StatusNotFound:        shared.ErrNotFound,
			http.StatusTooManyRequests: shared.ErrRateLimited,
		}, shared.ErrAPIRequest)
	}
	return resp.Decode(v)
}
