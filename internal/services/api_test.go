package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/musicblah/internal/shared"
	tu "github.com/desertthunder/musicblah/internal/testing"
)

func TestAPIClient(t *testing.T) {
	t.Run("Get", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/test" {
					t.Errorf("expected path '/test', got %s", r.URL.Path)
				}
				if r.Header.Get("User-Agent") != defaultUserAgent {
					t.Errorf("expected user agent %q, got %q", defaultUserAgent, r.Header.Get("User-Agent"))
				}
				if r.Header.Get("Authorization") != "Bearer abc" {
					t.Errorf("expected custom header to be forwarded")
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			client := NewAPIClient(nil, 0, nil)
			resp, err := client.Get(context.Background(), server.URL+"/test", http.Header{"Authorization": {"Bearer abc"}})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.OK() {
				t.Errorf("expected status 200, got %d", resp.StatusCode)
			}

			var body map[string]string
			if err := resp.Decode(&body); err != nil {
				t.Fatalf("expected JSON body, got %v", err)
			}
			if body["status"] != "success" {
				t.Errorf("unexpected body %v", body)
			}
		})

		t.Run("Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("plain text response"))
			}))
			defer server.Close()

			resp, err := NewAPIClient(nil, 0, nil).Get(context.Background(), server.URL, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if string(resp.Body) != "plain text response" {
				t.Errorf("expected body 'plain text response', got %s", string(resp.Body))
			}
			var v any
			if err := resp.Decode(&v); err == nil {
				t.Error("expected decode error for plain text")
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			_, err := NewAPIClient(nil, 0, nil).Get(context.Background(), "http://example.com/test\x00invalid", nil)
			if err == nil {
				t.Fatal("expected error for invalid URL")
			}
			if !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}

			_, err := NewAPIClient(client, 0, nil).Get(context.Background(), "http://example.com", nil)
			if err == nil {
				t.Fatal("expected error for failed request")
			}
			if !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Body Read", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: &tu.FCloser{}}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}

			_, err := NewAPIClient(client, 0, nil).Get(context.Background(), "http://example.com", nil)
			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("Retries Server Errors", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			resp, err := NewAPIClient(nil, 2, nil).Get(context.Background(), server.URL, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.OK() || calls.Load() != 2 {
				t.Errorf("expected success on second attempt, got status %d after %d calls", resp.StatusCode, calls.Load())
			}
		})

		t.Run("Returns Last Answer When Retries Run Out", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer server.Close()

			client := NewAPIClient(server.Client(), 1, nil)
			resp, err := client.Get(context.Background(), server.URL, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusServiceUnavailable || calls.Load() != 2 {
				t.Errorf("expected 503 after 2 calls, got %d after %d", resp.StatusCode, calls.Load())
			}
		})
	})

	t.Run("GetJSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/missing":
				w.WriteHeader(http.StatusNotFound)
			case "/teapot":
				w.WriteHeader(http.StatusTeapot)
			default:
				w.Write([]byte(`{"name":"ok"}`))
			}
		}))
		defer server.Close()

		client := NewAPIClient(nil, 0, nil)

		var v struct{ Name string }
		if err := client.GetJSON(context.Background(), "test", server.URL+"/ok", nil, &v); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if v.Name != "ok" {
			t.Errorf("expected name 'ok', got %q", v.Name)
		}

		err := client.GetJSON(context.Background(), "test", server.URL+"/missing", nil, &v)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if HTTPStatus(err) != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", HTTPStatus(err))
		}

		err = client.GetJSON(context.Background(), "test", server.URL+"/teapot", nil, &v)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
