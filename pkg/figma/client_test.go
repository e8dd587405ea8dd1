package figma

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRetryDelay(time.Millisecond), WithRateLimit(0)}, opts...)
	return NewClient("test-token", opts...)
}

type countingTransport struct {
	calls atomic.Int32
	next  http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return c.next.RoundTrip(r)
}

func TestWithHTTPClient(t *testing.T) {
	transport := &countingTransport{next: http.DefaultTransport}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"images":{}}`))
	}, WithHTTPClient(&http.Client{Transport: transport}))

	if _, err := client.GetImages(context.Background(), "FILE", []string{"1:2"}, "png", 1); err != nil {
		t.Fatalf("GetImages() error = %v", err)
	}
	if got := transport.calls.Load(); got != 1 {
		t.Errorf("transport calls = %d, want 1", got)
	}

	WithHTTPClient(nil)(client)
	if client.httpClient.Transport != transport {
		t.Error("a nil client must keep the configured one")
	}
}

func TestGetImages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/FILE123" {
			t.Errorf("path = %q, want /images/FILE123", r.URL.Path)
		}
		if got := r.Header.Get("X-Figma-Token"); got != "test-token" {
			t.Errorf("X-Figma-Token = %q, want test-token", got)
		}
		q := r.URL.Query()
		if q.Get("ids") != "1:2,3:4" || q.Get("format") != "png" || q.Get("scale") != "2" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"err":null,"images":{"1:2":"https://cdn.example.com/a.png","3:4":null}}`))
	})

	resp, err := client.GetImages(context.Background(), "FILE123", []string{"1:2", "3:4"}, "png", 2)
	if err != nil {
		t.Fatalf("GetImages() error = %v", err)
	}

	if u, ok := resp.URL("1:2"); !ok || u != "https://cdn.example.com/a.png" {
		t.Errorf("URL(1:2) = %q, %v", u, ok)
	}
	if _, ok := resp.URL("3:4"); ok {
		t.Error("URL(3:4) reported available for a null entry")
	}
	if _, ok := resp.URL("5:6"); ok {
		t.Error("URL(5:6) reported available for a missing entry")
	}
}

func TestGetFileNodesDepthAndOAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("X-Figma-Token") != "" {
			t.Error("X-Figma-Token must not be sent in OAuth mode")
		}
		if got := r.URL.Query().Get("depth"); got != "1" {
			t.Errorf("depth = %q, want 1", got)
		}
		w.Write([]byte(`{"name":"Design","nodes":{
			"1:2":{"document":{"id":"1:2","name":"Frame","children":[{"id":"1:3","name":"Icon"}]}},
			"9:9":null}}`))
	}, WithOAuth(true))

	resp, err := client.GetFileNodes(context.Background(), "FILE123", []string{"1:2", "9:9"}, 1)
	if err != nil {
		t.Fatalf("GetFileNodes() error = %v", err)
	}

	if nd := resp.Nodes["1:2"]; nd == nil || len(nd.Document.Children) != 1 || nd.Document.Children[0].Name != "Icon" {
		t.Errorf("unexpected node 1:2: %+v", nd)
	}
	if nd, ok := resp.Nodes["9:9"]; !ok || nd != nil {
		t.Errorf("expected null entry for 9:9, got %+v (present=%v)", nd, ok)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"images":{}}`))
	})

	if _, err := client.GetImages(context.Background(), "FILE123", []string{"1:2"}, "png", 1); err != nil {
		t.Fatalf("GetImages() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"status":403,"err":"Invalid token"}`))
	})

	_, err := client.GetImages(context.Background(), "FILE123", []string{"1:2"}, "png", 1)
	if !IsAPIStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403 APIError, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if want := "figma API request failed with status 403: access denied: check the access token and its permissions on the file: Invalid token"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestClientHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.GetImages(ctx, "FILE123", []string{"1:2"}, "png", 1); err == nil {
		t.Fatal("expected an error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("GetImages() ignored context cancellation, took %v", elapsed)
	}
}
