package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"
)

func TestErrorsByResourceCachesResults(t *testing.T) {
	hits := 0
	cacheStub := newStubCache()
	client := NewIncidentClient("https://example.com", "", time.Second, cacheStub, time.Minute)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		hits++
		if req.URL.Path != "/api/v1/resource-errors" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		data, err := json.Marshal(map[string]any{
			"errors": map[string]int{"alice": 2, "bob": 0},
		})
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
		}, nil
	}))

	ctx := context.Background()
	counts, err := client.ErrorsByResource(ctx, map[string]int{"alice": 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one upstream request, got %d", hits)
	}
	if counts["alice"] != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	cached, err := client.ErrorsByResource(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected cached error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("cache miss triggered network call; hits=%d", hits)
	}
	if cached["alice"] != 2 {
		t.Fatalf("unexpected cached counts: %v", cached)
	}
}

func TestErrorsByResourceUnconfigured(t *testing.T) {
	client := NewIncidentClient("", "", time.Second, nil, 0)
	if _, err := client.ErrorsByResource(context.Background(), nil); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
}

func TestErrorsByResourceUpstreamFailure(t *testing.T) {
	client := NewIncidentClient("https://example.com", "", time.Second, nil, 0)
	client.httpClient = newTestClient(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
		}, nil
	}))

	if _, err := client.ErrorsByResource(context.Background(), nil); err == nil {
		t.Fatalf("expected error for upstream failure")
	}
}
