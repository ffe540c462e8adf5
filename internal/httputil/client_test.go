package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, MaxRetries: 2})

	resp, err := client.Get(context.Background(), "/health")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := DecodeResponse(resp, &out); err != nil {
		t.Fatalf("DecodeResponse() error: %v", err)
	}
	if out.Status != "ok" {
		t.Errorf("status = %q, want ok", out.Status)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("upstream called %d times, want 2", calls)
	}
}

func TestClientPostSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _, err := ReadAllWithLimit(r.Body, 1<<20)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"customer_id"`) {
			t.Errorf("body missing field: %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})

	resp, err := client.Post(context.Background(), "/appointments", map[string]any{"customer_id": "c-1"})
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}
	if err := DecodeResponse(resp, nil); err != nil {
		t.Fatalf("DecodeResponse() error: %v", err)
	}
}

func TestDecodeResponseErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	resp, err := client.Get(context.Background(), "/broken")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	err = DecodeResponse(resp, nil)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestReadAllWithLimitTruncates(t *testing.T) {
	data, truncated, err := ReadAllWithLimit(strings.NewReader("abcdefgh"), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !truncated || string(data) != "abcd" {
		t.Errorf("got %q truncated=%v, want abcd truncated=true", data, truncated)
	}
}

func TestReadAllStrictRejectsOversize(t *testing.T) {
	if _, err := ReadAllStrict(strings.NewReader("abcdefgh"), 4); err == nil {
		t.Error("expected error for oversize body")
	}
	data, err := ReadAllStrict(strings.NewReader("abc"), 4)
	if err != nil || string(data) != "abc" {
		t.Errorf("got %q, %v", data, err)
	}
}
