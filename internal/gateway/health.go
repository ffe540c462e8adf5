package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/atendeflow/gateway/internal/config"
	"github.com/atendeflow/gateway/internal/httputil"
)

// HealthChecker probes the /health endpoint of every upstream.
type HealthChecker struct {
	clients map[string]*httputil.Client
	timeout time.Duration
}

// NewHealthChecker builds a checker for the configured upstreams.
func NewHealthChecker(upstreams map[string]*config.UpstreamConfig) *HealthChecker {
	clients := make(map[string]*httputil.Client, len(upstreams))
	for name, up := range upstreams {
		clients[name] = httputil.NewClient(httputil.ClientConfig{
			BaseURL:    up.URL,
			Timeout:    5 * time.Second,
			MaxRetries: 1,
		})
	}
	return &HealthChecker{clients: clients, timeout: 5 * time.Second}
}

// Check probes every upstream concurrently and reports each status.
func (h *HealthChecker) Check(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var mu sync.Mutex
	var wg sync.WaitGroup
	statuses := make(map[string]string, len(h.clients))

	for name, client := range h.clients {
		wg.Add(1)
		go func(name string, client *httputil.Client) {
			defer wg.Done()
			status := "ok"
			resp, err := client.Get(ctx, "/health")
			if err != nil {
				status = "unreachable"
			} else {
				if resp.StatusCode != http.StatusOK {
					status = "unhealthy"
				}
				resp.Body.Close()
			}
			mu.Lock()
			statuses[name] = status
			mu.Unlock()
		}(name, client)
	}

	wg.Wait()
	return statuses
}

// Handler serves the aggregated health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		statuses := h.Check(r.Context())

		overall := "ok"
		code := http.StatusOK
		for _, s := range statuses {
			if s != "ok" {
				overall = "degraded"
				code = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   overall,
			"services": statuses,
		})
	})
}
