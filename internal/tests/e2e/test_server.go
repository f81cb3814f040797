package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/internal/app"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/mocks"
	testconfig "github.com/vouge2017/ethio-farm-connect-sub000/internal/tests/config"
)

// TestServer runs the full application stack over SQLite and miniredis
type TestServer struct {
	Server    *httptest.Server
	Container *app.Container
	Sent      *mocks.MockDispatcher
	Client    *http.Client
	BaseURL   string
	metrics   *ServerMetrics
}

// ServerMetrics tracks request durations for latency checks
type ServerMetrics struct {
	RequestDurations []time.Duration
	mu               sync.Mutex
}

// NewTestServer builds the container, starts the change-feed subscriber and serves the router
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	cfg := testconfig.LoadTestConfig(t)
	db := testconfig.NewTestDB(t)
	rdb, _ := testconfig.NewTestRedis(t)
	sent := mocks.NewMockDispatcher()

	container, err := app.NewContainerWithStores(cfg, zap.NewNop(), db, rdb, app.WithDispatcher(sent))
	if err != nil {
		t.Fatalf("failed to build container: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := container.Broker.Run(ctx, container.Hub, ready); err != nil {
			t.Logf("change feed stopped: %v", err)
		}
	}()
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("change feed did not subscribe")
	}

	server := httptest.NewServer(container.Router())
	t.Cleanup(func() {
		container.Hub.Close()
		server.Close()
		cancel()
		<-done
	})

	return &TestServer{
		Server:    server,
		Container: container,
		Sent:      sent,
		Client:    &http.Client{Timeout: 10 * time.Second},
		BaseURL:   server.URL,
		metrics:   &ServerMetrics{},
	}
}

// URL returns the full URL for a given path
func (ts *TestServer) URL(path string) string {
	return ts.BaseURL + path
}

// Response is a decoded JSON reply
type Response struct {
	Status int
	Header http.Header
	Body   map[string]interface{}
}

// Data returns the {data: ...} object of the response
func (r *Response) Data() map[string]interface{} {
	data, _ := r.Body["data"].(map[string]interface{})
	return data
}

// List returns the {data: [...]} array of the response
func (r *Response) List() []interface{} {
	data, _ := r.Body["data"].([]interface{})
	return data
}

// Do sends a JSON request, optionally authenticated, and decodes the reply
func (ts *TestServer) Do(t *testing.T, method, path, token string, body interface{}) *Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL(path), &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := ts.Client.Do(req)
	ts.recordRequestDuration(time.Since(start))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	out := &Response{Status: resp.StatusCode, Header: resp.Header}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out.Body)
	}
	return out
}

// DialFeed opens the change-feed websocket with the access token in the query string
func (ts *TestServer) DialFeed(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.BaseURL, "http") + "/realtime/v1/websocket?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("failed to dial change feed (status %d): %v", status, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (ts *TestServer) recordRequestDuration(d time.Duration) {
	ts.metrics.mu.Lock()
	defer ts.metrics.mu.Unlock()
	ts.metrics.RequestDurations = append(ts.metrics.RequestDurations, d)
}

// ServerMetricsReport contains latency percentiles of the recorded requests
type ServerMetricsReport struct {
	TotalRequests int
	AverageTime   time.Duration
	MaxTime       time.Duration
	P95Time       time.Duration
}

// GetMetrics returns a latency report of every request made so far
func (ts *TestServer) GetMetrics() ServerMetricsReport {
	ts.metrics.mu.Lock()
	durations := append([]time.Duration(nil), ts.metrics.RequestDurations...)
	ts.metrics.mu.Unlock()

	if len(durations) == 0 {
		return ServerMetricsReport{}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}
	p95 := int(float64(len(durations)) * 0.95)
	if p95 >= len(durations) {
		p95 = len(durations) - 1
	}
	return ServerMetricsReport{
		TotalRequests: len(durations),
		AverageTime:   total / time.Duration(len(durations)),
		MaxTime:       durations[len(durations)-1],
		P95Time:       durations[p95],
	}
}

func (r ServerMetricsReport) String() string {
	return fmt.Sprintf("requests=%d avg=%v p95=%v max=%v", r.TotalRequests, r.AverageTime, r.P95Time, r.MaxTime)
}
