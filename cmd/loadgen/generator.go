package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// target is one request of a round.
type target struct {
	Method string
	Path   string
	Body   string
}

// scenario covers every endpoint, including the 404, 400 and redirect paths.
var scenario = []target{
	{Method: http.MethodGet, Path: "/"},
	{Method: http.MethodGet, Path: "/api/health"},
	{Method: http.MethodGet, Path: "/api/users"},
	{Method: http.MethodGet, Path: "/api/users/1"},
	{Method: http.MethodGet, Path: "/api/users/999"},
	{Method: http.MethodPost, Path: "/api/users", Body: `{"name":"Load Gen","email":"loadgen@example.com"}`},
	{Method: http.MethodPost, Path: "/api/users", Body: `{"name":"Incomplete"}`},
	{Method: http.MethodGet, Path: "/api/products"},
	{Method: http.MethodGet, Path: "/api/slow"},
	{Method: http.MethodGet, Path: "/api/random-error"},
	{Method: http.MethodGet, Path: "/api/redirect-demo"},
}

// newClient returns an HTTP client whose transport is wrapped by otelhttp when instrument is set.
func newClient(instrument bool, opts ...otelhttp.Option) *http.Client {
	transport := http.DefaultTransport
	if instrument {
		opts = append([]otelhttp.Option{
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		}, opts...)
		transport = otelhttp.NewTransport(transport, opts...)
	}
	return &http.Client{Transport: transport, Timeout: 10 * time.Second}
}

// Summary aggregates the outcome of a run.
type Summary struct {
	Requests int
	Errors   int
	Statuses map[int]int
}

func (s Summary) String() string {
	codes := make([]int, 0, len(s.Statuses))
	for code := range s.Statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%d=%d", code, s.Statuses[code]))
	}
	return fmt.Sprintf("requests=%d errors=%d statuses[%s]", s.Requests, s.Errors, strings.Join(parts, " "))
}

type generator struct {
	client *http.Client
	base   string
	log    *zap.Logger

	mu      sync.Mutex
	summary Summary
}

// Run starts workers that each play the scenario rounds times, pausing between rounds.
// rounds <= 0 runs until ctx is done.
func (g *generator) Run(ctx context.Context, workers, rounds int, pause time.Duration) Summary {
	g.summary = Summary{Statuses: make(map[int]int)}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; rounds <= 0 || r < rounds; r++ {
				if ctx.Err() != nil {
					return
				}
				g.round(ctx)
				if pause > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(pause):
					}
				}
			}
		}()
	}
	wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.summary
}

func (g *generator) round(ctx context.Context) {
	for _, t := range scenario {
		if ctx.Err() != nil {
			return
		}
		status, err := g.do(ctx, t)
		g.record(status, err)
		if err != nil {
			g.log.Warn("request failed", zap.String("method", t.Method), zap.String("path", t.Path), zap.Error(err))
			continue
		}
		g.log.Debug("request", zap.String("method", t.Method), zap.String("path", t.Path), zap.Int("status", status))
	}
}

func (g *generator) do(ctx context.Context, t target) (int, error) {
	var body io.Reader
	if t.Body != "" {
		body = bytes.NewBufferString(t.Body)
	}
	req, err := http.NewRequestWithContext(ctx, t.Method, strings.TrimRight(g.base, "/")+t.Path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (g *generator) record(status int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.summary.Requests++
	if err != nil {
		g.summary.Errors++
		return
	}
	g.summary.Statuses[status]++
}
