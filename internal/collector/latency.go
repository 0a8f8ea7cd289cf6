package collector

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/AntMonss/claude-monitor/internal/event"
)

// defaultProbeTimeout bounds each endpoint probe so a dead host cannot
// hang the tick.
const defaultProbeTimeout = 8 * time.Second

// LatencySampler measures round-trip time to a fixed set of external
// API hosts. Any HTTP response counts as reachable; only transport
// errors and timeouts are failures.
type LatencySampler struct {
	file      string
	endpoints []string
	timeout   time.Duration
	client    *http.Client
}

// NewLatencySampler creates a latency prober writing to file.
func NewLatencySampler(file string, endpoints []string) *LatencySampler {
	return &LatencySampler{
		file:      file,
		endpoints: endpoints,
		timeout:   defaultProbeTimeout,
		client:    &http.Client{},
	}
}

// Name implements Sampler.
func (s *LatencySampler) Name() string { return "latency" }

// Collect implements Sampler. Endpoints are probed concurrently so one
// slow host does not delay the others; results keep endpoint order.
func (s *LatencySampler) Collect(ctx context.Context) ([]Sample, error) {
	results := make([]event.LatencyProbe, len(s.endpoints))

	var wg sync.WaitGroup
	for i, endpoint := range s.endpoints {
		wg.Add(1)
		go func(i int, endpoint string) {
			defer wg.Done()
			results[i] = s.probe(ctx, endpoint)
		}(i, endpoint)
	}
	wg.Wait()

	samples := make([]Sample, len(results))
	for i, rec := range results {
		samples[i] = Sample{File: s.file, Record: rec}
	}
	return samples, nil
}

func (s *LatencySampler) probe(ctx context.Context, endpoint string) event.LatencyProbe {
	rec := event.LatencyProbe{
		TS:       time.Now().UnixMilli(),
		Event:    "latency",
		Endpoint: endpoint,
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, endpoint, nil)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	rec.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || probeCtx.Err() == context.DeadlineExceeded {
			rec.Error = "timeout"
		} else {
			rec.Error = err.Error()
		}
		return rec
	}
	resp.Body.Close()

	rec.OK = true
	return rec
}
