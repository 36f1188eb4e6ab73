package line

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Prober measures candidate line latency and picks the fastest one.
// Probing is advisory: every failure path falls back to the default line.
type Prober struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger

	// probeURL overrides Line.ProbeURL in tests.
	probeURL func(Line) string
}

// NewProber creates a prober with the given per-probe timeout.
func NewProber(timeout time.Duration, logger *slog.Logger) *Prober {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		logger:   logger,
		probeURL: Line.ProbeURL,
	}
}

// Probe fans out one concurrent probe per candidate and returns the line
// with the lowest observed latency. A probe exceeding its timeout counts as
// a non-response, not an error. When nothing responds the default line is
// returned; Probe never fails.
func (p *Prober) Probe(ctx context.Context) Line {
	latencies := make([]time.Duration, len(All))
	for i := range latencies {
		latencies[i] = -1
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, l := range All {
		g.Go(func() error {
			d, err := p.probeOne(gctx, l)
			if err != nil {
				p.logger.Debug("line probe failed", "line", l.String(), "error", err)
				return nil
			}
			latencies[i] = d
			return nil
		})
	}
	// Workers only record results; no error can propagate.
	_ = g.Wait()

	best := Bda2
	var bestLatency time.Duration = -1
	for i, l := range All {
		if latencies[i] < 0 {
			continue
		}
		if bestLatency < 0 || latencies[i] < bestLatency {
			best, bestLatency = l, latencies[i]
		}
	}

	if bestLatency < 0 {
		p.logger.Warn("no upload line responded, using default", "line", best.String())
		return best
	}
	p.logger.Info("upload line selected", "line", best.String(), "latency", bestLatency)
	return best
}

func (p *Prober) probeOne(ctx context.Context, l Line) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.probeURL(l), nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, &probeStatusError{status: resp.StatusCode}
	}
	return time.Since(start), nil
}

type probeStatusError struct{ status int }

func (e *probeStatusError) Error() string {
	return fmt.Sprintf("probe status %d", e.status)
}
