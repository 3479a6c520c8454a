package connectivity

import (
	"context"
	"net/http"
	"time"
)

// Monitor periodically probes the BFF base URL and reports reachability
// transitions to a sink (the orchestrator). Any HTTP response counts as
// reachable; only transport failures mean offline. This is the agent's
// stand-in for a platform online/offline signal.
type Monitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client
	sink     func(online bool)
}

func NewMonitor(probeURL string, interval time.Duration, sink func(online bool)) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		probeURL: probeURL,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		sink:     sink,
	}
}

// Run probes once immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.sink(m.Probe(ctx))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sink(m.Probe(ctx))
		}
	}
}

// Probe performs a single bounded reachability check.
func (m *Monitor) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
