// Package netmon tracks whether the configured Paperless-ngx server is
// reachable. The flag flips only on probe results; everything else in the
// process reads it through Online without blocking.
package netmon

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/bus"
)

// Monitor probes the server base URL on a ticker and publishes
// network.online / network.offline transitions on the bus. The zero state
// is offline: until a probe succeeds, callers must assume no connectivity.
type Monitor struct {
	baseURL  string
	interval time.Duration
	http     *http.Client
	bus      *bus.Bus
	log      *zap.Logger

	online atomic.Bool

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// New creates a Monitor for the given server base URL. The probe treats any
// HTTP response as reachable; only transport failures count as offline.
func New(baseURL string, interval time.Duration, b *bus.Bus, log *zap.Logger) *Monitor {
	return &Monitor{
		baseURL:  strings.TrimRight(baseURL, "/"),
		interval: interval,
		http:     &http.Client{Timeout: 10 * time.Second},
		bus:      b,
		log:      log,
	}
}

// Online reports the last known connectivity state. It never blocks and
// never touches the network.
func (m *Monitor) Online() bool { return m.online.Load() }

// CheckOnlineStatus probes the server immediately and returns the fresh
// result. The shared flag and the bus are updated the same way the ticker
// path does it.
func (m *Monitor) CheckOnlineStatus(ctx context.Context) bool {
	return m.setOnline(m.probe(ctx))
}

// Start launches the probe loop. The first probe runs immediately so the
// flag is meaningful before the first tick.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	m.stopped = make(chan struct{})
	go m.run(m.stop, m.stopped)
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	stop, stopped := m.stop, m.stopped
	m.stop, m.stopped = nil, nil
	m.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

func (m *Monitor) run(stop, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.setOnline(m.probe(context.Background()))
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.setOnline(m.probe(context.Background()))
		}
	}
}

// probe issues a GET against the API root. Auth failures and other non-2xx
// statuses still prove the server is reachable.
func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/", nil)
	if err != nil {
		return false
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// setOnline stores the new state and publishes a bus event on transitions.
func (m *Monitor) setOnline(online bool) bool {
	prev := m.online.Swap(online)
	if prev == online {
		return online
	}
	if online {
		m.log.Info("server reachable", zap.String("base_url", m.baseURL))
		m.bus.Emit(bus.KindNetworkOnline, nil)
	} else {
		m.log.Warn("server unreachable", zap.String("base_url", m.baseURL))
		m.bus.Emit(bus.KindNetworkOffline, nil)
	}
	return online
}
