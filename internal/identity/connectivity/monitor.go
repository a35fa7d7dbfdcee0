package connectivity

import (
	"log"
	"net"
	"sync"
	"time"
)

// Checker probes whether the network path to the identity provider is up.
type Checker func() bool

// DialChecker probes connectivity by opening a TCP connection to addr.
func DialChecker(addr string, timeout time.Duration) Checker {
	return func() bool {
		conn, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

// Monitor tracks online/offline transitions. It is purely an input signal:
// it never touches the cache, registry, or profile state.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int

	check    Checker
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMonitor starts in the online state; check may be nil when transitions
// are driven externally (e.g. in tests or from transport error callbacks).
func NewMonitor(check Checker, interval time.Duration) *Monitor {
	return &Monitor{
		online:   true,
		subs:     make(map[int]func(bool)),
		check:    check,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the periodic probe loop. No-op without a checker.
func (m *Monitor) Start() {
	if m.check == nil || m.interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.SetOnline(m.check())
			case <-m.stop:
				return
			}
		}
	}()
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records the state and notifies subscribers on transitions only.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	handlers := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()

	log.Printf("[connectivity] online=%v", online)
	for _, fn := range handlers {
		fn(online)
	}
}

// Subscribe registers a transition handler and returns its unsubscribe func.
func (m *Monitor) Subscribe(fn func(bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close stops the probe loop.
func (m *Monitor) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}
