package agent

import (
	"context"
	"sync"
)

// Manager owns one Runner per submission id and the context background
// runs execute under.
type Manager struct {
	pipeline *Pipeline

	mu      sync.Mutex
	runners map[string]*Runner

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(p *Pipeline) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		pipeline: p,
		runners:  make(map[string]*Runner),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *Manager) Pipeline() *Pipeline { return m.pipeline }

// Runner returns the runner bound to id, creating it on first use.
func (m *Manager) Runner(id string) *Runner {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runners[id]
	if !ok {
		r = NewRunner(id, m.pipeline)
		m.runners[id] = r
	}
	return r
}

// Start begins a background run for id. It reports false when a run for id
// is already in flight.
func (m *Manager) Start(id string) bool {
	done, ok := m.Runner(id).Start(m.ctx)
	if !ok {
		return false
	}
	m.wg.Add(1)
	go func() {
		<-done
		m.wg.Done()
	}()
	return true
}

// State returns the state of the runner for id, if one was ever created.
func (m *Manager) State(id string) (State, bool) {
	m.mu.Lock()
	r, ok := m.runners[id]
	m.mu.Unlock()
	if !ok {
		return State{}, false
	}
	return r.State(), true
}

// Running reports whether any run is in flight for id.
func (m *Manager) Running(id string) bool {
	st, ok := m.State(id)
	return ok && st.Running
}

// Shutdown cancels in-flight runs at their next suspension point and waits
// for them to record their outcome, or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	waited := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
