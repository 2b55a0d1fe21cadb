package engine

import (
	"sort"
	"sync"

	"github.com/szuyu2308/Tool-Simulator/capture"
	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/devices"
	"github.com/szuyu2308/Tool-Simulator/script"
	"github.com/szuyu2308/Tool-Simulator/utils"
)

// Manager fans one script out across many targets. Each target gets its
// own worker goroutine; the resolution service and the capture cache are
// shared so concurrent workers deduplicate device queries.
type Manager struct {
	registry   *devices.Registry
	resolution *devices.ResolutionService
	captures   *capture.Cache

	mu      sync.Mutex
	workers map[string]*Worker
	reports map[string]core.RunReport
	wg      sync.WaitGroup
	running bool
}

// NewManager wires the shared collaborators from the adb binding and the
// loaded configuration.
func NewManager(adb *devices.Adb, cfg utils.Config) *Manager {
	return &Manager{
		registry:   devices.NewRegistry(adb),
		resolution: devices.NewResolutionService(adb, cfg.QueryTimeout),
		captures:   capture.NewCache(adb, cfg.CaptureTTL),
		workers:    make(map[string]*Worker),
		reports:    make(map[string]core.RunReport),
	}
}

// Registry exposes target discovery for callers that list before running.
func (m *Manager) Registry() *devices.Registry { return m.registry }

// Launch starts the script on every serial and returns once all workers
// are spawned. Workers that cannot be bound to a target fail their slot
// with a configuration report instead of blocking the rest.
func (m *Manager) Launch(s *script.Script, serials []string, cfg Config) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return core.ErrCommandFailed.WithMessagef("a run is already in progress")
	}
	m.running = true
	m.workers = make(map[string]*Worker, len(serials))
	m.reports = make(map[string]core.RunReport, len(serials))
	m.mu.Unlock()

	for _, serial := range serials {
		target, err := m.registry.Find(serial)
		if err != nil {
			utils.Error("target %s: %v", serial, err)
			m.mu.Lock()
			m.reports[serial] = core.RunReport{
				Target:    serial,
				State:     core.StateFailed,
				LastError: err.Error(),
				ErrorKind: core.KindOf(err),
			}
			m.mu.Unlock()
			continue
		}

		w := NewWorker(target, m.resolution, m.captures, cfg)
		m.mu.Lock()
		m.workers[serial] = w
		m.mu.Unlock()

		m.wg.Add(1)
		go func(serial string, w *Worker) {
			defer m.wg.Done()
			report := w.Start(s)
			m.mu.Lock()
			m.reports[serial] = report
			m.mu.Unlock()
		}(serial, w)
	}
	return nil
}

// Wait blocks until every worker reaches a terminal state and returns the
// collected reports ordered by serial.
func (m *Manager) Wait() []core.RunReport {
	m.wg.Wait()

	m.mu.Lock()
	m.running = false
	reports := make([]core.RunReport, 0, len(m.reports))
	for _, r := range m.reports {
		reports = append(reports, r)
	}
	m.mu.Unlock()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Target < reports[j].Target })
	return reports
}

// Run is Launch followed by Wait.
func (m *Manager) Run(s *script.Script, serials []string, cfg Config) ([]core.RunReport, error) {
	if err := m.Launch(s, serials, cfg); err != nil {
		return nil, err
	}
	return m.Wait(), nil
}

// Pause suspends every live worker.
func (m *Manager) Pause() {
	for _, w := range m.snapshot() {
		w.Pause()
	}
}

// Resume releases every paused worker.
func (m *Manager) Resume() {
	for _, w := range m.snapshot() {
		w.Resume()
	}
}

// Stop requests termination on every worker. Safe to call repeatedly.
func (m *Manager) Stop() {
	for _, w := range m.snapshot() {
		w.Stop()
	}
}

// Status returns a point-in-time report per serial: terminal reports for
// finished workers, live snapshots for the rest.
func (m *Manager) Status() []core.RunReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	reports := make([]core.RunReport, 0, len(m.workers)+len(m.reports))
	seen := make(map[string]bool, len(m.reports))
	for serial, r := range m.reports {
		reports = append(reports, r)
		seen[serial] = true
	}
	for serial, w := range m.workers {
		if !seen[serial] {
			reports = append(reports, w.Report())
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Target < reports[j].Target })
	return reports
}

// Running reports whether a run is in flight.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) snapshot() []*Worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	workers := make([]*Worker, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	return workers
}
