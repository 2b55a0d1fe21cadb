package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/szuyu2308/Tool-Simulator/capture"
	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/devices"
	"github.com/szuyu2308/Tool-Simulator/script"
	"github.com/szuyu2308/Tool-Simulator/types"
	"github.com/szuyu2308/Tool-Simulator/utils"
)

// DefaultPollInterval is the Wait polling tick.
const DefaultPollInterval = 100 * time.Millisecond

// Config carries per-worker construction options.
type Config struct {
	// Surface is the target's physical surface: origin in the addressable
	// space plus observed size. Zero means the surface spans the resolved
	// resolution at origin (0,0).
	Surface *types.Rect

	// Resolution overrides the resolution service lookup when set.
	Resolution types.Resolution

	// PollInterval overrides the Wait polling tick. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration
}

// Worker executes one script against one bound target. A worker runs on
// its own goroutine; Pause, Resume and Stop are safe from any goroutine.
type Worker struct {
	target     devices.Target
	resolution *devices.ResolutionService
	captures   *capture.Cache
	mapper     *Mapper
	cfg        Config

	mu      sync.Mutex
	cond    *sync.Cond
	state   core.WorkerState
	paused  bool
	stopped bool

	// Run-scoped fields, reset by Start.
	script     *script.Script
	variables  map[string]interface{}
	iterations int
	cursor     string
	lastCmd    string
	lastErr    error
	startedAt  time.Time
}

// NewWorker binds a worker to its target and shared collaborators. The
// resolution service and capture cache are shared across all workers and
// must not be constructed per worker.
func NewWorker(target devices.Target, resolution *devices.ResolutionService, captures *capture.Cache, cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	w := &Worker{
		target:     target,
		resolution: resolution,
		captures:   captures,
		cfg:        cfg,
		state:      core.StateIdle,
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Target returns the bound target.
func (w *Worker) Target() devices.Target { return w.target }

// State returns the current lifecycle state.
func (w *Worker) State() core.WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Iterations returns the number of commands dispatched so far.
func (w *Worker) Iterations() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.iterations
}

// Pause suspends execution at the next dispatch boundary or Wait tick.
// In-flight state is preserved.
func (w *Worker) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == core.StateRunning {
		w.paused = true
		w.state = core.StatePaused
		utils.Verbose("worker %s: paused", w.target.Serial())
	}
}

// Resume releases a paused worker.
func (w *Worker) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paused {
		w.paused = false
		if w.state == core.StatePaused {
			w.state = core.StateRunning
		}
		w.cond.Broadcast()
		utils.Verbose("worker %s: resumed", w.target.Serial())
	}
}

// Stop requests termination. Idempotent, callable from any state; a
// dispatched action finishes first, Stop takes effect at the next
// boundary.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.paused = false
	w.cond.Broadcast()
}

// interrupted reports whether Stop was requested, blocking first while the
// worker is paused. It returns the time spent paused so deadline-bearing
// callers can freeze their clocks across the pause.
func (w *Worker) interrupted() (bool, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var pausedFor time.Duration
	for w.paused && !w.stopped {
		pauseStart := time.Now()
		w.cond.Wait()
		pausedFor += time.Since(pauseStart)
	}
	return w.stopped, pausedFor
}

// Start runs the script to a terminal state and returns the report.
// Run state from any previous run is discarded.
func (w *Worker) Start(s *script.Script) core.RunReport {
	w.mu.Lock()
	w.script = s
	w.variables = make(map[string]interface{}, len(s.VariablesGlobal))
	for k, v := range s.VariablesGlobal {
		w.variables[k] = v
	}
	w.iterations = 0
	w.paused = false
	w.stopped = false
	w.cursor = s.FirstID()
	w.lastCmd = ""
	w.lastErr = nil
	w.startedAt = time.Now()
	w.state = core.StateRunning
	w.mu.Unlock()

	if err := w.bindGeometry(); err != nil {
		return w.finish(core.StateFailed, err)
	}

	utils.WithFields(map[string]interface{}{
		"target":   w.target.Serial(),
		"commands": s.Len(),
	}).Info("run started")

	state, err := w.runLoop()
	return w.finish(state, err)
}

// bindGeometry resolves the worker's logical resolution and physical
// surface and prepares the coordinate mapper. An unresolvable resolution
// is not fatal: the worker falls back to the observed surface size with
// unit scale.
func (w *Worker) bindGeometry() error {
	logical := w.cfg.Resolution
	if logical.Unresolved() {
		res, err := w.resolution.QueryResolution(w.target.Serial())
		if err != nil {
			utils.Warn("worker %s: resolution unresolved (%v), falling back to surface size", w.target.Serial(), err)
		} else {
			logical = res
		}
	}

	var surface types.Size
	origin := types.Point{}
	if w.cfg.Surface != nil {
		origin = types.Point{X: w.cfg.Surface.X1, Y: w.cfg.Surface.Y1}
		surface = types.Size{Width: w.cfg.Surface.Width(), Height: w.cfg.Surface.Height()}
	} else if !logical.Unresolved() {
		surface = types.Size{Width: logical.Width, Height: logical.Height}
	} else {
		// Neither resolution nor surface known: observe the surface from a
		// capture.
		frame, err := w.captures.Get(w.target, true)
		if err != nil {
			return err
		}
		b := frame.Image.Bounds()
		surface = types.Size{Width: b.Dx(), Height: b.Dy()}
	}

	if logical.Unresolved() {
		// Fallback: logical space equals the observed surface, scale (1,1).
		logical = types.Resolution{Width: surface.Width, Height: surface.Height}
	}

	w.mapper = NewMapper(logical, surface, origin)
	sx, sy := w.mapper.Scale()
	utils.Verbose("worker %s: logical %dx%d surface %dx%d scale (%.3f,%.3f)",
		w.target.Serial(), logical.Width, logical.Height, surface.Width, surface.Height, sx, sy)
	return nil
}

// runLoop drives the cursor over the script until a terminal condition.
func (w *Worker) runLoop() (core.WorkerState, error) {
	s := w.script
	for w.cursor != "" {
		stopped, _ := w.interrupted()
		if stopped {
			return core.StateStopped, nil
		}

		if w.iterations >= s.MaxIterations {
			return core.StateFailed, core.ErrIterationLimit.WithMessagef(
				"iteration limit %d reached at command %q", s.MaxIterations, w.lastCmd)
		}

		cmd, ok := s.CommandByID(w.cursor)
		if !ok {
			return core.StateFailed, core.ErrMissingCommand.WithMessagef("cursor id %s", w.cursor)
		}

		w.mu.Lock()
		w.iterations++
		w.lastCmd = cmd.Name
		iteration := w.iterations
		w.mu.Unlock()

		// A disabled command still consumes an iteration; only the dispatch
		// is skipped.
		if !cmd.Enabled {
			w.cursor = s.NextAfter(cmd.ID)
			continue
		}

		utils.WithFields(map[string]interface{}{
			"target":    w.target.Serial(),
			"command":   cmd.Name,
			"id":        cmd.ID,
			"kind":      cmd.Kind,
			"iteration": iteration,
		}).Debug("dispatch")

		jump, err := w.dispatch(cmd)

		if err != nil {
			next, failErr := w.applyOnFail(cmd, err)
			if failErr != nil {
				return core.StateFailed, failErr
			}
			w.cursor = next
			continue
		}

		if jump != "" {
			w.cursor = jump
		} else {
			w.cursor = s.NextAfter(cmd.ID)
		}
	}

	return core.StateCompleted, nil
}

// applyOnFail resolves a command failure through its OnFail policy and
// returns the next cursor position. Fatal kinds and unexpected errors halt
// regardless of the policy.
func (w *Worker) applyOnFail(cmd *script.Command, err error) (string, error) {
	utils.WithFields(map[string]interface{}{
		"target":    w.target.Serial(),
		"command":   cmd.Name,
		"id":        cmd.ID,
		"iteration": w.Iterations(),
		"kind":      core.KindOf(err),
	}).Warn(err.Error())

	if core.IsFatal(err) || core.IsIterationLimit(err) || isUnexpected(err) {
		return "", err
	}

	switch cmd.OnFail {
	case script.OnFailSkip:
		return w.script.NextAfter(cmd.ID), nil

	case script.OnFailStop:
		return "", err

	case script.OnFailGotoLabel:
		id, ok := w.script.IDForLabel(cmd.OnFailLabel)
		if !ok {
			// Unreachable after construction-time validation, but a label
			// miss here must never be skipped over silently.
			return "", core.ErrUnresolvedLabel.WithMessagef("command %q: onFail label %q", cmd.Name, cmd.OnFailLabel)
		}
		return id, nil
	}
	return "", err
}

// finish records the terminal state, runs the script's error handler for
// unrecovered failures, and builds the run report.
func (w *Worker) finish(state core.WorkerState, err error) core.RunReport {
	if state == core.StateFailed && w.script != nil && w.script.OnErrorHandler != nil {
		if _, handlerErr := w.dispatch(w.script.OnErrorHandler); handlerErr != nil {
			utils.Warn("worker %s: error handler failed: %v", w.target.Serial(), handlerErr)
		}
	}

	w.mu.Lock()
	w.state = state
	w.lastErr = err
	elapsed := time.Since(w.startedAt)
	report := core.RunReport{
		Target:      w.target.Serial(),
		State:       state,
		Iterations:  w.iterations,
		Elapsed:     elapsed,
		LastCommand: w.lastCmd,
	}
	w.mu.Unlock()

	if err != nil {
		report.LastError = err.Error()
		report.ErrorKind = core.KindOf(err)
	}

	switch state {
	case core.StateCompleted:
		utils.Info("worker %s: completed, %d iterations in %s", w.target.Serial(), report.Iterations, elapsed.Round(time.Millisecond))
	case core.StateStopped:
		utils.Info("worker %s: stopped after %d iterations", w.target.Serial(), report.Iterations)
	case core.StateFailed:
		utils.Error("worker %s: failed at %q after %d iterations: %v", w.target.Serial(), report.LastCommand, report.Iterations, err)
	}
	return report
}

// Report returns a snapshot of the current run for status queries.
func (w *Worker) Report() core.RunReport {
	w.mu.Lock()
	defer w.mu.Unlock()

	report := core.RunReport{
		Target:      w.target.Serial(),
		State:       w.state,
		Iterations:  w.iterations,
		LastCommand: w.lastCmd,
	}
	if !w.startedAt.IsZero() {
		report.Elapsed = time.Since(w.startedAt)
	}
	if w.lastErr != nil {
		report.LastError = w.lastErr.Error()
		report.ErrorKind = core.KindOf(w.lastErr)
	}
	return report
}

// errUnexpected marks recovered panics: they carry Stop semantics no
// matter what the command's OnFail says.
var errUnexpected = &core.Error{
	Kind:    core.KindExecution,
	Code:    "unexpected",
	Message: "unexpected error during dispatch",
}

func isUnexpected(err error) bool {
	e, ok := err.(*core.Error)
	return ok && e.Code == errUnexpected.Code
}

// recoverDispatch converts a panic inside command dispatch into a logged
// execution error instead of tearing down the process.
func recoverDispatch(cmd *script.Command, errp *error) {
	if r := recover(); r != nil {
		*errp = errUnexpected.WithMessagef("command %q: %v", cmd.Name, r).WithCause(fmt.Errorf("%v", r))
	}
}
