package engine

import (
	"math/rand"
	"time"

	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/script"
	"github.com/szuyu2308/Tool-Simulator/utils"
)

// dispatch executes a single command and returns the id to jump to, if the
// command redirects control flow. A panic inside any executor is converted
// into an execution error that halts the run.
func (w *Worker) dispatch(cmd *script.Command) (jump string, err error) {
	defer recoverDispatch(cmd, &err)

	switch cmd.Kind {
	case script.KindClick:
		err = w.execClick(cmd.Click)
	case script.KindCropImage:
		err = w.execCropImage(cmd)
	case script.KindKeyPress:
		err = w.execKeyPress(cmd.KeyPress)
	case script.KindHotKey:
		err = w.target.KeyCombo(cmd.HotKey.Keys, cmd.HotKey.Order == script.OrderSimultaneous)
	case script.KindText:
		err = w.execText(cmd.Text)
	case script.KindWait:
		err = w.execWait(cmd.Wait)
	case script.KindRepeat:
		jump, err = w.execRepeat(cmd)
	case script.KindGoto:
		jump, err = w.execGoto(cmd)
	case script.KindCondition:
		jump, err = w.execCondition(cmd)
	default:
		err = core.ErrInvalidField.WithMessagef("command %q: unknown type %q", cmd.Name, cmd.Kind)
	}

	if err != nil && !isStructured(err) {
		err = core.ErrCommandFailed.WithMessagef("command %q failed", cmd.Name).WithCause(err)
	}
	return jump, err
}

func isStructured(err error) bool {
	_, ok := err.(*core.Error)
	return ok
}

func (w *Worker) execClick(spec *script.ClickSpec) error {
	sx, sy, err := w.mapper.LocalToScreen(spec.X, spec.Y)
	if err != nil {
		return err
	}

	switch spec.Button {
	case script.ButtonLeft:
		err = w.target.Tap(sx, sy)
	case script.ButtonDouble:
		err = w.target.DoubleTap(sx, sy)
	case script.ButtonRight:
		err = w.target.LongPress(sx, sy)
	case script.ButtonWheelUp:
		err = w.target.Scroll(sx, sy, spec.WheelDelta)
	case script.ButtonWheelDown:
		err = w.target.Scroll(sx, sy, -spec.WheelDelta)
	}
	if err != nil {
		return err
	}

	w.sleep(randDuration(spec.DelayMinMs, spec.DelayMaxMs))
	return nil
}

// execCropImage scans the command's region for its target color and, on a
// hit, publishes the result under the command's output variable in the
// worker's logical coordinate space.
func (w *Worker) execCropImage(cmd *script.Command) error {
	spec := cmd.CropImage

	region, err := w.mapper.RegionToScreen(spec.Region)
	if err != nil {
		return err
	}

	frame, err := w.captures.Get(w.target, false)
	if err != nil {
		return err
	}

	hit, found := scanRegion(frame.Image, region, spec.Color, spec.Tolerance, spec.Scan)
	if !found {
		return core.ErrCommandFailed.WithMessagef(
			"command %q: color %s not found in region (tolerance %d, scan %s)",
			cmd.Name, spec.Color, spec.Tolerance, spec.Scan)
	}

	lx, ly := w.mapper.ScreenToLocal(hit.X, hit.Y)
	outputs := map[string]interface{}{
		spec.OutputVar: map[string]interface{}{
			"x":          lx,
			"y":          ly,
			"confidence": hit.Confidence,
			"found":      true,
		},
	}
	w.mergeOutputs(cmd, outputs)

	utils.Verbose("worker %s: %q matched at (%d,%d) confidence %.3f",
		w.target.Serial(), cmd.Name, lx, ly, hit.Confidence)
	return nil
}

func (w *Worker) execKeyPress(spec *script.KeyPressSpec) error {
	count := spec.Repeat
	if count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		if i > 0 && spec.DelayMs > 0 {
			w.sleep(time.Duration(spec.DelayMs) * time.Millisecond)
		}
		if err := w.target.KeyPress(spec.Key); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) execText(spec *script.TextSpec) error {
	if spec.Focus != nil {
		sx, sy, err := w.mapper.LocalToScreen(spec.Focus.X, spec.Focus.Y)
		if err != nil {
			return err
		}
		if err := w.target.Tap(sx, sy); err != nil {
			return err
		}
	}

	if spec.Mode == script.TextPaste {
		return w.target.InputText(spec.Content)
	}

	// Humanize: one character at a time with a randomized per-character
	// delay derived from the cps window.
	for _, r := range spec.Content {
		if err := w.target.InputText(string(r)); err != nil {
			return err
		}
		w.sleep(charDelay(spec.SpeedMinCps, spec.SpeedMaxCps))
	}
	return nil
}

// execRepeat runs the inner sequence up to Count passes, stopping early
// when the until expression turns true. Count 0 means unbounded: the loop
// runs until the until-condition holds or the script-wide iteration cap
// errors out of runList. Inner commands count against that cap; a nested
// Goto unwinds out of the loop.
func (w *Worker) execRepeat(cmd *script.Command) (string, error) {
	spec := cmd.Repeat
	passes := spec.Count
	if passes == 0 {
		passes = w.script.MaxIterations
	}
	for pass := 0; pass < passes; pass++ {
		stopped, _ := w.interrupted()
		if stopped {
			return "", nil
		}

		jump, err := w.runList(spec.Inner)
		if err != nil || jump != "" {
			return jump, err
		}

		if spec.Until != "" {
			done, err := cmd.EvalUntil(w.variables)
			if err != nil {
				return "", err
			}
			if done {
				break
			}
		}
	}
	return "", nil
}

func (w *Worker) execGoto(cmd *script.Command) (string, error) {
	spec := cmd.Goto
	if spec.Guard != "" {
		ok, err := cmd.EvalGuard(w.variables)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", nil
		}
	}
	id, ok := w.script.IDForLabel(spec.Target)
	if !ok {
		return "", core.ErrUnresolvedLabel.WithMessagef("goto target %q", spec.Target)
	}
	return id, nil
}

// execCondition evaluates the branch expression and follows the matching
// arm. A branch label redirects the top-level cursor and wins over the
// inline list when both are present.
func (w *Worker) execCondition(cmd *script.Command) (string, error) {
	spec := cmd.Condition
	truthy, err := cmd.EvalCondition(w.variables)
	if err != nil {
		return "", err
	}

	label, inline := spec.ElseLabel, spec.Else
	if truthy {
		label, inline = spec.ThenLabel, spec.Then
	}

	if label != "" {
		id, ok := w.script.IDForLabel(label)
		if !ok {
			return "", core.ErrUnresolvedLabel.WithMessagef("condition branch label %q", label)
		}
		return id, nil
	}
	return w.runList(inline)
}

// runList executes a nested command list in order. OnFail Skip advances to
// the next inner command; GotoLabel unwinds as a jump for the top-level
// cursor; Stop and fatal errors propagate.
func (w *Worker) runList(inner []*script.Command) (string, error) {
	for _, cmd := range inner {
		stopped, _ := w.interrupted()
		if stopped {
			return "", nil
		}
		if w.Iterations() >= w.script.MaxIterations {
			return "", core.ErrIterationLimit.WithMessagef(
				"iteration limit %d reached at command %q", w.script.MaxIterations, cmd.Name)
		}
		w.mu.Lock()
		w.iterations++
		w.lastCmd = cmd.Name
		w.mu.Unlock()

		if !cmd.Enabled {
			continue
		}

		jump, err := w.dispatch(cmd)
		if err != nil {
			if core.IsFatal(err) || core.IsIterationLimit(err) || isUnexpected(err) {
				return "", err
			}
			switch cmd.OnFail {
			case script.OnFailSkip:
				continue
			case script.OnFailGotoLabel:
				id, ok := w.script.IDForLabel(cmd.OnFailLabel)
				if !ok {
					return "", core.ErrUnresolvedLabel.WithMessagef(
						"command %q: onFail label %q", cmd.Name, cmd.OnFailLabel)
				}
				return id, nil
			default:
				return "", err
			}
		}
		if jump != "" {
			return jump, nil
		}
	}
	return "", nil
}

// mergeOutputs copies command outputs into the run variables. A non-empty
// VariablesOut list acts as a whitelist.
func (w *Worker) mergeOutputs(cmd *script.Command, outputs map[string]interface{}) {
	if len(cmd.VariablesOut) > 0 {
		allowed := make(map[string]bool, len(cmd.VariablesOut))
		for _, name := range cmd.VariablesOut {
			allowed[name] = true
		}
		for k := range outputs {
			if !allowed[k] {
				delete(outputs, k)
			}
		}
	}
	for k, v := range outputs {
		w.variables[k] = v
	}
}

// sleep waits out a delay while staying responsive to Stop.
func (w *Worker) sleep(d time.Duration) {
	deadline := time.Now().Add(d)
	for {
		stopped, paused := w.interrupted()
		if stopped {
			return
		}
		deadline = deadline.Add(paused)
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if remaining > DefaultPollInterval {
			remaining = DefaultPollInterval
		}
		time.Sleep(remaining)
	}
}

func randDuration(minMs, maxMs int) time.Duration {
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	return time.Duration(minMs+rand.Intn(maxMs-minMs+1)) * time.Millisecond
}

// charDelay converts a characters-per-second window into a randomized
// per-character pause.
func charDelay(minCps, maxCps int) time.Duration {
	if minCps <= 0 {
		minCps = 5
	}
	if maxCps < minCps {
		maxCps = minCps
	}
	cps := minCps
	if maxCps > minCps {
		cps = minCps + rand.Intn(maxCps-minCps+1)
	}
	return time.Second / time.Duration(cps)
}
