package engine

import (
	"image"
	"time"

	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/script"
	"github.com/szuyu2308/Tool-Simulator/types"
)

// execWait blocks until the wait condition is met or the timeout expires.
// The condition is re-evaluated on a fixed polling tick against a fresh
// capture. Time spent paused extends the deadline, so a pause never burns
// wait budget.
func (w *Worker) execWait(spec *script.WaitSpec) error {
	timeout := time.Duration(spec.TimeoutSec) * time.Second
	deadline := time.Now().Add(timeout)

	var baseline image.Image
	if spec.Mode == script.WaitScreenChange {
		frame, err := w.captures.Get(w.target, true)
		if err != nil {
			return err
		}
		baseline = frame.Image
	}

	for {
		stopped, paused := w.interrupted()
		if stopped {
			return nil
		}
		deadline = deadline.Add(paused)

		switch spec.Mode {
		case script.WaitTimeout:
			// Pure delay, no condition to satisfy.

		case script.WaitPixelColor:
			met, err := w.pixelMatches(spec.Pixel)
			if err != nil {
				return err
			}
			if met {
				return nil
			}

		case script.WaitScreenChange:
			changed, err := w.screenChanged(spec, baseline)
			if err != nil {
				return err
			}
			if changed {
				return nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			if spec.Mode == script.WaitTimeout {
				return nil
			}
			return core.ErrWaitTimeout.WithMessagef(
				"wait %s not satisfied within %s", spec.Mode, timeout)
		}

		tick := w.cfg.PollInterval
		if remaining < tick {
			tick = remaining
		}
		time.Sleep(tick)
	}
}

// pixelMatches samples the pixel from a fresh frame and compares it to the
// expected color channel by channel.
func (w *Worker) pixelMatches(pixel *script.PixelTarget) (bool, error) {
	sx, sy, err := w.mapper.LocalToScreen(pixel.At.X, pixel.At.Y)
	if err != nil {
		return false, err
	}

	frame, err := w.captures.Get(w.target, true)
	if err != nil {
		return false, err
	}

	b := frame.Image.Bounds()
	if sx < b.Min.X || sx >= b.Max.X || sy < b.Min.Y || sy >= b.Max.Y {
		return false, core.ErrOutOfRange.WithMessagef(
			"pixel (%d,%d) outside captured frame %dx%d", sx, sy, b.Dx(), b.Dy())
	}

	dr, dg, db := channelDiff(frame.Image, sx, sy, pixel.Color)
	return withinTolerance(dr, dg, db, pixel.Tolerance), nil
}

// screenChanged compares the current frame against the baseline captured
// when the wait began. The region defaults to the full frame; divergence
// above 1-threshold counts as a change.
func (w *Worker) screenChanged(spec *script.WaitSpec, baseline image.Image) (bool, error) {
	frame, err := w.captures.Get(w.target, true)
	if err != nil {
		return false, err
	}

	b := frame.Image.Bounds()
	region := types.Rect{X1: b.Min.X, Y1: b.Min.Y, X2: b.Max.X, Y2: b.Max.Y}
	if spec.Region != nil {
		region, err = w.mapper.RegionToScreen(*spec.Region)
		if err != nil {
			return false, err
		}
	}

	divergence := regionDivergence(baseline, frame.Image, region)
	return divergence > 1-spec.Threshold, nil
}
