package engine

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szuyu2308/Tool-Simulator/capture"
	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/devices"
	"github.com/szuyu2308/Tool-Simulator/script"
	"github.com/szuyu2308/Tool-Simulator/types"
)

// mockTarget records every device call and can fail taps at chosen points.
type mockTarget struct {
	mu     sync.Mutex
	taps   []types.Point
	keys   []string
	combos [][]string
	texts  []string
	failOn map[types.Point]error
}

func newMockTarget() *mockTarget {
	return &mockTarget{failOn: map[types.Point]error{}}
}

func (m *mockTarget) Serial() string { return "emulator-5554" }
func (m *mockTarget) Name() string   { return "mock" }
func (m *mockTarget) Type() string   { return "emulator" }

func (m *mockTarget) Tap(x, y int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := types.Point{X: x, Y: y}
	if err, ok := m.failOn[p]; ok {
		return err
	}
	m.taps = append(m.taps, p)
	return nil
}

func (m *mockTarget) DoubleTap(x, y int) error { return m.Tap(x, y) }
func (m *mockTarget) LongPress(x, y int) error { return m.Tap(x, y) }

func (m *mockTarget) Scroll(x, y, delta int) error { return nil }

func (m *mockTarget) KeyPress(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

func (m *mockTarget) KeyCombo(keys []string, simultaneous bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.combos = append(m.combos, keys)
	return nil
}

func (m *mockTarget) InputText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockTarget) Screenshot() ([]byte, error) {
	return nil, errors.New("not supported by mock")
}

func (m *mockTarget) tapPoints() []types.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Point{}, m.taps...)
}

// frameProvider serves a fixed frame to the capture cache.
type frameProvider struct {
	img image.Image
}

func (frameProvider) Name() string { return "stub" }

func (p frameProvider) Capture(_ devices.Target) (image.Image, error) {
	return p.img, nil
}

func testConfig() Config {
	return Config{
		Resolution:   types.Resolution{Width: 100, Height: 100},
		Surface:      &types.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100},
		PollInterval: 5 * time.Millisecond,
	}
}

func newTestCache(providers ...capture.Provider) *capture.Cache {
	return capture.NewCacheWithProviders(providers, 10*time.Millisecond)
}

func testWorker(t *testing.T, target *mockTarget, frame image.Image) *Worker {
	t.Helper()
	var cache *capture.Cache
	if frame != nil {
		cache = newTestCache(frameProvider{frame})
	}
	return NewWorker(target, nil, cache, testConfig())
}

func mustScript(t *testing.T, maxIterations int, cmds ...*script.Command) *script.Script {
	t.Helper()
	s, err := script.NewScript(cmds, nil, maxIterations, nil)
	require.NoError(t, err)
	return s
}

func click(name string, x, y int) *script.Command {
	c := script.New(name, script.KindClick)
	c.Click = &script.ClickSpec{Button: script.ButtonLeft, X: x, Y: y}
	return c
}

func TestWorkerRunsLinearScript(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	report := w.Start(mustScript(t, 0,
		click("a", 10, 10),
		click("b", 20, 20),
		click("c", 30, 30),
	))

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, 3, report.Iterations)
	assert.Empty(t, report.LastError)
	assert.Equal(t, []types.Point{{X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}}, target.tapPoints())
}

func TestWorkerSkipsDisabledCommands(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	disabled := click("skip-me", 50, 50)
	disabled.Enabled = false

	report := w.Start(mustScript(t, 0, click("a", 10, 10), disabled, click("b", 20, 20)))

	assert.Equal(t, core.StateCompleted, report.State)
	// the skipped command still consumes an iteration
	assert.Equal(t, 3, report.Iterations)
	assert.Equal(t, []types.Point{{X: 10, Y: 10}, {X: 20, Y: 20}}, target.tapPoints())
}

func TestWorkerRepeatCountsInnerIterations(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	loop := script.New("loop", script.KindRepeat)
	loop.Repeat = &script.RepeatSpec{Count: 3, Inner: []*script.Command{click("inner", 5, 5)}}

	report := w.Start(mustScript(t, 0, loop))

	assert.Equal(t, core.StateCompleted, report.State)
	// the Repeat envelope plus three inner passes
	assert.Equal(t, 4, report.Iterations)
	assert.Len(t, target.tapPoints(), 3)
}

func TestWorkerUnboundedRepeatHitsIterationCap(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	loop := script.New("loop", script.KindRepeat)
	loop.Repeat = &script.RepeatSpec{Count: 0, Inner: []*script.Command{click("inner", 5, 5)}}

	report := w.Start(mustScript(t, 20, loop))

	assert.Equal(t, core.StateFailed, report.State)
	assert.Equal(t, 20, report.Iterations)
	assert.Equal(t, core.KindExecution, report.ErrorKind)
	assert.Contains(t, report.LastError, "iteration limit")
	// one iteration for the envelope, nineteen inner passes before the cap
	assert.Len(t, target.tapPoints(), 19)
}

func TestWorkerRepeatUntilStopsEarly(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	loop := script.New("loop", script.KindRepeat)
	loop.Repeat = &script.RepeatSpec{
		Count: 0,
		Inner: []*script.Command{click("inner", 5, 5)},
		Until: "done",
	}

	s, err := script.NewScript([]*script.Command{loop}, map[string]interface{}{"done": true}, 0, nil)
	require.NoError(t, err)

	report := w.Start(s)

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, 2, report.Iterations)
	assert.Len(t, target.tapPoints(), 1)
}

func TestWorkerFallsBackToSurfaceGeometry(t *testing.T) {
	target := newMockTarget()
	res := devices.NewResolutionService(devices.NewAdb("/nonexistent/adb"), 50*time.Millisecond)
	cfg := Config{
		Surface:      &types.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100},
		PollInterval: 5 * time.Millisecond,
	}
	w := NewWorker(target, res, nil, cfg)

	report := w.Start(mustScript(t, 0, click("a", 30, 40)))

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, []types.Point{{X: 30, Y: 40}}, target.tapPoints())

	sx, sy := w.mapper.Scale()
	assert.Equal(t, 1.0, sx)
	assert.Equal(t, 1.0, sy)
}

func TestWorkerGotoLoopHitsIterationCap(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	jump := script.New("again", script.KindGoto)
	jump.Goto = &script.GotoSpec{Target: "again"}

	report := w.Start(mustScript(t, 25, jump))

	assert.Equal(t, core.StateFailed, report.State)
	assert.Equal(t, 25, report.Iterations)
	assert.Equal(t, core.KindExecution, report.ErrorKind)
	assert.Contains(t, report.LastError, "iteration limit")
}

func TestWorkerOnFailSkip(t *testing.T) {
	target := newMockTarget()
	target.failOn[types.Point{X: 10, Y: 10}] = errors.New("input rejected")
	w := testWorker(t, target, nil)

	failing := click("broken", 10, 10) // OnFail defaults to Skip

	report := w.Start(mustScript(t, 0, failing, click("after", 20, 20)))

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, []types.Point{{X: 20, Y: 20}}, target.tapPoints())
}

func TestWorkerOnFailStop(t *testing.T) {
	target := newMockTarget()
	target.failOn[types.Point{X: 10, Y: 10}] = errors.New("input rejected")
	w := testWorker(t, target, nil)

	failing := click("broken", 10, 10)
	failing.OnFail = script.OnFailStop

	report := w.Start(mustScript(t, 0, failing, click("after", 20, 20)))

	assert.Equal(t, core.StateFailed, report.State)
	assert.Equal(t, "broken", report.LastCommand)
	assert.Empty(t, target.tapPoints())
}

func TestWorkerOnFailGotoLabel(t *testing.T) {
	target := newMockTarget()
	target.failOn[types.Point{X: 10, Y: 10}] = errors.New("input rejected")
	w := testWorker(t, target, nil)

	failing := click("broken", 10, 10)
	failing.OnFail = script.OnFailGotoLabel
	failing.OnFailLabel = "recovery"

	skipped := click("skipped", 20, 20)
	recovery := click("recovery", 30, 30)

	report := w.Start(mustScript(t, 0, failing, skipped, recovery))

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, []types.Point{{X: 30, Y: 30}}, target.tapPoints())
}

func TestWorkerConditionBranchLabel(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	branch := script.New("branch", script.KindCondition)
	branch.Condition = &script.ConditionSpec{Expr: "ready == true", ThenLabel: "end"}

	middle := click("middle", 20, 20)
	end := click("end", 30, 30)

	s, err := script.NewScript(
		[]*script.Command{branch, middle, end},
		map[string]interface{}{"ready": true}, 0, nil)
	require.NoError(t, err)

	report := w.Start(s)

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, []types.Point{{X: 30, Y: 30}}, target.tapPoints())
}

func TestWorkerConditionInlineElse(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	branch := script.New("branch", script.KindCondition)
	branch.Condition = &script.ConditionSpec{
		Expr: "ready == true",
		Then: []*script.Command{click("then-tap", 10, 10)},
		Else: []*script.Command{click("else-tap", 20, 20)},
	}

	s, err := script.NewScript([]*script.Command{branch},
		map[string]interface{}{"ready": false}, 0, nil)
	require.NoError(t, err)

	report := w.Start(s)

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, []types.Point{{X: 20, Y: 20}}, target.tapPoints())
}

func TestWorkerKeyPressRepeats(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	key := script.New("spam-enter", script.KindKeyPress)
	key.KeyPress = &script.KeyPressSpec{Key: "enter", Repeat: 3}

	report := w.Start(mustScript(t, 0, key))

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, []string{"enter", "enter", "enter"}, target.keys)
}

func TestWorkerTextPaste(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	text := script.New("type", script.KindText)
	text.Text = &script.TextSpec{Content: "hello", Mode: script.TextPaste, Focus: &types.Point{X: 40, Y: 40}}

	report := w.Start(mustScript(t, 0, text))

	assert.Equal(t, core.StateCompleted, report.State)
	assert.Equal(t, []types.Point{{X: 40, Y: 40}}, target.tapPoints())
	assert.Equal(t, []string{"hello"}, target.texts)
}

func TestWorkerClickOutOfRangeIsRecoverable(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	// 100 is outside the half-open logical bounds [0,100)
	outside := click("outside", 100, 50)
	outside.OnFail = script.OnFailStop

	report := w.Start(mustScript(t, 0, outside))

	assert.Equal(t, core.StateFailed, report.State)
	assert.Equal(t, core.KindOutOfRange, report.ErrorKind)
}

func TestWorkerStopDuringWait(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	wait := script.New("pause-here", script.KindWait)
	wait.Wait = &script.WaitSpec{Mode: script.WaitTimeout, TimeoutSec: 30}

	done := make(chan core.RunReport, 1)
	go func() {
		done <- w.Start(mustScript(t, 0, wait, click("never", 10, 10)))
	}()

	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop() // idempotent

	select {
	case report := <-done:
		assert.Equal(t, core.StateStopped, report.State)
		assert.Empty(t, target.tapPoints())
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerPauseAndResume(t *testing.T) {
	target := newMockTarget()
	w := testWorker(t, target, nil)

	wait := script.New("short-wait", script.KindWait)
	wait.Wait = &script.WaitSpec{Mode: script.WaitTimeout, TimeoutSec: 1}

	done := make(chan core.RunReport, 1)
	go func() {
		done <- w.Start(mustScript(t, 0, wait))
	}()

	time.Sleep(20 * time.Millisecond)
	w.Pause()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, core.StatePaused, w.State())
	w.Resume()

	select {
	case report := <-done:
		assert.Equal(t, core.StateCompleted, report.State)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish")
	}
}
