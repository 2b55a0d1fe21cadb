package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/types"
)

func clickCmd(name string, x, y int) *Command {
	c := New(name, KindClick)
	c.Click = &ClickSpec{Button: ButtonLeft, X: x, Y: y}
	return c
}

func gotoCmd(name, target string) *Command {
	c := New(name, KindGoto)
	c.Goto = &GotoSpec{Target: target}
	return c
}

func TestNewScriptBuildsIndexes(t *testing.T) {
	a := clickCmd("first", 10, 10)
	b := clickCmd("second", 20, 20)
	c := clickCmd("third", 30, 30)

	s, err := NewScript([]*Command{a, b, c}, nil, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxIterations, s.MaxIterations)
	assert.Equal(t, a.ID, s.FirstID())
	assert.Equal(t, b.ID, s.NextAfter(a.ID))
	assert.Equal(t, c.ID, s.NextAfter(b.ID))
	assert.Equal(t, "", s.NextAfter(c.ID))

	id, ok := s.IDForLabel("second")
	require.True(t, ok)
	assert.Equal(t, b.ID, id)

	got, ok := s.CommandByID(c.ID)
	require.True(t, ok)
	assert.Equal(t, "third", got.Name)
}

func TestNewScriptRejectsDuplicateNames(t *testing.T) {
	a := clickCmd("tap", 10, 10)
	b := clickCmd("tap", 20, 20)

	_, err := NewScript([]*Command{a, b}, nil, 0, nil)
	require.Error(t, err)

	var coreErr *core.Error
	require.True(t, errors.As(err, &coreErr))
	assert.Equal(t, core.KindConfiguration, coreErr.Kind)
}

func TestNewScriptRejectsDuplicateNestedNames(t *testing.T) {
	inner := clickCmd("tap", 5, 5)
	loop := New("loop", KindRepeat)
	loop.Repeat = &RepeatSpec{Count: 2, Inner: []*Command{inner}}
	top := clickCmd("tap", 10, 10)

	_, err := NewScript([]*Command{loop, top}, nil, 0, nil)
	assert.Error(t, err)
}

func TestNewScriptRejectsUnresolvedGotoTarget(t *testing.T) {
	a := clickCmd("start", 1, 1)
	g := gotoCmd("jump", "nowhere")

	_, err := NewScript([]*Command{a, g}, nil, 0, nil)
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
}

func TestNewScriptRejectsGotoIntoNestedCommand(t *testing.T) {
	// nested names are unique but never jump targets
	inner := clickCmd("inner-tap", 5, 5)
	loop := New("loop", KindRepeat)
	loop.Repeat = &RepeatSpec{Count: 1, Inner: []*Command{inner}}
	g := gotoCmd("jump", "inner-tap")

	_, err := NewScript([]*Command{loop, g}, nil, 0, nil)
	assert.Error(t, err)
}

func TestNewScriptRejectsUnresolvedOnFailLabel(t *testing.T) {
	a := clickCmd("start", 1, 1)
	a.OnFail = OnFailGotoLabel
	a.OnFailLabel = "missing"

	_, err := NewScript([]*Command{a}, nil, 0, nil)
	assert.Error(t, err)
}

func TestNewScriptChecksErrorHandlerReferences(t *testing.T) {
	handler := clickCmd("cleanup", 5, 5)
	handler.OnFail = OnFailGotoLabel
	handler.OnFailLabel = "nowhere"

	_, err := NewScript([]*Command{clickCmd("start", 1, 1)}, nil, 0, handler)
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
	assert.Contains(t, err.Error(), "nowhere")

	handler.OnFailLabel = "start"
	_, err = NewScript([]*Command{clickCmd("start", 1, 1)}, nil, 0, handler)
	assert.NoError(t, err)
}

func TestNewScriptRejectsBadExpression(t *testing.T) {
	c := New("branch", KindCondition)
	c.Condition = &ConditionSpec{Expr: "count >", ThenLabel: "branch"}

	_, err := NewScript([]*Command{c}, nil, 0, nil)
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
}

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Command
		wantErr bool
	}{
		{
			name: "valid click",
			build: func() *Command {
				return clickCmd("ok", 0, 0)
			},
		},
		{
			name: "negative click coordinates",
			build: func() *Command {
				return clickCmd("bad", -1, 5)
			},
			wantErr: true,
		},
		{
			name: "inverted humanize delay range",
			build: func() *Command {
				c := clickCmd("bad", 1, 1)
				c.Click.DelayMinMs = 200
				c.Click.DelayMaxMs = 100
				return c
			},
			wantErr: true,
		},
		{
			name: "tolerance above 255",
			build: func() *Command {
				c := New("crop", KindCropImage)
				c.CropImage = &CropImageSpec{
					Region:    types.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10},
					Tolerance: 300,
					Scan:      ScanExact,
					OutputVar: "hit",
				}
				return c
			},
			wantErr: true,
		},
		{
			name: "keypress repeat below one",
			build: func() *Command {
				c := New("key", KindKeyPress)
				c.KeyPress = &KeyPressSpec{Key: "enter", Repeat: 0}
				return c
			},
			wantErr: true,
		},
		{
			name: "missing variant fields",
			build: func() *Command {
				return New("empty", KindText)
			},
			wantErr: true,
		},
		{
			name: "wait threshold above one",
			build: func() *Command {
				c := New("wait", KindWait)
				c.Wait = &WaitSpec{
					Mode:       WaitScreenChange,
					TimeoutSec: 5,
					Region:     &types.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100},
					Threshold:  1.5,
				}
				return c
			},
			wantErr: true,
		},
		{
			name: "valid pixel wait",
			build: func() *Command {
				c := New("wait", KindWait)
				c.Wait = &WaitSpec{
					Mode:       WaitPixelColor,
					TimeoutSec: 5,
					Pixel:      &PixelTarget{At: types.Point{X: 3, Y: 4}, Color: types.RGB{R: 255}, Tolerance: 10},
				}
				return c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvalGuardWithoutGuardIsTrue(t *testing.T) {
	g := gotoCmd("jump", "jump")
	s, err := NewScript([]*Command{g}, nil, 0, nil)
	require.NoError(t, err)

	cmd, _ := s.CommandByID(g.ID)
	ok, err := cmd.EvalGuard(map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalConditionReadsVariables(t *testing.T) {
	c := New("branch", KindCondition)
	c.Condition = &ConditionSpec{Expr: "count > 3", ThenLabel: "branch"}
	_, err := NewScript([]*Command{c}, nil, 0, nil)
	require.NoError(t, err)

	ok, err := c.EvalCondition(map[string]interface{}{"count": 5})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.EvalCondition(map[string]interface{}{"count": 1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalConditionMissingVariableIsFalsy(t *testing.T) {
	c := New("branch", KindCondition)
	c.Condition = &ConditionSpec{Expr: "found != nil", ThenLabel: "branch"}
	_, err := NewScript([]*Command{c}, nil, 0, nil)
	require.NoError(t, err)

	ok, err := c.EvalCondition(map[string]interface{}{})
	require.NoError(t, err)
	assert.False(t, ok)
}
