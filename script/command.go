// Package script defines the command vocabulary, the script container and
// its persisted form. All structural validation happens at construction;
// a script that constructs successfully never fails on malformed structure
// at dispatch time.
package script

import (
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"

	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/types"
)

// Kind discriminates the command variants.
type Kind string

const (
	KindClick     Kind = "Click"
	KindCropImage Kind = "CropImage"
	KindKeyPress  Kind = "KeyPress"
	KindHotKey    Kind = "HotKey"
	KindText      Kind = "Text"
	KindWait      Kind = "Wait"
	KindRepeat    Kind = "Repeat"
	KindGoto      Kind = "Goto"
	KindCondition Kind = "Condition"
)

// IsAction reports whether the kind performs an external effect. The
// remaining kinds are control flow evaluated in-process.
func (k Kind) IsAction() bool {
	switch k {
	case KindClick, KindCropImage, KindKeyPress, KindHotKey, KindText:
		return true
	}
	return false
}

// Button identifies the simulated mouse button for Click commands.
type Button string

const (
	ButtonLeft      Button = "Left"
	ButtonRight     Button = "Right"
	ButtonDouble    Button = "Double"
	ButtonWheelUp   Button = "WheelUp"
	ButtonWheelDown Button = "WheelDown"
)

// OnFail selects the failure policy applied when a command does not succeed.
type OnFail string

const (
	OnFailSkip      OnFail = "Skip"
	OnFailStop      OnFail = "Stop"
	OnFailGotoLabel OnFail = "GotoLabel"
)

// ScanMode selects the CropImage pixel scan strategy.
type ScanMode string

const (
	ScanExact    ScanMode = "Exact"
	ScanMaxMatch ScanMode = "MaxMatch"
	ScanGrid     ScanMode = "Grid"
)

// TextMode selects how Text content is delivered.
type TextMode string

const (
	TextPaste    TextMode = "Paste"
	TextHumanize TextMode = "Humanize"
)

// WaitMode selects the Wait condition.
type WaitMode string

const (
	WaitTimeout      WaitMode = "Timeout"
	WaitPixelColor   WaitMode = "PixelColor"
	WaitScreenChange WaitMode = "ScreenChange"
)

// HotKeyOrder selects whether hotkey keys fire together or in order.
type HotKeyOrder string

const (
	OrderSimultaneous HotKeyOrder = "Simultaneous"
	OrderSequence     HotKeyOrder = "Sequence"
)

// ClickSpec holds the Click variant fields. Coordinates are logical.
type ClickSpec struct {
	Button     Button `json:"button"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	DelayMinMs int    `json:"delayMinMs"`
	DelayMaxMs int    `json:"delayMaxMs"`
	WheelDelta int    `json:"wheelDelta,omitempty"`
}

// CropImageSpec holds the CropImage variant fields.
type CropImageSpec struct {
	Region    types.Rect `json:"region"`
	Color     types.RGB  `json:"color"`
	Tolerance int        `json:"tolerance"`
	Scan      ScanMode   `json:"scan"`
	OutputVar string     `json:"outputVar"`
}

// KeyPressSpec holds the KeyPress variant fields.
type KeyPressSpec struct {
	Key     string `json:"key"`
	Repeat  int    `json:"repeat"`
	DelayMs int    `json:"delayMs"`
}

// HotKeySpec holds the HotKey variant fields.
type HotKeySpec struct {
	Keys  []string    `json:"keys"`
	Order HotKeyOrder `json:"order"`
}

// TextSpec holds the Text variant fields. Focus, when present, is tapped
// before typing to direct input.
type TextSpec struct {
	Content     string       `json:"content"`
	Mode        TextMode     `json:"mode"`
	SpeedMinCps int          `json:"speedMinCps,omitempty"`
	SpeedMaxCps int          `json:"speedMaxCps,omitempty"`
	Focus       *types.Point `json:"focus,omitempty"`
}

// PixelTarget is the Wait PixelColor probe.
type PixelTarget struct {
	At        types.Point `json:"at"`
	Color     types.RGB   `json:"color"`
	Tolerance int         `json:"tolerance"`
}

// WaitSpec holds the Wait variant fields.
type WaitSpec struct {
	Mode       WaitMode     `json:"mode"`
	TimeoutSec int          `json:"timeoutSec"`
	Pixel      *PixelTarget `json:"pixel,omitempty"`
	Region     *types.Rect  `json:"region,omitempty"`
	Threshold  float64      `json:"threshold,omitempty"`
}

// RepeatSpec holds the Repeat variant fields. Count 0 means unbounded,
// governed only by the script-wide iteration cap.
type RepeatSpec struct {
	Count int        `json:"count"`
	Until string     `json:"until,omitempty"`
	Inner []*Command `json:"inner"`
}

// GotoSpec holds the Goto variant fields. An empty Guard jumps
// unconditionally.
type GotoSpec struct {
	Target string `json:"target"`
	Guard  string `json:"guard,omitempty"`
}

// ConditionSpec holds the Condition variant fields. A branch label takes
// precedence over the matching inline list; with neither set the command
// falls through.
type ConditionSpec struct {
	Expr      string     `json:"expr"`
	ThenLabel string     `json:"thenLabel,omitempty"`
	ElseLabel string     `json:"elseLabel,omitempty"`
	Then      []*Command `json:"then,omitempty"`
	Else      []*Command `json:"else,omitempty"`
}

// Command is one script step: a tagged variant with common envelope fields
// and exactly one populated spec matching Kind.
type Command struct {
	ID           string   `json:"id"`
	ParentID     string   `json:"parentId,omitempty"`
	Name         string   `json:"name"`
	Kind         Kind     `json:"type"`
	Enabled      bool     `json:"enabled"`
	OnFail       OnFail   `json:"onFail"`
	OnFailLabel  string   `json:"onFailLabel,omitempty"`
	VariablesOut []string `json:"variablesOut,omitempty"`

	Click     *ClickSpec     `json:"click,omitempty"`
	CropImage *CropImageSpec `json:"cropImage,omitempty"`
	KeyPress  *KeyPressSpec  `json:"keyPress,omitempty"`
	HotKey    *HotKeySpec    `json:"hotKey,omitempty"`
	Text      *TextSpec      `json:"text,omitempty"`
	Wait      *WaitSpec      `json:"wait,omitempty"`
	Repeat    *RepeatSpec    `json:"repeat,omitempty"`
	Goto      *GotoSpec      `json:"goto,omitempty"`
	Condition *ConditionSpec `json:"condition,omitempty"`

	// Expressions are compiled once during script construction.
	guardProg *vm.Program // Goto guard
	untilProg *vm.Program // Repeat until
	condProg  *vm.Program // Condition expr
}

// New returns a command envelope with defaults applied. The caller fills in
// the variant spec before handing the command to NewScript.
func New(name string, kind Kind) *Command {
	return &Command{
		ID:      uuid.NewString(),
		Name:    name,
		Kind:    kind,
		Enabled: true,
		OnFail:  OnFailSkip,
	}
}

// spec returns the populated variant spec, or nil if it does not match Kind.
func (c *Command) spec() interface{} {
	switch c.Kind {
	case KindClick:
		if c.Click != nil {
			return c.Click
		}
	case KindCropImage:
		if c.CropImage != nil {
			return c.CropImage
		}
	case KindKeyPress:
		if c.KeyPress != nil {
			return c.KeyPress
		}
	case KindHotKey:
		if c.HotKey != nil {
			return c.HotKey
		}
	case KindText:
		if c.Text != nil {
			return c.Text
		}
	case KindWait:
		if c.Wait != nil {
			return c.Wait
		}
	case KindRepeat:
		if c.Repeat != nil {
			return c.Repeat
		}
	case KindGoto:
		if c.Goto != nil {
			return c.Goto
		}
	case KindCondition:
		if c.Condition != nil {
			return c.Condition
		}
	}
	return nil
}

// validate checks the envelope and the variant fields, and compiles any
// expressions the variant carries. It does not resolve labels; that needs
// the whole script and happens in NewScript.
func (c *Command) validate() error {
	if c.Name == "" {
		return core.ErrInvalidField.WithMessagef("command %s: name is required", c.ID)
	}
	if c.ID == "" {
		return core.ErrInvalidField.WithMessagef("command %q: id is required", c.Name)
	}

	switch c.OnFail {
	case OnFailSkip, OnFailStop:
	case OnFailGotoLabel:
		if c.OnFailLabel == "" {
			return core.ErrInvalidField.WithMessagef("command %q: onFail=GotoLabel needs a label", c.Name)
		}
	default:
		return core.ErrInvalidField.WithMessagef("command %q: unknown onFail %q", c.Name, c.OnFail)
	}

	if c.spec() == nil {
		return core.ErrInvalidField.WithMessagef("command %q: missing %s fields", c.Name, c.Kind)
	}

	switch c.Kind {
	case KindClick:
		return c.validateClick()
	case KindCropImage:
		return c.validateCropImage()
	case KindKeyPress:
		return c.validateKeyPress()
	case KindHotKey:
		return c.validateHotKey()
	case KindText:
		return c.validateText()
	case KindWait:
		return c.validateWait()
	case KindRepeat:
		return c.validateRepeat()
	case KindGoto:
		return c.validateGoto()
	case KindCondition:
		return c.validateCondition()
	default:
		return core.ErrInvalidField.WithMessagef("command %q: unknown kind %q", c.Name, c.Kind)
	}
}

func (c *Command) validateClick() error {
	s := c.Click
	switch s.Button {
	case ButtonLeft, ButtonRight, ButtonDouble, ButtonWheelUp, ButtonWheelDown:
	default:
		return core.ErrInvalidField.WithMessagef("command %q: unknown button %q", c.Name, s.Button)
	}
	if s.X < 0 || s.Y < 0 {
		return core.ErrInvalidField.WithMessagef("command %q: negative click coordinates (%d,%d)", c.Name, s.X, s.Y)
	}
	if s.DelayMinMs < 0 || s.DelayMaxMs < s.DelayMinMs {
		return core.ErrInvalidField.WithMessagef("command %q: bad humanize delay range [%d,%d]", c.Name, s.DelayMinMs, s.DelayMaxMs)
	}
	return nil
}

func (c *Command) validateCropImage() error {
	s := c.CropImage
	if s.Region.Empty() || s.Region.X1 < 0 || s.Region.Y1 < 0 {
		return core.ErrInvalidField.WithMessagef("command %q: empty or negative scan region", c.Name)
	}
	if s.Tolerance < 0 || s.Tolerance > 255 {
		return core.ErrInvalidField.WithMessagef("command %q: tolerance %d outside 0-255", c.Name, s.Tolerance)
	}
	switch s.Scan {
	case ScanExact, ScanMaxMatch, ScanGrid:
	default:
		return core.ErrInvalidField.WithMessagef("command %q: unknown scan mode %q", c.Name, s.Scan)
	}
	if s.OutputVar == "" {
		return core.ErrInvalidField.WithMessagef("command %q: outputVar is required", c.Name)
	}
	return nil
}

func (c *Command) validateKeyPress() error {
	s := c.KeyPress
	if s.Key == "" {
		return core.ErrInvalidField.WithMessagef("command %q: key is required", c.Name)
	}
	if s.Repeat < 1 {
		return core.ErrInvalidField.WithMessagef("command %q: repeat %d must be >= 1", c.Name, s.Repeat)
	}
	if s.DelayMs < 0 {
		return core.ErrInvalidField.WithMessagef("command %q: negative key delay", c.Name)
	}
	return nil
}

func (c *Command) validateHotKey() error {
	s := c.HotKey
	if len(s.Keys) == 0 {
		return core.ErrInvalidField.WithMessagef("command %q: hotkey needs at least one key", c.Name)
	}
	switch s.Order {
	case OrderSimultaneous, OrderSequence:
	default:
		return core.ErrInvalidField.WithMessagef("command %q: unknown hotkey order %q", c.Name, s.Order)
	}
	return nil
}

func (c *Command) validateText() error {
	s := c.Text
	switch s.Mode {
	case TextPaste:
	case TextHumanize:
		if s.SpeedMinCps < 1 || s.SpeedMaxCps < s.SpeedMinCps {
			return core.ErrInvalidField.WithMessagef("command %q: bad humanize speed range [%d,%d]", c.Name, s.SpeedMinCps, s.SpeedMaxCps)
		}
	default:
		return core.ErrInvalidField.WithMessagef("command %q: unknown text mode %q", c.Name, s.Mode)
	}
	if s.Focus != nil && (s.Focus.X < 0 || s.Focus.Y < 0) {
		return core.ErrInvalidField.WithMessagef("command %q: negative focus coordinates", c.Name)
	}
	return nil
}

func (c *Command) validateWait() error {
	s := c.Wait
	if s.TimeoutSec <= 0 {
		return core.ErrInvalidField.WithMessagef("command %q: wait timeout %d must be positive", c.Name, s.TimeoutSec)
	}
	switch s.Mode {
	case WaitTimeout:
	case WaitPixelColor:
		if s.Pixel == nil {
			return core.ErrInvalidField.WithMessagef("command %q: PixelColor wait needs a pixel target", c.Name)
		}
		if s.Pixel.Tolerance < 0 || s.Pixel.Tolerance > 255 {
			return core.ErrInvalidField.WithMessagef("command %q: pixel tolerance %d outside 0-255", c.Name, s.Pixel.Tolerance)
		}
	case WaitScreenChange:
		if s.Region == nil || s.Region.Empty() {
			return core.ErrInvalidField.WithMessagef("command %q: ScreenChange wait needs a region", c.Name)
		}
		if s.Threshold < 0 || s.Threshold > 1 {
			return core.ErrInvalidField.WithMessagef("command %q: threshold %v outside 0-1", c.Name, s.Threshold)
		}
	default:
		return core.ErrInvalidField.WithMessagef("command %q: unknown wait mode %q", c.Name, s.Mode)
	}
	return nil
}

func (c *Command) validateRepeat() error {
	s := c.Repeat
	if s.Count < 0 {
		return core.ErrInvalidField.WithMessagef("command %q: repeat count %d must be >= 0", c.Name, s.Count)
	}
	if s.Until != "" {
		prog, err := compileBool(s.Until)
		if err != nil {
			return core.ErrBadExpression.WithMessagef("command %q: until %q", c.Name, s.Until).WithCause(err)
		}
		c.untilProg = prog
	}
	for _, inner := range s.Inner {
		if err := inner.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Command) validateGoto() error {
	s := c.Goto
	if s.Target == "" {
		return core.ErrInvalidField.WithMessagef("command %q: goto target is required", c.Name)
	}
	if s.Guard != "" {
		prog, err := compileBool(s.Guard)
		if err != nil {
			return core.ErrBadExpression.WithMessagef("command %q: guard %q", c.Name, s.Guard).WithCause(err)
		}
		c.guardProg = prog
	}
	return nil
}

func (c *Command) validateCondition() error {
	s := c.Condition
	if s.Expr == "" {
		return core.ErrInvalidField.WithMessagef("command %q: condition expression is required", c.Name)
	}
	prog, err := compileBool(s.Expr)
	if err != nil {
		return core.ErrBadExpression.WithMessagef("command %q: expr %q", c.Name, s.Expr).WithCause(err)
	}
	c.condProg = prog
	for _, inner := range append(append([]*Command{}, s.Then...), s.Else...) {
		if err := inner.validate(); err != nil {
			return err
		}
	}
	return nil
}

// EvalGuard evaluates the Goto guard against vars. A guardless Goto is
// unconditional.
func (c *Command) EvalGuard(vars map[string]interface{}) (bool, error) {
	if c.guardProg == nil {
		return true, nil
	}
	return runBool(c.guardProg, vars)
}

// EvalUntil evaluates the Repeat until-condition against vars. Without one
// the loop never terminates early.
func (c *Command) EvalUntil(vars map[string]interface{}) (bool, error) {
	if c.untilProg == nil {
		return false, nil
	}
	return runBool(c.untilProg, vars)
}

// EvalCondition evaluates the Condition expression against vars.
func (c *Command) EvalCondition(vars map[string]interface{}) (bool, error) {
	return runBool(c.condProg, vars)
}
