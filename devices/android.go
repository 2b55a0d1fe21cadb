package devices

import (
	"fmt"
	"strings"
)

// AdbTarget drives one Android emulator instance (or real device) over adb.
type AdbTarget struct {
	serial string
	name   string
	adb    *Adb
}

// NewAdbTarget binds a target to its serial.
func NewAdbTarget(adb *Adb, serial, name string) *AdbTarget {
	if name == "" {
		name = serial
	}
	return &AdbTarget{serial: serial, name: name, adb: adb}
}

func (t *AdbTarget) Serial() string { return t.serial }

func (t *AdbTarget) Name() string { return t.name }

func (t *AdbTarget) Type() string {
	if strings.HasPrefix(t.serial, "emulator-") || strings.Contains(t.serial, ":") {
		return "emulator"
	}
	return "real"
}

func (t *AdbTarget) shell(args ...string) error {
	out, err := t.adb.RunDevice(t.serial, append([]string{"shell"}, args...)...)
	if err != nil {
		return fmt.Errorf("%w\noutput: %s", err, out)
	}
	return nil
}

// Tap injects a single tap at physical coordinates.
func (t *AdbTarget) Tap(x, y int) error {
	return t.shell("input", "tap", itoa(x), itoa(y))
}

// DoubleTap injects two taps at the same point. `input` has no native
// double-tap, so this relies on the engine's humanize delay between events
// being short enough to register as one gesture.
func (t *AdbTarget) DoubleTap(x, y int) error {
	if err := t.Tap(x, y); err != nil {
		return err
	}
	return t.Tap(x, y)
}

// LongPress holds a press for 600 ms, the standard Android long-press
// threshold plus margin. Stands in for a right click.
func (t *AdbTarget) LongPress(x, y int) error {
	return t.shell("input", "swipe", itoa(x), itoa(y), itoa(x), itoa(y), "600")
}

// Scroll swipes vertically from (x, y) by delta physical pixels; positive
// delta scrolls content up (wheel up).
func (t *AdbTarget) Scroll(x, y, delta int) error {
	return t.shell("input", "swipe", itoa(x), itoa(y), itoa(x), itoa(y+delta), "120")
}

// keyMap translates portable key names to Android keycodes.
var keyMap = map[string]string{
	"home":        "KEYCODE_HOME",
	"back":        "KEYCODE_BACK",
	"enter":       "KEYCODE_ENTER",
	"tab":         "KEYCODE_TAB",
	"space":       "KEYCODE_SPACE",
	"backspace":   "KEYCODE_DEL",
	"delete":      "KEYCODE_FORWARD_DEL",
	"escape":      "KEYCODE_ESCAPE",
	"menu":        "KEYCODE_MENU",
	"power":       "KEYCODE_POWER",
	"volume_up":   "KEYCODE_VOLUME_UP",
	"volume_down": "KEYCODE_VOLUME_DOWN",
	"app_switch":  "KEYCODE_APP_SWITCH",
	"up":          "KEYCODE_DPAD_UP",
	"down":        "KEYCODE_DPAD_DOWN",
	"left":        "KEYCODE_DPAD_LEFT",
	"right":       "KEYCODE_DPAD_RIGHT",
	"ctrl":        "KEYCODE_CTRL_LEFT",
	"alt":         "KEYCODE_ALT_LEFT",
	"shift":       "KEYCODE_SHIFT_LEFT",
}

// Keycode resolves a key name to its Android keycode. Unmapped names fall
// through as KEYCODE_<NAME>, which covers letters, digits and function keys.
func Keycode(key string) string {
	if code, ok := keyMap[strings.ToLower(key)]; ok {
		return code
	}
	return "KEYCODE_" + strings.ToUpper(key)
}

// KeyPress injects one key event.
func (t *AdbTarget) KeyPress(key string) error {
	return t.shell("input", "keyevent", Keycode(key))
}

// KeyCombo injects a key chord. Simultaneous chords use `input
// keycombination` (Android 11+); sequence chords fire ordered keyevents.
func (t *AdbTarget) KeyCombo(keys []string, simultaneous bool) error {
	if simultaneous {
		args := []string{"input", "keycombination"}
		for _, k := range keys {
			args = append(args, Keycode(k))
		}
		return t.shell(args...)
	}
	for _, k := range keys {
		if err := t.KeyPress(k); err != nil {
			return err
		}
	}
	return nil
}

// InputText types text through `input text`. Non-ASCII content cannot pass
// through the shell and is rejected here rather than silently mangled.
func (t *AdbTarget) InputText(text string) error {
	if text == "" {
		return nil
	}
	if !isAscii(text) {
		return fmt.Errorf("text contains non-ascii characters, cannot inject via adb")
	}
	return t.shell("input", "text", escapeShellText(text))
}

// Screenshot captures the display as PNG via exec-out, which avoids the
// shell transport's line-ending mangling.
func (t *AdbTarget) Screenshot() ([]byte, error) {
	out, err := t.adb.RunDevice(t.serial, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return out, nil
}

func isAscii(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
	}
	return true
}

// escapeShellText escapes text for `input text`: spaces and shell
// metacharacters get backslash-escaped so the device shell sees them
// literally.
func escapeShellText(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case ' ', '\'', '"', ';', '|', '&', '(', ')', '$', '*', '<', '>', '`', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func itoa(v int) string {
	return fmt.Sprintf("%d", v)
}
