package devices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSerial(t *testing.T) {
	tests := []struct {
		serial string
		valid  bool
	}{
		{"emulator-5554", true},
		{"127.0.0.1:21503", true},
		{"R58M123ABC", true},
		{"a.b_c-d:e", true},
		{"", false},
		{"has space", false},
		{"semi;colon", false},
		{"dollar$", false},
		{"back`tick", false},
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false}, // 65 chars
	}
	for _, tt := range tests {
		t.Run(tt.serial, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidSerial(tt.serial))
		})
	}
}

func TestParseDevicesOutput(t *testing.T) {
	output := "List of devices attached\n" +
		"emulator-5554\tdevice\n" +
		"127.0.0.1:21503\tdevice\n" +
		"emulator-5556\toffline\n" +
		"R58M123ABC\tunauthorized\n" +
		"\n"

	serials := parseDevicesOutput(output)
	assert.Equal(t, []string{"emulator-5554", "127.0.0.1:21503"}, serials)
}

func TestParseDevicesOutputEmpty(t *testing.T) {
	assert.Empty(t, parseDevicesOutput("List of devices attached\n\n"))
}

func TestKeycode(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"enter", "KEYCODE_ENTER"},
		{"ENTER", "KEYCODE_ENTER"},
		{"back", "KEYCODE_BACK"},
		{"backspace", "KEYCODE_DEL"},
		{"ctrl", "KEYCODE_CTRL_LEFT"},
		{"a", "KEYCODE_A"},
		{"f5", "KEYCODE_F5"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Keycode(tt.key))
		})
	}
}

func TestEscapeShellText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"hello world", `hello\ world`},
		{`a"b`, `a\"b`},
		{"a;b|c", `a\;b\|c`},
		{"$HOME", `\$HOME`},
		{"1+1=2", "1+1=2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeShellText(tt.in))
		})
	}
}

func TestIsAscii(t *testing.T) {
	assert.True(t, isAscii("plain text 123"))
	assert.False(t, isAscii("héllo"))
	assert.False(t, isAscii("日本語"))
}

func TestAdbTargetType(t *testing.T) {
	adb := NewAdb("adb")
	assert.Equal(t, "emulator", NewAdbTarget(adb, "emulator-5554", "").Type())
	assert.Equal(t, "emulator", NewAdbTarget(adb, "127.0.0.1:21503", "").Type())
	assert.Equal(t, "real", NewAdbTarget(adb, "R58M123ABC", "").Type())
}

func TestAdbTargetNameFallsBackToSerial(t *testing.T) {
	adb := NewAdb("adb")
	assert.Equal(t, "emulator-5554", NewAdbTarget(adb, "emulator-5554", "").Name())
	assert.Equal(t, "Pixel 7", NewAdbTarget(adb, "emulator-5554", "Pixel 7").Name())
}

func TestParseResolution(t *testing.T) {
	res, err := parseResolution(wmSizePattern, "Physical size: 540x960\n")
	require.NoError(t, err)
	assert.Equal(t, 540, res.Width)
	assert.Equal(t, 960, res.Height)

	res, err = parseResolution(dumpsysPattern, "  DisplayDeviceInfo{..., 1080 x 1920, ...}")
	require.NoError(t, err)
	assert.Equal(t, 1080, res.Width)
	assert.Equal(t, 1920, res.Height)

	_, err = parseResolution(wmSizePattern, "error: no devices found")
	assert.Error(t, err)

	_, err = parseResolution(wmSizePattern, "Physical size: 0x0")
	assert.Error(t, err)
}

func TestQueryResolutionRejectsMalformedSerial(t *testing.T) {
	svc := NewResolutionService(NewAdb("adb"), 0)
	_, err := svc.QueryResolution("bad serial")
	require.Error(t, err)
}
