package devices

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/utils"
)

// defaultCommandTimeout bounds every adb invocation that has no explicit
// deadline of its own.
const defaultCommandTimeout = 10 * time.Second

// serialPattern accepts emulator serials ("emulator-5554"), TCP endpoints
// ("127.0.0.1:21503") and USB serials. Anything else is rejected before any
// I/O is attempted.
var serialPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// ValidSerial reports whether serial is a well-formed adb device id.
func ValidSerial(serial string) bool {
	return serialPattern.MatchString(serial)
}

// Adb invokes the adb binary. The zero timeout means defaultCommandTimeout.
type Adb struct {
	path string
}

// NewAdb returns an adb runner using the given executable path, or "adb"
// from PATH when empty.
func NewAdb(path string) *Adb {
	if path == "" {
		path = "adb"
	}
	return &Adb{path: path}
}

// Run executes an adb command without a device binding.
func (a *Adb) Run(args ...string) ([]byte, error) {
	return a.RunContext(context.Background(), args...)
}

// RunContext executes an adb command honoring ctx's deadline.
func (a *Adb) RunContext(ctx context.Context, args ...string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCommandTimeout)
		defer cancel()
	}

	utils.Verbose("adb %v", args)
	out, err := exec.CommandContext(ctx, a.path, args...).CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return out, core.ErrQueryTimeout.WithMessagef("adb %v timed out", args)
		}
		return out, fmt.Errorf("adb %v: %w", args, err)
	}
	return out, nil
}

// RunDevice executes an adb command against one serial.
func (a *Adb) RunDevice(serial string, args ...string) ([]byte, error) {
	return a.RunDeviceContext(context.Background(), serial, args...)
}

// RunDeviceContext executes an adb command against one serial with a
// deadline.
func (a *Adb) RunDeviceContext(ctx context.Context, serial string, args ...string) ([]byte, error) {
	if !ValidSerial(serial) {
		return nil, fmt.Errorf("malformed device serial: %q", serial)
	}
	return a.RunContext(ctx, append([]string{"-s", serial}, args...)...)
}

// Connect attaches a TCP endpoint (e.g. 127.0.0.1:21503) to the adb server.
func (a *Adb) Connect(address string) error {
	out, err := a.Run("connect", address)
	if err != nil {
		return err
	}
	if !connectedPattern.Match(out) {
		return fmt.Errorf("failed to connect to %s: %s", address, out)
	}
	utils.Info("connected to %s", address)
	return nil
}

var connectedPattern = regexp.MustCompile(`(?i)connected`)
