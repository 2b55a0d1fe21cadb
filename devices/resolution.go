package devices

import (
	"context"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/types"
	"github.com/szuyu2308/Tool-Simulator/utils"
)

// DefaultQueryTimeout bounds each individual resolution query attempt.
const DefaultQueryTimeout = 5 * time.Second

// wmSizePattern matches `wm size` output: "Physical size: 540x960".
var wmSizePattern = regexp.MustCompile(`(\d+)x(\d+)`)

// dumpsysPattern matches display dimensions inside dumpsys output, with
// optional spacing around the x.
var dumpsysPattern = regexp.MustCompile(`(\d{3,4})\s*x\s*(\d{3,4})`)

// ResolutionService resolves a target's physical display size through a
// tiered query: `wm size` first, `dumpsys display` as the secondary parse
// strategy. One instance is shared by every worker; results are memoized
// per serial and lookups for distinct serials never block each other.
type ResolutionService struct {
	adb     *Adb
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]*resolutionEntry
}

type resolutionEntry struct {
	once sync.Once
	res  types.Resolution
	err  error
}

// NewResolutionService builds the shared service. timeout bounds each
// query attempt separately; zero means DefaultQueryTimeout.
func NewResolutionService(adb *Adb, timeout time.Duration) *ResolutionService {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &ResolutionService{
		adb:     adb,
		timeout: timeout,
		entries: make(map[string]*resolutionEntry),
	}
}

// QueryResolution returns the target's resolution, or an unresolved value
// with the reason both attempts failed. Malformed serials short-circuit
// before any I/O. The first successful answer per serial is cached for the
// service's lifetime.
func (s *ResolutionService) QueryResolution(serial string) (types.Resolution, error) {
	if !ValidSerial(serial) {
		return types.Resolution{}, core.ErrInvalidField.WithMessagef("malformed device serial %q", serial)
	}

	s.mu.Lock()
	entry, ok := s.entries[serial]
	if !ok {
		entry = &resolutionEntry{}
		s.entries[serial] = entry
	}
	s.mu.Unlock()

	// The query runs once per serial; concurrent callers for the same
	// serial wait on the same attempt instead of spawning duplicates.
	entry.once.Do(func() {
		entry.res, entry.err = s.query(serial)
	})

	if entry.err != nil {
		// Failed lookups are not cached permanently; drop the entry so a
		// later call can retry after the target recovers.
		s.mu.Lock()
		if s.entries[serial] == entry {
			delete(s.entries, serial)
		}
		s.mu.Unlock()
	}
	return entry.res, entry.err
}

func (s *ResolutionService) query(serial string) (types.Resolution, error) {
	res, primaryErr := s.queryWmSize(serial)
	if primaryErr == nil {
		utils.Verbose("%s: resolution %dx%d (wm size)", serial, res.Width, res.Height)
		return res, nil
	}
	if core.IsTimeout(primaryErr) {
		utils.Warn("%s: wm size timed out, trying dumpsys", serial)
	} else {
		utils.Verbose("%s: wm size failed (%v), trying dumpsys", serial, primaryErr)
	}

	res, secondaryErr := s.queryDumpsys(serial)
	if secondaryErr == nil {
		utils.Verbose("%s: resolution %dx%d (dumpsys fallback)", serial, res.Width, res.Height)
		return res, nil
	}

	// Keep the primary error visible: the caller's diagnostics distinguish
	// timeouts from transport failures.
	if core.IsTimeout(primaryErr) || core.IsTimeout(secondaryErr) {
		return types.Resolution{}, core.ErrQueryTimeout.WithMessagef("%s: resolution query timed out", serial).WithCause(secondaryErr)
	}
	return types.Resolution{}, core.ErrCommandFailed.WithMessagef("%s: resolution unresolved", serial).WithCause(secondaryErr)
}

func (s *ResolutionService) queryWmSize(serial string) (types.Resolution, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := s.adb.RunDeviceContext(ctx, serial, "shell", "wm", "size")
	if err != nil {
		return types.Resolution{}, err
	}
	return parseResolution(wmSizePattern, string(out))
}

func (s *ResolutionService) queryDumpsys(serial string) (types.Resolution, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := s.adb.RunDeviceContext(ctx, serial, "shell", "dumpsys", "display")
	if err != nil {
		return types.Resolution{}, err
	}
	return parseResolution(dumpsysPattern, string(out))
}

func parseResolution(pattern *regexp.Regexp, output string) (types.Resolution, error) {
	m := pattern.FindStringSubmatch(output)
	if m == nil {
		return types.Resolution{}, core.ErrCommandFailed.WithMessagef("no resolution pattern in output")
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	res := types.Resolution{Width: w, Height: h}
	if res.Unresolved() {
		return types.Resolution{}, core.ErrCommandFailed.WithMessagef("parsed degenerate resolution %dx%d", w, h)
	}
	return res, nil
}
