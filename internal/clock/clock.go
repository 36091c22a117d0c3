// Package clock provides the monotonic time reading used to drive ready-time
// comparisons, plus the per-process timer perturbation seed described for
// whole-second timers.
package clock

import (
	"errors"
	"os"
	"sync/atomic"
	"time"

	"github.com/gloopcore/gloop/internal/logging"
	"go.uber.org/zap"
)

// errBrokenClock is logged (never returned to callers) if a runtime's
// monotonic reading ever appears to go backwards; NowMicro clamps to the
// last observed value instead of propagating the regression to ready-time
// comparisons.
var errBrokenClock = errors.New("monotonic clock did not advance")

// processStart anchors NowMicro's readings to time.Since, which is specified
// to use the runtime's monotonic clock reading as long as neither operand
// has had it stripped (e.g. by round-tripping through UnixMicro).
var processStart = time.Now()

var lastMicro atomic.Int64

// NowMicro returns a monotonic reading in microseconds, guaranteed
// non-decreasing across calls from the same process.
func NowMicro() int64 {
	now := int64(time.Since(processStart) / time.Microsecond)
	for {
		prev := lastMicro.Load()
		if now <= prev {
			if now < prev {
				logging.L().Warn("gloop: clock", zap.Error(errBrokenClock))
			}
			return prev
		}
		if lastMicro.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// perturbation is derived once from a session identifier environment
// variable (bus address or hostname); absence of both yields zero.
var perturbation = computePerturbation()

func computePerturbation() uint32 {
	seed := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	if seed == "" {
		seed, _ = os.Hostname()
	}
	if seed == "" {
		return 0
	}
	var h uint32 = 2166136261
	for i := 0; i < len(seed); i++ {
		h ^= uint32(seed[i])
		h *= 16777619
	}
	return h % 1000
}

// Perturbation returns the millisecond offset (0-999) applied to whole-second
// timer intervals so that many such timers registered across a machine don't
// all wake in the same instant.
func Perturbation() uint32 {
	return perturbation
}
