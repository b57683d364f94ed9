package baseline

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package's logger instance. It uses a no-op logger by
// default; callers that want tracing should replace it with SetLogger
// before compiling.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger installs l as the package logger.
func SetLogger(l *zap.Logger) {
	loggerOnce.Do(func() {})
	logger = l
}

// debug gates the per-opcode TRACE-equivalent below. Off by default; the
// zap level check on Logger() already makes this nearly free, but skipping
// the Sugar().Debugf format work entirely avoids even that when tracing is
// disabled.
var debug = false

// SetDebug toggles the per-opcode trace log emitted during translation.
func SetDebug(on bool) {
	debug = on
}

func debugf(format string, args ...any) {
	if debug {
		Logger().Sugar().Debugf(format, args...)
	}
}

// invariant panics if cond is false. It guards conditions that must never
// be reachable given a correctly-validated decoder feeding this compiler —
// use-count mismatches, unbound labels at function end, allocator
// over-subscription. These are programmer errors, not bailouts: a bailout
// is always signalled through unsupported() and Result.OK, never a panic.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic("baseline: invariant violated: " + fmt.Sprintf(format, args...))
	}
}
