// Package log is the internal compiler's structured logger, separate from
// the human-facing colored output cmd/vaisc prints with fatih/color. This
// register is for diagnosability of the compiler itself: cache hit/miss
// accounting, JIT tier-up/OSR events, watch-mode reloads — the kind of
// thing an operator running vaisc as a long-lived service would want to
// grep, not a message meant for the person whose program is being compiled.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

func init() {
	logger = newLogger(false)
}

func newLogger(debug bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.Lock(os.Stderr), level)
	return zap.New(core).Sugar()
}

// SetDebug switches the package logger between info and debug level,
// driven by cmd/vaisc's --debug flag.
func SetDebug(debug bool) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(debug)
}

// L returns the package-level sugared logger. Safe for concurrent use
// (zap.SugaredLogger is), but swapping via SetDebug is itself guarded
// since it replaces the pointer.
func L() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func Debugw(msg string, kv ...interface{}) { L().Debugw(msg, kv...) }
func Infow(msg string, kv ...interface{})  { L().Infow(msg, kv...) }
func Warnw(msg string, kv ...interface{})  { L().Warnw(msg, kv...) }
func Errorw(msg string, kv ...interface{}) { L().Errorw(msg, kv...) }

// Sync flushes any buffered log entries. zap returns a harmless error when stderr is a console/pipe that doesn't
// support fsync, so callers may ignore the returned error.
func Sync() error { return L().Sync() }
