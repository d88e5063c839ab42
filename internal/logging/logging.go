// Package logging provides categorized logging for persona.
// Each subsystem logs through its own named zap logger; debug mode adds a
// file sink under <workspace>/.persona/logs/.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot       Category = "boot"       // startup and wiring
	CategoryCapability Category = "capability" // registry and execution
	CategoryAction     Category = "action"     // action extraction
	CategorySynthesis  Category = "synthesis"  // capability synthesis pipeline
	CategoryAgent      Category = "agent"      // execution coordinator
	CategoryGen        Category = "genservice" // generation service calls
	CategoryStore      Category = "store"      // conversation/character store
	CategoryServer     Category = "server"     // HTTP API
)

var (
	mu        sync.RWMutex
	loggers   = make(map[Category]*zap.SugaredLogger)
	root      *zap.Logger
	debugMode bool
)

// Initialize configures the logging backend. Must be called once at startup;
// before that, all helpers log through a no-op logger.
func Initialize(workspace string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	debugMode = debug

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if debug && workspace != "" {
		logsDir := filepath.Join(workspace, ".persona", "logs")
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return fmt.Errorf("failed to create logs dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(logsDir, "persona.log"),
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.Lock(f),
			zapcore.DebugLevel,
		)
		cores = append(cores, fileCore)
	}

	root = zap.New(zapcore.NewTee(cores...))
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the sugared logger for a category.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	base := root
	if base == nil {
		base = zap.NewNop()
	}
	l := base.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// DebugEnabled reports whether debug logging is active.
func DebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}

// Category helpers, one pair per subsystem that logs heavily. The
// Printf-style surface keeps call sites short.

func Capability(format string, args ...interface{}) {
	Get(CategoryCapability).Infof(format, args...)
}

func CapabilityDebug(format string, args ...interface{}) {
	Get(CategoryCapability).Debugf(format, args...)
}

func Action(format string, args ...interface{}) {
	Get(CategoryAction).Infof(format, args...)
}

func ActionDebug(format string, args ...interface{}) {
	Get(CategoryAction).Debugf(format, args...)
}

func Synthesis(format string, args ...interface{}) {
	Get(CategorySynthesis).Infof(format, args...)
}

func SynthesisDebug(format string, args ...interface{}) {
	Get(CategorySynthesis).Debugf(format, args...)
}

func SynthesisWarn(format string, args ...interface{}) {
	Get(CategorySynthesis).Warnf(format, args...)
}

func Agent(format string, args ...interface{}) {
	Get(CategoryAgent).Infof(format, args...)
}

func AgentDebug(format string, args ...interface{}) {
	Get(CategoryAgent).Debugf(format, args...)
}

func AgentWarn(format string, args ...interface{}) {
	Get(CategoryAgent).Warnf(format, args...)
}

func Store(format string, args ...interface{}) {
	Get(CategoryStore).Infof(format, args...)
}

func Server(format string, args ...interface{}) {
	Get(CategoryServer).Infof(format, args...)
}

func ServerWarn(format string, args ...interface{}) {
	Get(CategoryServer).Warnf(format, args...)
}
