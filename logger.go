package reqflow

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger is the minimal structured logging interface the orchestrator emits
// debug output through. Adapters for slog, zap, etc. are trivial to write.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SimpleLogger writes leveled key/value lines to stdout. Intended for examples
// and debugging, not production log pipelines.
type SimpleLogger struct {
	logger *log.Logger
}

// NewSimpleLogger creates a console logger.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		logger: log.New(os.Stdout, "reqflow ", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *SimpleLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log("DEBUG", msg, keysAndValues...)
}

func (l *SimpleLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log("INFO", msg, keysAndValues...)
}

func (l *SimpleLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log("WARN", msg, keysAndValues...)
}

func (l *SimpleLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log("ERROR", msg, keysAndValues...)
}

func (l *SimpleLogger) log(level, msg string, keysAndValues ...interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	if len(keysAndValues)%2 == 1 {
		fmt.Fprintf(&b, " %v=<missing>", keysAndValues[len(keysAndValues)-1])
	}
	l.logger.Println(b.String())
}

// DebugConfig selects which orchestration stages emit debug logs. All stages
// default to enabled once debugging itself is switched on.
type DebugConfig struct {
	Enabled        bool
	LogSubmissions bool
	LogDedup       bool
	LogQueue       bool
	LogRateLimit   bool
	LogStreaming   bool
	LogPool        bool

	// OperationIDGen produces operation IDs; defaults to random UUIDs.
	OperationIDGen func() string
}

// DefaultDebugConfig returns a config with all stages selected but debugging
// disabled until WithDebug is applied.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:        false,
		LogSubmissions: true,
		LogDedup:       true,
		LogQueue:       true,
		LogRateLimit:   true,
		LogStreaming:   true,
		LogPool:        true,
		OperationIDGen: uuid.NewString,
	}
}
