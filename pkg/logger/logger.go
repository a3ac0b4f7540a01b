package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sipeed/picosearch/pkg/redaction"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logLevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a config string ("debug", "info", ...) to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	for level, name := range logLevelNames {
		if strings.EqualFold(s, name) {
			return level, nil
		}
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

type LogEntry struct {
	Level     string         `json:"level"`
	Timestamp string         `json:"timestamp"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Caller    string         `json:"caller,omitempty"`
}

var (
	mu           sync.RWMutex
	currentLevel           = INFO
	out          io.Writer = os.Stderr
	file         *os.File

	redactionEnabled = true
)

func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
}

func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// SetOutput redirects console log lines. The CLI keeps logs on stderr so
// answers printed to stdout stay clean.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	out = w
}

// EnableFileLogging appends JSON entries to filePath in addition to the
// console output.
func EnableFileLogging(filePath string) error {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
	}
	file = f
	return nil
}

func DisableFileLogging() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
}

func SetRedactionEnabled(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	redactionEnabled = enabled
}

func IsRedactionEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return redactionEnabled
}

func logMessage(level LogLevel, component string, message string, fields map[string]any) {
	mu.RLock()
	defer mu.RUnlock()

	if level < currentLevel {
		return
	}

	if redactionEnabled {
		message = redaction.Redact(message)
		fields = redaction.RedactFields(fields)
	}

	entry := LogEntry{
		Level:     level.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Component: component,
		Message:   message,
		Fields:    fields,
	}

	if pc, callerFile, line, ok := runtime.Caller(2); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			entry.Caller = fmt.Sprintf("%s:%d (%s)", callerFile, line, fn.Name())
		}
	}

	if file != nil {
		if data, err := json.Marshal(entry); err == nil {
			file.Write(append(data, '\n'))
		}
	}

	fmt.Fprintf(out, "[%s] [%s]%s %s%s\n",
		entry.Timestamp,
		entry.Level,
		formatComponent(component),
		message,
		formatFields(fields),
	)
}

func formatComponent(component string) string {
	if component == "" {
		return ""
	}
	return " " + component + ":"
}

// formatFields renders fields sorted by key so log lines are stable.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " {" + strings.Join(parts, ", ") + "}"
}

func DebugCF(component string, message string, fields map[string]any) {
	logMessage(DEBUG, component, message, fields)
}

func InfoCF(component string, message string, fields map[string]any) {
	logMessage(INFO, component, message, fields)
}

func WarnCF(component string, message string, fields map[string]any) {
	logMessage(WARN, component, message, fields)
}

func ErrorCF(component string, message string, fields map[string]any) {
	logMessage(ERROR, component, message, fields)
}
