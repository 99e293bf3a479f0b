// Package logger provides the leveled, structured logger used across
// ctxtidy. Output goes to stderr so stdout stays clean for previews
// and reports.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level represents the severity level of log messages
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a flag value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Config holds the logger configuration
type Config struct {
	Level    Level
	UseColor bool
	JSON     bool
	// DryRun tags every line so transcript readers can tell a rehearsal
	// from a real run.
	DryRun bool
}

// Logger is a leveled structured logger.
type Logger struct {
	config Config
	logger *log.Logger
}

var defaultLogger *Logger

// Initialize sets up the default logger
func Initialize(config Config) {
	defaultLogger = New(config, os.Stderr)
}

// New returns a logger writing to w.
func New(config Config, w io.Writer) *Logger {
	return &Logger{
		config: config,
		logger: log.New(w, "", 0),
	}
}

// Entry is a single serialized log line.
type Entry struct {
	Time    time.Time              `json:"time"`
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	DryRun  bool                   `json:"dry_run,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Log writes a log message
func (l *Logger) Log(level Level, message string, fields ...Field) {
	if level < l.config.Level {
		return
	}

	entry := Entry{
		Time:    time.Now(),
		Level:   level.String(),
		Message: message,
		DryRun:  l.config.DryRun,
	}
	if len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(fields))
		for _, field := range fields {
			entry.Fields[field.Key] = field.Value
		}
	}

	var output string
	if l.config.JSON {
		jsonBytes, _ := json.Marshal(entry)
		output = string(jsonBytes)
	} else {
		output = l.formatPretty(entry)
	}

	l.logger.Print(output)
}

func (l *Logger) formatPretty(entry Entry) string {
	var b strings.Builder

	b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))

	level := entry.Level
	if l.config.UseColor {
		switch entry.Level {
		case "DEBUG":
			level = "\033[36mDEBUG\033[0m"
		case "INFO":
			level = "\033[32mINFO\033[0m"
		case "WARN":
			level = "\033[33mWARN\033[0m"
		case "ERROR":
			level = "\033[31mERROR\033[0m"
		}
	}
	b.WriteString(fmt.Sprintf(" [%s]", level))

	b.WriteString(" ctxtidy:")

	if entry.DryRun {
		if l.config.UseColor {
			b.WriteString(" \033[35m[DRY-RUN]\033[0m")
		} else {
			b.WriteString(" [DRY-RUN]")
		}
	}

	b.WriteString(fmt.Sprintf(" %s", entry.Message))

	if len(entry.Fields) > 0 {
		b.WriteString(" {")
		first := true
		for k, v := range entry.Fields {
			if !first {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		b.WriteString("}")
	}

	return b.String()
}

// Field represents a structured field in a log entry
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field
func Err(err error) Field {
	return Field{Key: "error", Value: err.Error()}
}

// Convenience functions for the default logger.

func Debug(message string, fields ...Field) {
	if defaultLogger != nil {
		defaultLogger.Log(DebugLevel, message, fields...)
	}
}

func Info(message string, fields ...Field) {
	if defaultLogger != nil {
		defaultLogger.Log(InfoLevel, message, fields...)
	} else {
		fmt.Fprintf(os.Stderr, "[INFO] ctxtidy: %s\n", message)
	}
}

func Warn(message string, fields ...Field) {
	if defaultLogger != nil {
		defaultLogger.Log(WarnLevel, message, fields...)
	}
}

func Error(message string, fields ...Field) {
	if defaultLogger != nil {
		defaultLogger.Log(ErrorLevel, message, fields...)
	}
}

// SetOutput sets the output writer for the default logger.
func SetOutput(w io.Writer) {
	if defaultLogger != nil {
		defaultLogger.logger.SetOutput(w)
	}
}
