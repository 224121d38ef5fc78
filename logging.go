package userstack

import (
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a minimal printf-style logging interface.
// It's compatible with the standard library *log.Logger.
type Logger interface {
	// Printf logs a formatted message.
	Printf(format string, v ...any)
}

// StructuredLogger provides leveled, structured logging for the SDK.
// It is compatible with slog and similar libraries through adapters:
//
//	client, _ := userstack.New(projectKey,
//	    userstack.WithStructuredLogger(userstack.NewSlogAdapter(slog.Default())),
//	)
type StructuredLogger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// printfLoggerWrapper wraps a printf-style logger to implement StructuredLogger.
type printfLoggerWrapper struct {
	logger Logger
}

// WrapPrintfLogger wraps a printf-style Logger (like *log.Logger) to implement
// StructuredLogger. All messages are logged with a level prefix and formatted
// key-value pairs appended.
func WrapPrintfLogger(l Logger) StructuredLogger {
	return &printfLoggerWrapper{logger: l}
}

// WrapStdLogger wraps a standard library *log.Logger to implement StructuredLogger.
func WrapStdLogger(l *log.Logger) StructuredLogger {
	return &printfLoggerWrapper{logger: &defaultLogger{logger: l}}
}

func (w *printfLoggerWrapper) Debug(msg string, args ...any) {
	w.logger.Printf("%s", "[DEBUG] "+msg+formatArgs(args))
}

func (w *printfLoggerWrapper) Info(msg string, args ...any) {
	w.logger.Printf("%s", "[INFO] "+msg+formatArgs(args))
}

func (w *printfLoggerWrapper) Warn(msg string, args ...any) {
	w.logger.Printf("%s", "[WARN] "+msg+formatArgs(args))
}

func (w *printfLoggerWrapper) Error(msg string, args ...any) {
	w.logger.Printf("%s", "[ERROR] "+msg+formatArgs(args))
}

var _ StructuredLogger = (*printfLoggerWrapper)(nil)

// defaultLogger wraps the standard library logger.
type defaultLogger struct {
	logger *log.Logger
}

func (l *defaultLogger) Printf(format string, v ...any) {
	l.logger.Printf(format, v...)
}

// formatArgs formats structured logging arguments as a string.
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(" |")
	for i := 0; i < len(args); i += 2 {
		var value any
		if i+1 < len(args) {
			value = args[i+1]
		}
		fmt.Fprintf(&b, " %v=%v", args[i], value)
	}
	return b.String()
}

// NopLogger is a logger that discards all log messages.
type NopLogger struct{}

// Printf implements Logger.Printf.
func (NopLogger) Printf(format string, v ...any) {}

// Debug implements StructuredLogger.Debug.
func (NopLogger) Debug(msg string, args ...any) {}

// Info implements StructuredLogger.Info.
func (NopLogger) Info(msg string, args ...any) {}

// Warn implements StructuredLogger.Warn.
func (NopLogger) Warn(msg string, args ...any) {}

// Error implements StructuredLogger.Error.
func (NopLogger) Error(msg string, args ...any) {}

var (
	_ Logger           = NopLogger{}
	_ StructuredLogger = NopLogger{}
)

// MaskCredential masks a credential string for safe logging, keeping only
// the last 4 characters visible.
//
//	MaskCredential("pk_live_1234567890") => "**************7890"
//	MaskCredential("abc") => "****c"
func MaskCredential(s string) string {
	const visibleSuffix = 4

	if s == "" {
		return ""
	}
	if len(s) <= visibleSuffix*2 {
		return "****" + s[len(s)-min(len(s)/2, visibleSuffix):]
	}
	return strings.Repeat("*", len(s)-visibleSuffix) + s[len(s)-visibleSuffix:]
}

// MaskAuthHeader masks an Authorization header value for safe logging.
func MaskAuthHeader(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return "Bearer ********"
	}
	return "********"
}

// SlogAdapter adapts a slog.Logger to the StructuredLogger interface.
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	client, _ := userstack.New(projectKey,
//	    userstack.WithStructuredLogger(userstack.NewSlogAdapter(logger)),
//	)
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter wrapping the given slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Debug implements StructuredLogger.Debug.
func (a *SlogAdapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}

// Info implements StructuredLogger.Info.
func (a *SlogAdapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

// Warn implements StructuredLogger.Warn.
func (a *SlogAdapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

// Error implements StructuredLogger.Error.
func (a *SlogAdapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}

// With returns a new SlogAdapter with the given attributes added.
func (a *SlogAdapter) With(args ...any) *SlogAdapter {
	return &SlogAdapter{logger: a.logger.With(args...)}
}

// LogrusAdapter adapts a logrus logger or entry to StructuredLogger.
// Key-value pairs become logrus fields.
type LogrusAdapter struct {
	logger logrus.FieldLogger
}

// NewLogrusAdapter wraps a logrus.FieldLogger. If logger is nil, the logrus
// standard logger is used.
func NewLogrusAdapter(logger logrus.FieldLogger) *LogrusAdapter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusAdapter{logger: logger}
}

// Debug implements StructuredLogger.Debug.
func (a *LogrusAdapter) Debug(msg string, args ...any) {
	a.logger.WithFields(logrusFields(args)).Debug(msg)
}

// Info implements StructuredLogger.Info.
func (a *LogrusAdapter) Info(msg string, args ...any) {
	a.logger.WithFields(logrusFields(args)).Info(msg)
}

// Warn implements StructuredLogger.Warn.
func (a *LogrusAdapter) Warn(msg string, args ...any) {
	a.logger.WithFields(logrusFields(args)).Warn(msg)
}

// Error implements StructuredLogger.Error.
func (a *LogrusAdapter) Error(msg string, args ...any) {
	a.logger.WithFields(logrusFields(args)).Error(msg)
}

func logrusFields(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 < len(args) {
			fields[key] = args[i+1]
		} else {
			fields[key] = nil
		}
	}
	return fields
}

var (
	_ StructuredLogger = (*SlogAdapter)(nil)
	_ StructuredLogger = (*LogrusAdapter)(nil)
)
