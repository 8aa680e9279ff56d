package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Logger writes leveled key=value lines. Components hold a child created
// with With so every line they emit carries their identifying fields, for
// example component=browser or artifact=<id>. Children share the parent's
// sink, so a single Logger can fan out across goroutines safely.
type Logger struct {
	sink   *log.Logger
	level  Level
	fields []interface{}
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (lv Level) String() string {
	switch lv {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "INFO"
	}
}

// New builds a Logger writing to stdout. Unknown level strings fall back
// to info rather than failing startup.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter is New with an explicit sink, used by tests to capture
// output.
func NewWithWriter(level string, w io.Writer) *Logger {
	return &Logger{
		sink:  log.New(w, "", 0),
		level: ParseLevel(level),
	}
}

func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// With returns a child Logger whose lines always carry the given key=value
// pairs ahead of per-call ones. The receiver is left untouched.
func (l *Logger) With(args ...interface{}) *Logger {
	if len(args) == 0 {
		return l
	}
	bound := make([]interface{}, 0, len(l.fields)+len(args))
	bound = append(bound, l.fields...)
	bound = append(bound, args...)
	return &Logger{sink: l.sink, level: l.level, fields: bound}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.emit(DEBUG, msg, args)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.emit(INFO, msg, args)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.emit(WARN, msg, args)
}

// Error takes the error as its own argument so call sites cannot forget
// it; it lands in the line as the trailing error=... pair.
func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.emit(ERROR, msg, args)
}

func (l *Logger) emit(level Level, msg string, args []interface{}) {
	if level < l.level {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", time.Now().UTC().Format("2006-01-02 15:04:05.000"), level, msg)

	if len(l.fields) > 0 || len(args) > 0 {
		b.WriteString(" |")
		writePairs(&b, l.fields)
		writePairs(&b, args)
	}

	l.sink.Println(b.String())
}

func writePairs(b *strings.Builder, args []interface{}) {
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(b, " %v=%v", args[i], args[i+1])
		} else {
			// Dangling key from a call site that dropped the value.
			fmt.Fprintf(b, " %v=(missing)", args[i])
		}
	}
}
