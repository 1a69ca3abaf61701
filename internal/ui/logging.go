package ui

import (
	"fmt"
	"io"
	"os"
)

type Logger struct {
	Debug bool
	Out   io.Writer
}

func NewLogger(debug bool) *Logger {
	return &Logger{Debug: debug, Out: os.Stdout}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *Logger {
	return &Logger{Out: io.Discard}
}

func (l *Logger) Debugf(format string, args ...any) {
	if l != nil && l.Debug {
		l.printf("[DEBUG] "+format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	l.printf("[INFO] "+format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.printf("[WARN] "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.printf("[ERROR] "+format, args...)
}

func (l *Logger) printf(format string, args ...any) {
	if l == nil {
		return
	}

	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, format, args...)
}
