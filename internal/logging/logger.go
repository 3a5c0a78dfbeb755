package logging

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
)

// Logger is the executor's leveled logger. Every sublogger shares the
// root's level and output destination; only the prefix differs. It is
// safe for concurrent use, matching the single logger instance handed
// down through the executor's components.
type Logger struct {
	level  Level
	prefix string
	target *log.Logger
}

// NewRoot creates a new root logger at the given level, writing to
// standard error.
func NewRoot(level Level) *Logger {
	return &Logger{
		level:  level,
		target: log.New(os.Stderr, "", log.LstdFlags),
	}
}

// Sublogger creates a new logger with the given name appended to the
// current prefix. It shares its parent's level and output target.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{
		level:  l.level,
		prefix: prefix,
		target: l.target,
	}
}

// Level reports the logger's configured level.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelError
	}
	return l.level
}

func (l *Logger) enabled(level Level) bool {
	return l != nil && l.level >= level
}

func (l *Logger) emit(level Level, line string) {
	tag := level.String()
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s: %s", l.prefix, tag, line)
	} else {
		line = fmt.Sprintf("%s: %s", tag, line)
	}
	l.target.Output(3, line)
}

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.enabled(LevelError) {
		l.emit(LevelError, color.RedString(fmt.Sprintf(format, v...)))
	}
}

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.enabled(LevelWarn) {
		l.emit(LevelWarn, color.YellowString(fmt.Sprintf(format, v...)))
	}
}

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.emit(LevelInfo, fmt.Sprintf(format, v...))
	}
}

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.emit(LevelDebug, fmt.Sprintf(format, v...))
	}
}

// Tracef logs at LevelTrace.
func (l *Logger) Tracef(format string, v ...interface{}) {
	if l.enabled(LevelTrace) {
		l.emit(LevelTrace, fmt.Sprintf(format, v...))
	}
}
