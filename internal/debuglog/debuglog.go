// Package debuglog adds levels to the standard logger.
package debuglog

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

type Level uint8

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelVerbose
	LevelTrace

	// UseGlobal as a local level defers to the process-wide level.
	UseGlobal Level = 255
)

var globalLevel atomic.Uint32

func init() {
	globalLevel.Store(uint32(LevelVerbose))
}

// SetLevel changes the process-wide level. Safe for concurrent use.
func SetLevel(l Level) {
	globalLevel.Store(uint32(l))
}

// CurrentLevel returns the process-wide level.
func CurrentLevel() Level {
	return Level(globalLevel.Load())
}

// ParseLevel maps a level name to a Level. Unknown names select LevelVerbose.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return LevelTrace
	case "verbose", "debug":
		return LevelVerbose
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "off":
		return LevelOff
	default:
		return LevelVerbose
	}
}

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelVerbose:
		return "verbose"
	case LevelTrace:
		return "trace"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// Log writes "[prefix] message" when level passes local, or the global level
// when local is UseGlobal.
func Log(prefix string, level Level, local Level, format string, args ...interface{}) {
	if !ShouldLog(level, local) {
		return
	}
	message := fmt.Sprintf(format, args...)
	if prefix != "" {
		log.Printf("[%s] %s", prefix, message)
	} else {
		log.Print(message)
	}
}

func ShouldLog(level Level, local Level) bool {
	effective := CurrentLevel()
	if local != UseGlobal {
		effective = local
	}
	return level <= effective
}

func ErrorLog(format string, args ...interface{}) {
	Log("ERROR", LevelError, UseGlobal, format, args...)
}

func WarnLog(format string, args ...interface{}) {
	Log("WARN", LevelWarn, UseGlobal, format, args...)
}

func InfoLog(format string, args ...interface{}) {
	Log("INFO", LevelInfo, UseGlobal, format, args...)
}

func DebugLog(format string, args ...interface{}) {
	Log("DEBUG", LevelVerbose, UseGlobal, format, args...)
}

// NewWriter returns a writer that logs each write as one message at level,
// for libraries that report through a *log.Logger.
func NewWriter(prefix string, level Level) io.Writer {
	return levelWriter{prefix: prefix, level: level}
}

type levelWriter struct {
	prefix string
	level  Level
}

func (w levelWriter) Write(p []byte) (int, error) {
	Log(w.prefix, w.level, UseGlobal, "%s", strings.TrimRight(string(p), "\r\n"))
	return len(p), nil
}
