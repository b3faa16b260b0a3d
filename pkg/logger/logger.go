package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Leveled logger shared by the client, the CLI and the mock backend.
// Messages below the configured level are dropped. Callers must never pass
// bearer or CSRF tokens; log lengths or presence flags instead.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

var (
	mu     sync.RWMutex
	out    *log.Logger = log.New(os.Stderr, "", 0)
	level  Level       = LevelInfo
	prefix string
)

// ParseLevel maps a case-insensitive name to a Level. Unknown names map to Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return LevelInfo
}

// Init sets the global log level. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(l)
}

// SetOutput redirects log output; used by the CLI (--log-file) and tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = log.New(w, "", 0)
}

// SetComponent tags every line with the given component name, e.g. "devserver".
func SetComponent(name string) {
	mu.Lock()
	defer mu.Unlock()
	prefix = name
}

func emit(l Level, format string, v ...interface{}) {
	mu.RLock()
	if l < level {
		mu.RUnlock()
		return
	}
	lg, comp := out, prefix
	mu.RUnlock()

	head := time.Now().Format(time.RFC3339) + " [" + strings.ToUpper(levelNames[l]) + "] "
	if comp != "" {
		head += comp + ": "
	}
	lg.Print(head + fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) { emit(LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { emit(LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { emit(LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { emit(LevelError, format, v...) }

func Fatalf(format string, v ...interface{}) {
	emit(LevelFatal, format, v...)
	os.Exit(1)
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	return levelNames[level]
}
