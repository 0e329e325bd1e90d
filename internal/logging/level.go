package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is the rolemanager log severity. Levels are ordered; a sink with
// threshold T emits every entry at level >= T.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelNotice
	LevelWarning
	LevelError
	LevelCritical
	LevelAlert
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug:    "debug",
	LevelInfo:     "info",
	LevelNotice:   "notice",
	LevelWarning:  "warning",
	LevelError:    "error",
	LevelCritical: "critical",
	LevelAlert:    "alert",
	LevelFatal:    "fatal",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int8(l))
}

// ParseLevel converts a level name to a Level. Matching is case-insensitive.
func ParseLevel(s string) (Level, error) {
	for level, name := range levelNames {
		if strings.EqualFold(s, name) {
			return level, nil
		}
	}
	return LevelDebug, fmt.Errorf("unknown log level %q", s)
}

// zapLevel maps a rolemanager level onto the nearest zap level for the
// console encoder. The original level name travels alongside as a field, so
// the mapping is display-only and lossless in the output.
func (l Level) zapLevel() zapcore.Level {
	switch {
	case l <= LevelDebug:
		return zapcore.DebugLevel
	case l <= LevelNotice:
		return zapcore.InfoLevel
	case l == LevelWarning:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
