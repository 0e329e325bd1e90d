// Package logging implements the rolemanager log contract: two independently
// filtered channels, one writing to standard error through a zap console
// core and one appending to the role_manager_logs table.
//
// Failures in either channel never propagate to the caller. A database write
// failure degrades to an error entry on the console channel; correctness of
// the engine must not depend on logging.
package logging

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/accesskit/rolemanager/internal/db/models"
	"github.com/accesskit/rolemanager/internal/repository"
)

// Logger fans log entries out to the console and database channels.
// It is safe for concurrent use.
type Logger struct {
	mu           sync.RWMutex
	consoleLevel Level
	dbLevel      Level

	console *zap.Logger
	repo    repository.LogRepository // nil disables the database channel
}

// Option configures a Logger.
type Option func(*Logger)

// WithConsoleLevel sets the initial console threshold.
func WithConsoleLevel(level Level) Option {
	return func(l *Logger) { l.consoleLevel = level }
}

// WithDBLevel sets the initial database threshold.
func WithDBLevel(level Level) Option {
	return func(l *Logger) { l.dbLevel = level }
}

// WithZapLogger replaces the console sink, mainly for tests.
func WithZapLogger(z *zap.Logger) Option {
	return func(l *Logger) { l.console = z }
}

// New creates a Logger. repo may be nil, in which case only the console
// channel is active (including forced database writes, which then degrade to
// console output).
func New(repo repository.LogRepository, opts ...Option) *Logger {
	l := &Logger{
		consoleLevel: LevelWarning,
		dbLevel:      LevelError,
		repo:         repo,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.console == nil {
		l.console = newConsoleLogger()
	}
	return l
}

func newConsoleLogger() *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stderr),
		zapcore.DebugLevel, // filtering happens against the rolemanager level
	)
	return zap.New(core)
}

// SetConsoleLevel changes the console threshold.
func (l *Logger) SetConsoleLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consoleLevel = level
}

// SetDBLevel changes the database threshold.
func (l *Logger) SetDBLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dbLevel = level
}

// Log writes one entry. logCtx may be nil. forceDB bypasses the database
// threshold (but not a nil repository).
func (l *Logger) Log(ctx context.Context, level Level, msg string, logCtx models.LogContext, forceDB bool) {
	l.mu.RLock()
	consoleLevel, dbLevel := l.consoleLevel, l.dbLevel
	l.mu.RUnlock()

	if level >= consoleLevel {
		l.writeConsole(level, msg, logCtx)
	}
	if l.repo != nil && (forceDB || level >= dbLevel) {
		entry := &models.LogEntry{
			Level:   level.String(),
			Message: msg,
			Context: logCtx,
		}
		if err := l.repo.Append(ctx, entry); err != nil {
			l.writeConsole(LevelError, "log entry lost: database channel failed",
				models.LogContext{"error": err.Error(), "dropped_message": msg})
		}
	}
}

func (l *Logger) writeConsole(level Level, msg string, logCtx models.LogContext) {
	fields := make([]zap.Field, 0, len(logCtx)+1)
	fields = append(fields, zap.String("severity", level.String()))
	for k, v := range logCtx {
		fields = append(fields, zap.Any(k, v))
	}
	if ce := l.console.Check(level.zapLevel(), msg); ce != nil {
		ce.Write(fields...)
	}
}

// Per-level convenience methods. None of them force the database channel.

func (l *Logger) Debug(ctx context.Context, msg string, logCtx models.LogContext) {
	l.Log(ctx, LevelDebug, msg, logCtx, false)
}

func (l *Logger) Info(ctx context.Context, msg string, logCtx models.LogContext) {
	l.Log(ctx, LevelInfo, msg, logCtx, false)
}

func (l *Logger) Notice(ctx context.Context, msg string, logCtx models.LogContext) {
	l.Log(ctx, LevelNotice, msg, logCtx, false)
}

func (l *Logger) Warning(ctx context.Context, msg string, logCtx models.LogContext) {
	l.Log(ctx, LevelWarning, msg, logCtx, false)
}

func (l *Logger) Error(ctx context.Context, msg string, logCtx models.LogContext) {
	l.Log(ctx, LevelError, msg, logCtx, false)
}

func (l *Logger) Critical(ctx context.Context, msg string, logCtx models.LogContext) {
	l.Log(ctx, LevelCritical, msg, logCtx, false)
}

func (l *Logger) Alert(ctx context.Context, msg string, logCtx models.LogContext) {
	l.Log(ctx, LevelAlert, msg, logCtx, false)
}

func (l *Logger) Fatal(ctx context.Context, msg string, logCtx models.LogContext) {
	l.Log(ctx, LevelFatal, msg, logCtx, false)
}
