package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/accesskit/rolemanager/internal/db/models"
	"github.com/accesskit/rolemanager/internal/repository"
)

// memoryLogRepo captures database-channel writes; fail makes Append error.
type memoryLogRepo struct {
	entries []*models.LogEntry
	fail    bool
}

func (r *memoryLogRepo) Append(_ context.Context, entry *models.LogEntry) error {
	if r.fail {
		return errors.New("database unavailable")
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryLogRepo) Recent(_ context.Context, _ int) ([]models.LogEntry, error) {
	out := make([]models.LogEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out, nil
}

// newObservedLogger builds a logger with an observable console sink. repo must
// be an untyped nil for a console-only logger; a typed nil pointer would slip
// past the nil-repository guard.
func newObservedLogger(repo repository.LogRepository, console, db Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(repo,
		WithZapLogger(zap.New(core)),
		WithConsoleLevel(console),
		WithDBLevel(db),
	)
	return l, logs
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, LevelWarning, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLevelOrdering(t *testing.T) {
	ordered := []Level{LevelDebug, LevelInfo, LevelNotice, LevelWarning, LevelError, LevelCritical, LevelAlert, LevelFatal}
	for i := 1; i < len(ordered); i++ {
		assert.Less(t, ordered[i-1], ordered[i])
	}
}

func TestLogger_ConsoleThreshold(t *testing.T) {
	l, logs := newObservedLogger(nil, LevelWarning, LevelError)
	ctx := context.Background()

	l.Info(ctx, "below threshold", nil)
	l.Warning(ctx, "at threshold", nil)
	l.Critical(ctx, "above threshold", nil)

	assert.Equal(t, 0, logs.FilterMessage("below threshold").Len())
	assert.Equal(t, 1, logs.FilterMessage("at threshold").Len())
	assert.Equal(t, 1, logs.FilterMessage("above threshold").Len())
}

func TestLogger_ConsoleOnly_ForcedWriteDoesNotPanic(t *testing.T) {
	l, logs := newObservedLogger(nil, LevelDebug, LevelError)

	// With no database channel a forced write has nowhere to go; it must
	// still reach the console and must not dereference a nil repository.
	l.Log(context.Background(), LevelError, "forced without db", nil, true)

	assert.Equal(t, 1, logs.FilterMessage("forced without db").Len())
}

func TestLogger_DatabaseThresholdAndForce(t *testing.T) {
	repo := &memoryLogRepo{}
	l, _ := newObservedLogger(repo, LevelFatal, LevelError)
	ctx := context.Background()

	l.Warning(ctx, "filtered from db", nil)
	l.Error(ctx, "persisted", models.LogContext{"k": "v"})
	l.Log(ctx, LevelDebug, "forced", nil, true)

	require.Len(t, repo.entries, 2)
	assert.Equal(t, "error", repo.entries[0].Level)
	assert.Equal(t, "persisted", repo.entries[0].Message)
	assert.Equal(t, "debug", repo.entries[1].Level)
	assert.Equal(t, "forced", repo.entries[1].Message, "force_db bypasses the threshold")
}

func TestLogger_DatabaseFailureDegradesToConsole(t *testing.T) {
	repo := &memoryLogRepo{fail: true}
	l, logs := newObservedLogger(repo, LevelFatal, LevelError)

	// Must not panic or return anything; the entry is reported lost.
	l.Error(context.Background(), "doomed entry", nil)

	lost := logs.FilterMessage("log entry lost: database channel failed")
	require.Equal(t, 1, lost.Len())
}

func TestLogger_RuntimeLevelChange(t *testing.T) {
	l, logs := newObservedLogger(nil, LevelError, LevelFatal)
	ctx := context.Background()

	l.Notice(ctx, "dropped", nil)
	l.SetConsoleLevel(LevelDebug)
	l.Notice(ctx, "kept", nil)

	assert.Equal(t, 0, logs.FilterMessage("dropped").Len())
	assert.Equal(t, 1, logs.FilterMessage("kept").Len())
}
