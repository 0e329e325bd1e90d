package rolemanager

import (
	"context"
)

// LogsManager reads the database log channel.
type LogsManager struct {
	core *core
}

// Recent returns the newest entries from the database log channel, newest
// first. limit <= 0 returns the default page of 100.
func (m *LogsManager) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	entries, err := m.core.repos.Logs.Recent(ctx, limit)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]LogEntry, len(entries))
	for i := range entries {
		out[i] = *toLogEntry(&entries[i])
	}
	return out, nil
}
