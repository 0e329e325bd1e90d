package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// LogContext is an optional structured payload attached to a log entry.
type LogContext map[string]any

// Scan implements sql.Scanner for reading from database
func (lc *LogContext) Scan(value any) error {
	if value == nil {
		*lc = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan LogContext: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(bytes, lc)
}

// Value implements driver.Valuer for writing to database
func (lc LogContext) Value() (driver.Value, error) {
	if lc == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(lc)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// LogEntry is an append-only record in the database log channel.
type LogEntry struct {
	bun.BaseModel `bun:"table:role_manager_logs,alias:l"`

	ID        int64      `bun:"id,pk,autoincrement"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	Level     string     `bun:"level,notnull"`
	Message   string     `bun:"message,notnull"`
	Context   LogContext `bun:"context,type:jsonb"`
}
