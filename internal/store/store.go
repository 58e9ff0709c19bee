// Package store persists automation records and their run history behind a
// repository interface, so the engine can run against a fake in tests and a
// real datastore in production without touching business logic.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shiftd/internal/automation"
	logx "shiftd/pkg/logx"
)

var (
	ErrNotFound      = errors.New("automation not found")
	ErrNameTaken     = errors.New("automation name already in use")
	ErrQuotaExceeded = errors.New("automation quota exceeded")
)

// Config configures storage.
//
// Driver values:
//   - "memory": in-process store (default)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the authoritative automation repository. Implementations must
// serialize writes: Create enforces the per-owner quota and name uniqueness
// atomically, so concurrent creations cannot race past either limit.
type Store interface {
	Create(ctx context.Context, rec automation.Record, maxPerOwner int) error
	Get(ctx context.Context, id string) (automation.Record, error)
	ListByOwner(ctx context.Context, ownerID string) ([]automation.Record, error)
	// ListScheduled returns active records that carry a schedule.
	ListScheduled(ctx context.Context) ([]automation.Record, error)
	Update(ctx context.Context, rec automation.Record) error
	Delete(ctx context.Context, id string) error

	// AppendRun appends to an automation's history in completion order.
	AppendRun(ctx context.Context, run automation.RunRecord) error
	// History returns runs newest-first, capped at limit (<=0 means all).
	History(ctx context.Context, automationID string, limit int) ([]automation.RunRecord, error)

	Close() error
}

// Open builds a store for the configured driver.
func Open(cfg Config, log logx.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
