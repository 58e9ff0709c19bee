package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"shiftd/internal/automation"
	logx "shiftd/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Create(ctx context.Context, rec automation.Record, maxPerOwner int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var taken int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM automations WHERE owner_id = ? AND name = ?`,
		rec.OwnerID, rec.Spec.Name,
	).Scan(&taken)
	if err != nil {
		return err
	}
	if taken > 0 {
		return ErrNameTaken
	}

	if maxPerOwner > 0 {
		var owned int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM automations WHERE owner_id = ?`, rec.OwnerID,
		).Scan(&owned)
		if err != nil {
			return err
		}
		if owned >= maxPerOwner {
			return ErrQuotaExceeded
		}
	}

	specJSON, statsJSON, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO automations(id, owner_id, name, status, supervisor, spec, stats, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.OwnerID, rec.Spec.Name, string(rec.Status), rec.Supervisor,
		specJSON, statsJSON,
		rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) Get(ctx context.Context, id string) (automation.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, status, supervisor, spec, stats, created_at, updated_at
		 FROM automations WHERE id = ?`, id)
	return scanRecord(row)
}

func (s *sqliteStore) ListByOwner(ctx context.Context, ownerID string) ([]automation.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, status, supervisor, spec, stats, created_at, updated_at
		 FROM automations WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func (s *sqliteStore) ListScheduled(ctx context.Context) ([]automation.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, status, supervisor, spec, stats, created_at, updated_at
		 FROM automations WHERE status = ? ORDER BY created_at, id`, string(automation.StatusActive))
	if err != nil {
		return nil, err
	}
	recs, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	// The schedule lives inside the spec blob, so filter after decoding.
	out := recs[:0]
	for _, r := range recs {
		if r.Scheduled() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *sqliteStore) Update(ctx context.Context, rec automation.Record) error {
	specJSON, statsJSON, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE automations SET name=?, status=?, supervisor=?, spec=?, stats=?, updated_at=? WHERE id=?`,
		rec.Spec.Name, string(rec.Status), rec.Supervisor, specJSON, statsJSON,
		rec.UpdatedAt.Format(time.RFC3339Nano), rec.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM automations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM runs WHERE automation_id = ?`, id)
	return err
}

func (s *sqliteStore) AppendRun(ctx context.Context, run automation.RunRecord) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs(execution_id, automation_id, status, record) VALUES(?,?,?,?)`,
		run.ExecutionID, run.AutomationID, string(run.Status), string(b),
	)
	return err
}

func (s *sqliteStore) History(ctx context.Context, automationID string, limit int) ([]automation.RunRecord, error) {
	q := `SELECT record FROM runs WHERE automation_id = ? ORDER BY seq DESC`
	args := []any{automationID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []automation.RunRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var run automation.RunRecord
		if err := json.Unmarshal([]byte(raw), &run); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func encodeRecord(rec automation.Record) (spec, stats string, err error) {
	sb, err := json.Marshal(rec.Spec)
	if err != nil {
		return "", "", err
	}
	tb, err := json.Marshal(rec.Stats)
	if err != nil {
		return "", "", err
	}
	return string(sb), string(tb), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (automation.Record, error) {
	var (
		rec                  automation.Record
		status               string
		specJSON, statsJSON  string
		createdAt, updatedAt string
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &status, &rec.Supervisor, &specJSON, &statsJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return automation.Record{}, ErrNotFound
	}
	if err != nil {
		return automation.Record{}, err
	}
	rec.Status = automation.Status(status)
	if err := json.Unmarshal([]byte(specJSON), &rec.Spec); err != nil {
		return automation.Record{}, err
	}
	if err := json.Unmarshal([]byte(statsJSON), &rec.Stats); err != nil {
		return automation.Record{}, err
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return automation.Record{}, err
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return automation.Record{}, err
	}
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]automation.Record, error) {
	defer rows.Close()
	var out []automation.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
