package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

// SQLite stores each run as a JSON document keyed by id.
type SQLite struct {
	db *sql.DB
}

// CurrentSchemaVersion is the schema version recorded in the meta table.
const CurrentSchemaVersion = 1

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("mkdir", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLiteInMemory opens a private in-memory database (for testing).
func OpenSQLiteInMemory() (*SQLite, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every pooled connection would get its own empty database.
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			template_id TEXT NOT NULL,
			document_id TEXT NOT NULL,
			status TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprint(CurrentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, id string) (*fillrun.FillRun, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM runs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("run", id)
	}
	if err != nil {
		return nil, errors.WrapResource("load", "run", id, err)
	}
	return decodeRun(id, data)
}

// Put implements Store.
func (s *SQLite) Put(ctx context.Context, run *fillrun.FillRun) error {
	if err := checkRun(run); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return errors.WrapResource("encode", "run", run.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, template_id, document_id, status, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			template_id = excluded.template_id,
			document_id = excluded.document_id,
			status = excluded.status,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		run.ID, run.TemplateID, run.DocumentID, string(run.Status), string(data), run.UpdatedAt.Unix(),
	)
	if err != nil {
		return errors.WrapResource("save", "run", run.ID, err)
	}
	return nil
}

// List implements Store. Runs are ordered by id.
func (s *SQLite) List(ctx context.Context) ([]*fillrun.FillRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM runs ORDER BY id`)
	if err != nil {
		return nil, errors.WrapResource("list", "run", "", err)
	}
	defer rows.Close()

	var out []*fillrun.FillRun
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, errors.WrapResource("list", "run", "", err)
		}
		run, err := decodeRun(id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return errors.WrapResource("delete", "run", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("run", id)
	}
	return nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func decodeRun(id, data string) (*fillrun.FillRun, error) {
	var run fillrun.FillRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, errors.NewParseError("json", "", fmt.Sprintf("run %s: %v", id, err), err)
	}
	return &run, nil
}
