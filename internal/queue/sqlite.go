package queue

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"lovelist/internal/model"
	"lovelist/internal/storage"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const stateFileName = "state.db"

// SQLiteState implements Queue and Cache on one sqlite file.
type SQLiteState struct {
	db   *sql.DB
	dir  string
	path string
	now  func() time.Time
}

var (
	_ Queue       = (*SQLiteState)(nil)
	_ Cache       = (*SQLiteState)(nil)
	_ FlushLocker = (*SQLiteState)(nil)
)

// Open initializes or connects to the state database in dir and applies migrations.
func Open(ctx context.Context, dir string) (*SQLiteState, error) {
	if err := storage.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}

	dbPath := filepath.Join(dir, stateFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps transactions and pragmas on the same handle.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = FULL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLiteState{db: db, dir: dir, path: dbPath, now: time.Now}
	if err := s.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteState) Path() string {
	return s.path
}

// TryLockFlush takes the replay lock on the state directory. Every handle on
// the directory, in this process or another, contends for the same lock.
func (s *SQLiteState) TryLockFlush() (func() error, bool, error) {
	lock, err := storage.LockDir(s.dir)
	if errors.Is(err, storage.ErrLocked) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return lock.Unlock, true, nil
}

func (s *SQLiteState) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteState) Enqueue(ctx context.Context, op model.Operation) (model.Operation, error) {
	if _, ok := model.ParseMethod(string(op.Method)); !ok {
		return model.Operation{}, fmt.Errorf("enqueue: method %q cannot be queued", op.Method)
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.EnqueuedAt == 0 {
		op.EnqueuedAt = s.now().UnixMilli()
	}

	var body sql.NullString
	if op.Body != nil {
		body = sql.NullString{String: *op.Body, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_ops (op_id, path, method, body, enqueued_at) VALUES (?, ?, ?, ?, ?)`,
		op.ID, op.Path, string(op.Method), body, op.EnqueuedAt,
	)
	if err != nil {
		return model.Operation{}, fmt.Errorf("insert operation: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return model.Operation{}, fmt.Errorf("last insert id: %w", err)
	}
	op.Seq = seq
	return op, nil
}

func (s *SQLiteState) PeekAll(ctx context.Context) ([]model.Operation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, op_id, path, method, body, enqueued_at FROM pending_ops ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var ops []model.Operation
	for rows.Next() {
		var (
			op     model.Operation
			method string
			body   sql.NullString
		)
		if err := rows.Scan(&op.Seq, &op.ID, &op.Path, &method, &body, &op.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		op.Method = model.Method(method)
		if body.Valid {
			b := body.String
			op.Body = &b
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteState) DrainAll(ctx context.Context, throughSeq int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin drain tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_ops WHERE seq <= ?`, throughSeq); err != nil {
		return fmt.Errorf("drain operations: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit drain: %w", err)
	}
	return nil
}

func (s *SQLiteState) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM pending_ops`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return n, nil
}

func (s *SQLiteState) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM read_cache WHERE cache_key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	return body, true, nil
}

func (s *SQLiteState) Put(ctx context.Context, key string, body []byte) error {
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO read_cache (cache_key, body, stored_at) VALUES (?, ?, ?)
         ON CONFLICT(cache_key) DO UPDATE SET body = excluded.body, stored_at = excluded.stored_at`,
		key, body, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteState) applyMigrations(ctx context.Context) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}
