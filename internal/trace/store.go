package trace

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// maxSessions bounds the archive; older sessions are pruned with their runs.
const maxSessions = 500

// ErrNotFound is returned by reads for an unknown session or run.
var ErrNotFound = errors.New("trace: not found")

// Store archives turns and sub-agent spans to PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to a PostgreSQL trace database at connStr and applies
// pending migrations.
func Open(ctx context.Context, connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("trace open: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace ping: %w", err)
	}
	s, err := newStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newStore applies pending migrations to db and wraps it.
func newStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("trace migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), -1) FROM schema_version`).Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if err = applyMigration(ctx, db, i, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// applyMigration runs one migration and records its version in a single transaction.
func applyMigration(ctx context.Context, db *sql.DB, version int, stmt string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("migration %d: %w", version, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("migration %d record: %w", version, err)
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSession inserts the session on its first turn and prunes the oldest
// sessions beyond maxSessions.
func (s *Store) EnsureSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id NOT IN (SELECT id FROM sessions ORDER BY started_at DESC LIMIT $1)`,
		maxSessions,
	)
	return err
}

func (s *Store) CreateRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, session_id, started_at, message, status) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.SessionID, r.StartedAt.UTC(), r.Message, r.Status,
	)
	return err
}

func (s *Store) UpdateRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs
		 SET duration_ms = $1, response = $2, status = $3, input_tokens = $4, output_tokens = $5, estimated_cost = $6
		 WHERE id = $7`,
		r.DurationMs, r.Response, r.Status, r.InputTokens, r.OutputTokens, r.EstimatedCost, r.ID,
	)
	return err
}

func (s *Store) CreateSpan(ctx context.Context, sp Span) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spans (id, run_id, agent, label, started_at, duration_ms, input, output, summary, status, error_msg)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sp.ID, sp.RunID, sp.Agent, sp.Label, sp.StartedAt.UTC(),
		sp.DurationMs, sp.Input, sp.Output, sp.Summary, sp.Status, sp.Error,
	)
	return err
}

// ListSessions returns sessions newest first with run counts, plus the total.
func (s *Store) ListSessions(ctx context.Context, limit, offset int) ([]SessionRecord, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.started_at, COUNT(r.id) AS run_count
		FROM sessions s
		LEFT JOIN runs r ON r.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions := []SessionRecord{}
	for rows.Next() {
		var sess SessionRecord
		if err = rows.Scan(&sess.ID, &sess.StartedAt, &sess.RunCount); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, total, rows.Err()
}

// GetSession returns one session with its runs in turn order.
func (s *Store) GetSession(ctx context.Context, id string) (*SessionRecord, []Run, error) {
	var sess SessionRecord
	err := s.db.QueryRowContext(ctx, `SELECT id, started_at FROM sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.StartedAt)
	if err != nil {
		return nil, nil, notFound(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.session_id, r.started_at, r.duration_ms, r.message, r.response, r.status,
		       r.input_tokens, r.output_tokens, r.estimated_cost, COUNT(sp.id) AS span_count
		FROM runs r
		LEFT JOIN spans sp ON sp.run_id = r.id
		WHERE r.session_id = $1
		GROUP BY r.id
		ORDER BY r.started_at ASC
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err = rows.Scan(&r.ID, &r.SessionID, &r.StartedAt, &r.DurationMs, &r.Message, &r.Response, &r.Status,
			&r.InputTokens, &r.OutputTokens, &r.EstimatedCost, &r.SpanCount); err != nil {
			return nil, nil, err
		}
		runs = append(runs, r)
	}
	sess.RunCount = len(runs)
	return &sess, runs, rows.Err()
}

// GetRun returns one run of a session with its spans in call order.
func (s *Store) GetRun(ctx context.Context, sessionID, runID string) (*Run, []Span, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, started_at, duration_ms, message, response, status,
		        input_tokens, output_tokens, estimated_cost
		 FROM runs WHERE id = $1 AND session_id = $2`,
		runID, sessionID,
	).Scan(&r.ID, &r.SessionID, &r.StartedAt, &r.DurationMs, &r.Message, &r.Response, &r.Status,
		&r.InputTokens, &r.OutputTokens, &r.EstimatedCost)
	if err != nil {
		return nil, nil, notFound(err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, agent, label, started_at, duration_ms, input, output, summary, status, error_msg
		 FROM spans WHERE run_id = $1 ORDER BY started_at ASC`,
		runID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	spans := []Span{}
	for rows.Next() {
		var sp Span
		if err = rows.Scan(&sp.ID, &sp.RunID, &sp.Agent, &sp.Label, &sp.StartedAt, &sp.DurationMs,
			&sp.Input, &sp.Output, &sp.Summary, &sp.Status, &sp.Error); err != nil {
			return nil, nil, err
		}
		spans = append(spans, sp)
	}
	r.SpanCount = len(spans)
	return &r, spans, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
