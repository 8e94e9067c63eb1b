package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/league/internal/domain/model"
	"github.com/okian/league/internal/domain/rating"
	"github.com/okian/league/pkg/logger"
	"github.com/okian/league/pkg/metrics"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS competitors (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	name  TEXT    NOT NULL UNIQUE,
	mu    REAL    NOT NULL,
	sigma REAL    NOT NULL,
	kind  TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS match_records (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT    NOT NULL,
	challenger_id INTEGER NOT NULL REFERENCES competitors(id),
	defender_id   INTEGER NOT NULL REFERENCES competitors(id),
	wins          INTEGER NOT NULL,
	draws         INTEGER NOT NULL,
	losses        INTEGER NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_records_challenger ON match_records(challenger_id);
`

// SQLiteStore is the durable Registry backed by a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	cfg settings
}

var _ Registry = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorage, path, err)
	}
	// one connection: the scheduler is the only writer and :memory: databases are per-connection
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, cfg: newSettings(opts)}
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			s.cfg.logger.Warn(ctx, "sqlite pragma failed", logger.String("pragma", pragma), logger.Error(err))
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", ErrStorage, err)
	}
	s.cfg.logger.Debug(ctx, "sqlite registry opened", logger.String("path", path))
	return s, nil
}

// Upsert implements Registry.Upsert.
func (s *SQLiteStore) Upsert(ctx context.Context, c model.Competitor) (model.Competitor, bool, error) {
	if err := validateCompetitor(c); err != nil {
		return model.Competitor{}, false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO competitors(name, mu, sigma, kind) VALUES(?, ?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		c.Name, c.Rating.Mu, c.Rating.Sigma, string(c.Kind))
	if err != nil {
		return model.Competitor{}, false, fmt.Errorf("%w: upsert %s: %w", ErrStorage, c.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Competitor{}, false, fmt.Errorf("%w: upsert %s: %w", ErrStorage, c.Name, err)
	}
	stored, err := s.Get(ctx, c.Name)
	if err != nil {
		return model.Competitor{}, false, err
	}
	if n > 0 {
		if count, err := s.Count(ctx); err == nil {
			metrics.UpdateCompetitors(count)
		}
	}
	return stored, n > 0, nil
}

// Get implements Registry.Get.
func (s *SQLiteStore) Get(ctx context.Context, name string) (model.Competitor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT name, mu, sigma, kind FROM competitors WHERE name = ?`, name)
	c, err := scanCompetitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Competitor{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return model.Competitor{}, fmt.Errorf("%w: get %s: %w", ErrStorage, name, err)
	}
	return c, nil
}

// List implements Registry.List.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Competitor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, mu, sigma, kind FROM competitors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Competitor
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list: %w", ErrStorage, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrStorage, err)
	}
	return out, nil
}

// HasHistory implements Registry.HasHistory.
func (s *SQLiteStore) HasHistory(ctx context.Context) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM match_records)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: has history: %w", ErrStorage, err)
	}
	return exists == 1, nil
}

// CommitBatch implements Registry.CommitBatch inside one transaction.
func (s *SQLiteStore) CommitBatch(ctx context.Context, challenger, defender model.Competitor, rec model.MatchRecord) (model.MatchRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRegistryCommitLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := validateBatch(challenger, defender, rec); err != nil {
		return model.MatchRecord{}, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.cfg.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("%w: begin: %w", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, 2)
	for i, c := range []model.Competitor{challenger, defender} {
		err := tx.QueryRowContext(ctx,
			`UPDATE competitors SET mu = ?, sigma = ? WHERE name = ? RETURNING id`,
			c.Rating.Mu, c.Rating.Sigma, c.Name).Scan(&ids[i])
		if errors.Is(err, sql.ErrNoRows) {
			return model.MatchRecord{}, fmt.Errorf("%w: %s", ErrNotFound, c.Name)
		}
		if err != nil {
			return model.MatchRecord{}, fmt.Errorf("%w: rate %s: %w", ErrStorage, c.Name, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO match_records(run_id, challenger_id, defender_id, wins, draws, losses, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, ids[0], ids[1], rec.Wins, rec.Draws, rec.Losses, rec.CreatedAt.UnixNano())
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("%w: append record: %w", ErrStorage, err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return model.MatchRecord{}, fmt.Errorf("%w: append record: %w", ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return model.MatchRecord{}, fmt.Errorf("%w: commit: %w", ErrStorage, err)
	}
	return rec, nil
}

// History implements Registry.History.
func (s *SQLiteStore) History(ctx context.Context, name string) ([]model.MatchRecord, error) {
	if _, err := s.Get(ctx, name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.run_id, c.name, d.name, m.wins, m.draws, m.losses, m.created_at
		FROM match_records m
		JOIN competitors c ON c.id = m.challenger_id
		JOIN competitors d ON d.id = m.defender_id
		WHERE c.name = ?
		ORDER BY m.id`, name)
	if err != nil {
		return nil, fmt.Errorf("%w: history %s: %w", ErrStorage, name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.MatchRecord
	for rows.Next() {
		var (
			r       model.MatchRecord
			created int64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Challenger, &r.Defender, &r.Wins, &r.Draws, &r.Losses, &created); err != nil {
			return nil, fmt.Errorf("%w: history %s: %w", ErrStorage, name, err)
		}
		r.CreatedAt = time.Unix(0, created)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: history %s: %w", ErrStorage, name, err)
	}
	return out, nil
}

// Standings implements Registry.Standings.
func (s *SQLiteStore) Standings(ctx context.Context, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRegistryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, mu, sigma, kind FROM competitors
		ORDER BY (mu - 3 * sigma) DESC, name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: standings: %w", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: standings: %w", ErrStorage, err)
		}
		out = append(out, Entry{Competitor: c, Score: c.Rating.Conservative()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: standings: %w", ErrStorage, err)
	}
	assignRanksWithTies(out)
	return out, nil
}

// Count implements Registry.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM competitors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrStorage, err)
	}
	return n, nil
}

// Close implements Registry.Close.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompetitor(row scanner) (model.Competitor, error) {
	var (
		c    model.Competitor
		r    rating.Rating
		kind string
	)
	if err := row.Scan(&c.Name, &r.Mu, &r.Sigma, &kind); err != nil {
		return model.Competitor{}, err
	}
	c.Rating = r
	c.Kind = model.Kind(kind)
	return c, nil
}
