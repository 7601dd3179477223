// Package state persists per-owner display preferences and pinned board
// charts in a SQLite database. Resolved specs are never stored; the board
// keeps the figures the backend returned.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapviz/pkg/core"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

var errNotOpen = errors.New("database not opened")

// ErrChartNotFound is returned when a board chart does not exist for an owner.
var ErrChartNotFound = errors.New("board chart not found")

// BoardChart is a figure pinned to an owner's board.
type BoardChart struct {
	ID             string               `json:"id"`
	Owner          string               `json:"owner"`
	Dataset        string               `json:"dataset"`
	Title          string               `json:"title,omitempty"`
	Position       int                  `json:"position"`
	Figure         core.Figure          `json:"figure"`
	Interpretation *core.Interpretation `json:"interpretation,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// Store is the SQLite-backed state store.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every connection of an in-memory database is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := NewWithDB(db, logger)
	s.path = path
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("state store opened", slog.String("path", path))
	return s, nil
}

// NewWithDB wraps an already opened and migrated database.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// --- Preferences ---

// Preferences returns an owner's display preferences, or the defaults when
// the owner never saved any.
func (s *Store) Preferences(ctx context.Context, owner string) (core.DisplayPreferences, error) {
	prefs, _, err := s.LookupPreferences(ctx, owner)
	return prefs, err
}

// LookupPreferences is Preferences that also reports whether the owner
// ever saved preferences.
func (s *Store) LookupPreferences(ctx context.Context, owner string) (core.DisplayPreferences, bool, error) {
	if s.db == nil {
		return core.DisplayPreferences{}, false, errNotOpen
	}

	var theme, height string
	err := s.db.QueryRowContext(ctx,
		`SELECT theme, chart_height FROM preferences WHERE owner_id = ?`, owner,
	).Scan(&theme, &height)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultDisplayPreferences(), false, nil
	}
	if err != nil {
		return core.DisplayPreferences{}, false, fmt.Errorf("failed to get preferences: %w", err)
	}

	prefs := core.DefaultDisplayPreferences()
	if t, err := core.ParseTheme(theme); err == nil {
		prefs.Theme = t
	} else {
		s.logger.Warn("ignoring stored theme", slog.String("owner", owner), slog.String("theme", theme))
	}
	if h, err := core.ParseChartHeight(height); err == nil {
		prefs.ChartHeight = h
	} else {
		s.logger.Warn("ignoring stored chart height", slog.String("owner", owner), slog.String("chart_height", height))
	}
	return prefs, true, nil
}

// SavePreferences stores an owner's display preferences.
func (s *Store) SavePreferences(ctx context.Context, owner string, prefs core.DisplayPreferences) error {
	if s.db == nil {
		return errNotOpen
	}
	if prefs.Theme == "" {
		prefs.Theme = core.ThemeLight
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (owner_id, theme, chart_height, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET
		     theme = excluded.theme,
		     chart_height = excluded.chart_height,
		     updated_at = excluded.updated_at`,
		owner, string(prefs.Theme), string(prefs.ChartHeight), s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// --- Board ---

// PinChart appends a chart to the end of its owner's board for the dataset.
// ID, position and creation time are assigned by the store.
func (s *Store) PinChart(ctx context.Context, chart BoardChart) (*BoardChart, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	figJSON, err := json.Marshal(chart.Figure)
	if err != nil {
		return nil, fmt.Errorf("failed to encode figure: %w", err)
	}
	var interp sql.NullString
	if chart.Interpretation != nil {
		raw, err := json.Marshal(chart.Interpretation)
		if err != nil {
			return nil, fmt.Errorf("failed to encode interpretation: %w", err)
		}
		interp = sql.NullString{String: string(raw), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM board_charts WHERE owner_id = ? AND dataset = ?`,
		chart.Owner, chart.Dataset,
	).Scan(&next); err != nil {
		return nil, fmt.Errorf("failed to compute board position: %w", err)
	}

	chart.ID = uuid.New().String()
	chart.Position = next
	chart.CreatedAt = s.now().UTC()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO board_charts (id, owner_id, dataset, title, position, figure_json, interpretation_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		chart.ID, chart.Owner, chart.Dataset, chart.Title, chart.Position, string(figJSON), interp,
		chart.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("failed to pin chart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pinned chart: %w", err)
	}
	return &chart, nil
}

// BoardCharts returns an owner's pinned charts in board order. An empty
// dataset returns the charts of every dataset, grouped by dataset.
func (s *Store) BoardCharts(ctx context.Context, owner, dataset string) ([]BoardChart, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	query := `SELECT id, owner_id, dataset, title, position, figure_json, interpretation_json, created_at
		FROM board_charts WHERE owner_id = ?`
	args := []any{owner}
	if dataset != "" {
		query += ` AND dataset = ?`
		args = append(args, dataset)
	}
	query += ` ORDER BY dataset, position`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list board charts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	charts := []BoardChart{}
	for rows.Next() {
		var (
			c         BoardChart
			figJSON   string
			interp    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.Owner, &c.Dataset, &c.Title, &c.Position, &figJSON, &interp, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan board chart: %w", err)
		}
		if err := json.Unmarshal([]byte(figJSON), &c.Figure); err != nil {
			return nil, fmt.Errorf("failed to decode figure of chart %s: %w", c.ID, err)
		}
		if interp.Valid {
			c.Interpretation = &core.Interpretation{}
			if err := json.Unmarshal([]byte(interp.String), c.Interpretation); err != nil {
				return nil, fmt.Errorf("failed to decode interpretation of chart %s: %w", c.ID, err)
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			c.CreatedAt = t
		}
		charts = append(charts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list board charts: %w", err)
	}
	return charts, nil
}

// RemoveChart deletes one of an owner's board charts.
func (s *Store) RemoveChart(ctx context.Context, owner, id string) error {
	if s.db == nil {
		return errNotOpen
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM board_charts WHERE owner_id = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to remove chart: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrChartNotFound, id)
	}
	return nil
}

// ClearBoard deletes an owner's charts for a dataset, or all of them when
// dataset is empty. It returns the number of charts removed.
func (s *Store) ClearBoard(ctx context.Context, owner, dataset string) (int64, error) {
	if s.db == nil {
		return 0, errNotOpen
	}
	query := `DELETE FROM board_charts WHERE owner_id = ?`
	args := []any{owner}
	if dataset != "" {
		query += ` AND dataset = ?`
		args = append(args, dataset)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear board: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
