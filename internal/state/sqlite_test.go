package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapviz/internal/testutil"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleChart(owner, dataset, title string) BoardChart {
	return BoardChart{
		Owner:   owner,
		Dataset: dataset,
		Title:   title,
		Figure: core.Figure{
			Data:   []map[string]any{{"type": "bar", "x": []any{"a", "b"}, "y": []any{float64(1), float64(2)}}},
			Layout: map[string]any{"title": map[string]any{"text": title}},
		},
	}
}

func TestStore_OpenMigrates(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"preferences", "board_charts"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s", table)
		_ = rows.Close()
	}
}

func TestStore_OpenFileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, first.SavePreferences(ctx, "owner", core.DisplayPreferences{Theme: core.ThemeDark}))
	require.NoError(t, first.Close())

	second, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	assert.Equal(t, path, second.Path())

	prefs, err := second.Preferences(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, core.ThemeDark, prefs.Theme)
}

func TestStore_Preferences(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		save  *core.DisplayPreferences
		want  core.DisplayPreferences
		owner string
	}{
		{
			name:  "defaults when never saved",
			owner: "new",
			want:  core.DisplayPreferences{Theme: core.ThemeLight},
		},
		{
			name:  "saved values",
			owner: "a",
			save:  &core.DisplayPreferences{Theme: core.ThemeAuto, ChartHeight: core.ChartHeightLarge},
			want:  core.DisplayPreferences{Theme: core.ThemeAuto, ChartHeight: core.ChartHeightLarge},
		},
		{
			name:  "empty theme stored as light",
			owner: "b",
			save:  &core.DisplayPreferences{ChartHeight: core.ChartHeightSmall},
			want:  core.DisplayPreferences{Theme: core.ThemeLight, ChartHeight: core.ChartHeightSmall},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			if tt.save != nil {
				require.NoError(t, store.SavePreferences(ctx, tt.owner, *tt.save))
			}
			got, err := store.Preferences(ctx, tt.owner)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_PreferencesUpsert(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.SavePreferences(ctx, "a", core.DisplayPreferences{Theme: core.ThemeDark, ChartHeight: core.ChartHeightSmall}))
	require.NoError(t, store.SavePreferences(ctx, "a", core.DisplayPreferences{Theme: core.ThemeLight}))

	got, err := store.Preferences(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, core.DisplayPreferences{Theme: core.ThemeLight}, got)
}

func TestStore_PreferencesIgnoresCorruptValues(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.db.Exec(`INSERT INTO preferences (owner_id, theme, chart_height, updated_at) VALUES ('x', 'neon', 'huge', '')`)
	require.NoError(t, err)

	got, err := store.Preferences(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultDisplayPreferences(), got)
}

func TestStore_BoardLifecycle(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	first, err := store.PinChart(ctx, sampleChart("alice", "sales.csv", "Revenue"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, fixed, first.CreatedAt)

	withInterp := sampleChart("alice", "sales.csv", "")
	withInterp.Interpretation = &core.Interpretation{
		Config:        map[string]any{"title": "Monthly"},
		AppliedFilter: &core.TimeFilter{DateColumn: "order_date", Start: "2024-01-01"},
		Explanation:   "Summed by month",
	}
	second, err := store.PinChart(ctx, withInterp)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Position)

	_, err = store.PinChart(ctx, sampleChart("alice", "other.csv", "Other"))
	require.NoError(t, err)
	_, err = store.PinChart(ctx, sampleChart("bob", "sales.csv", "Bob's"))
	require.NoError(t, err)

	charts, err := store.BoardCharts(ctx, "alice", "sales.csv")
	require.NoError(t, err)
	require.Len(t, charts, 2)
	assert.Equal(t, first.ID, charts[0].ID)
	assert.Equal(t, "Revenue", charts[0].Figure.TitleText())
	assert.Nil(t, charts[0].Interpretation)
	assert.Equal(t, withInterp.Interpretation, charts[1].Interpretation)
	assert.Equal(t, fixed, charts[1].CreatedAt)

	all, err := store.BoardCharts(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.RemoveChart(ctx, "alice", first.ID))
	assert.ErrorIs(t, store.RemoveChart(ctx, "alice", first.ID), ErrChartNotFound)
	assert.ErrorIs(t, store.RemoveChart(ctx, "alice", "nope"), ErrChartNotFound)

	n, err := store.ClearBoard(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	charts, err = store.BoardCharts(ctx, "bob", "sales.csv")
	require.NoError(t, err)
	assert.Len(t, charts, 1, "other owners keep their board")

	empty, err := store.BoardCharts(ctx, "alice", "")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStore_NotOpen(t *testing.T) {
	ctx := context.Background()
	store := &Store{}

	_, err := store.Preferences(ctx, "a")
	assert.Error(t, err)
	assert.Error(t, store.SavePreferences(ctx, "a", core.DefaultDisplayPreferences()))
	_, err = store.PinChart(ctx, BoardChart{})
	assert.Error(t, err)
	_, err = store.BoardCharts(ctx, "a", "")
	assert.Error(t, err)
	assert.Error(t, store.RemoveChart(ctx, "a", "id"))
	_, err = store.ClearBoard(ctx, "a", "")
	assert.Error(t, err)
	assert.Error(t, store.Migrate(ctx))
	assert.NoError(t, store.Close())
}

func TestStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := NewWithDB(db, nil)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery("SELECT theme, chart_height FROM preferences").WithArgs("a").WillReturnError(boom)
	_, err = store.Preferences(ctx, "a")
	assert.ErrorIs(t, err, boom)

	mock.ExpectExec("INSERT INTO preferences").WillReturnError(boom)
	assert.ErrorIs(t, store.SavePreferences(ctx, "a", core.DefaultDisplayPreferences()), boom)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(0))
	mock.ExpectExec("INSERT INTO board_charts").WillReturnError(boom)
	mock.ExpectRollback()
	_, err = store.PinChart(ctx, sampleChart("a", "d", "t"))
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT id, owner_id").WillReturnRows(
		sqlmock.NewRows([]string{"id", "owner_id", "dataset", "title", "position", "figure_json", "interpretation_json", "created_at"}).
			AddRow("c1", "a", "d", "", 0, "{not json", nil, "2026-01-01T00:00:00Z"))
	_, err = store.BoardCharts(ctx, "a", "d")
	assert.ErrorContains(t, err, "failed to decode figure of chart c1")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LookupPreferences(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, found, err := store.LookupPreferences(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SavePreferences(ctx, "a", core.DefaultDisplayPreferences()))
	prefs, found, err := store.LookupPreferences(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, core.DefaultDisplayPreferences(), prefs)
}
