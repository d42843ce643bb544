package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wcatz/dashboard-grid/internal/grid"
)

func testWidgets() []grid.Widget {
	return []grid.Widget{
		{ID: "clock", Kind: "clock", Position: grid.Position{Column: 0, Row: 0}, Size: grid.Size{Width: 2, Height: 2}},
		{ID: "notes", Kind: "notes", Position: grid.Position{Column: 2, Row: 0}, Size: grid.Size{Width: 4, Height: 3},
			MinSize: &grid.Size{Width: 2, Height: 2}, MaxSize: &grid.Size{Width: 8, Height: 6}},
		{ID: "timer", Kind: "timer", Position: grid.Position{Column: 0, Row: 2}, Size: grid.Size{Width: 2, Height: 1}},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, w := range testWidgets() {
		require.NoError(t, s.Save(ctx, w))
	}
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, testWidgets(), got)

	// update keeps insertion order
	moved := testWidgets()[0]
	moved.Position = grid.Position{Column: 6, Row: 4}
	require.NoError(t, s.Save(ctx, moved))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "clock", got[0].ID)
	assert.Equal(t, grid.Position{Column: 6, Row: 4}, got[0].Position)

	require.NoError(t, s.Delete(ctx, "notes"))
	assert.ErrorIs(t, s.Delete(ctx, "notes"), ErrNotFound)
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "timer", got[1].ID)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "board.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// data survives reopening
	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestYAMLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	s, err := OpenYAML(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timer:")
	assert.NotContains(t, string(data), "notes:")
}

func TestOpen(t *testing.T) {
	s, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open("sqlite", "")
	assert.Error(t, err)

	s, err = Open("yaml", filepath.Join(t.TempDir(), "board.yaml"))
	require.NoError(t, err)
	assert.IsType(t, &YAML{}, s)

	_, err = Open("yaml", "")
	assert.Error(t, err)

	_, err = Open("postgres", "x")
	assert.Error(t, err)
}
