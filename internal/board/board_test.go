package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wcatz/dashboard-grid/internal/grid"
	"github.com/wcatz/dashboard-grid/internal/pubsub"
	"github.com/wcatz/dashboard-grid/internal/store"
)

func w(id string, col, row, width, height int) grid.Widget {
	return grid.Widget{
		ID:       id,
		Position: grid.Position{Column: col, Row: row},
		Size:     grid.Size{Width: width, Height: height},
	}
}

func newTestBoard(t *testing.T, seed ...grid.Widget) (*Board, store.Store) {
	t.Helper()
	st := store.NewMemory()
	b, err := New(grid.DefaultConfig(), st, nil)
	require.NoError(t, err)
	require.NoError(t, b.Load(context.Background(), seed))
	t.Cleanup(func() { b.Close() })
	return b, st
}

func TestLoadSeedsEmptyStore(t *testing.T) {
	b, st := newTestBoard(t, w("a", 0, 0, 2, 2), w("b", 2, 0, 2, 2))
	assert.Len(t, b.Widgets(), 2)

	saved, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestLoadPrefersStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Save(ctx, w("stored", 4, 4, 1, 1)))

	b, err := New(grid.DefaultConfig(), st, nil)
	require.NoError(t, err)
	require.NoError(t, b.Load(ctx, []grid.Widget{w("seed", 0, 0, 1, 1)}))

	got := b.Widgets()
	require.Len(t, got, 1)
	assert.Equal(t, "stored", got[0].ID)
}

func TestLoadRejectsInvalidSeed(t *testing.T) {
	b, err := New(grid.DefaultConfig(), nil, nil)
	require.NoError(t, err)

	err = b.Load(context.Background(), []grid.Widget{w("a", 0, 0, 2, 2), w("b", 1, 1, 2, 2)})
	assert.ErrorIs(t, err, ErrOverlap)

	err = b.Load(context.Background(), []grid.Widget{w("a", 11, 0, 2, 2)})
	assert.ErrorIs(t, err, ErrOutOfBounds)

	err = b.Load(context.Background(), []grid.Widget{w("a", 0, 0, 1, 1), w("a", 5, 0, 1, 1)})
	assert.ErrorIs(t, err, ErrDuplicateWidget)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(grid.Config{Columns: 0}, nil, nil)
	assert.ErrorIs(t, err, grid.ErrInvalidConfig)
}

func TestAddAndPlace(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBoard(t, w("a", 0, 0, 4, 2))

	_, err := b.Add(ctx, w("b", 2, 0, 2, 2))
	assert.ErrorIs(t, err, ErrOverlap)

	_, err = b.Add(ctx, w("a", 6, 0, 1, 1))
	assert.ErrorIs(t, err, ErrDuplicateWidget)

	placed, err := b.Place(ctx, grid.Widget{Kind: "clock"})
	require.NoError(t, err)
	assert.NotEmpty(t, placed.ID)
	assert.Equal(t, DefaultSize, placed.Size)
	assert.Equal(t, grid.Position{Column: 4, Row: 0}, placed.Position)

	wide, err := b.Place(ctx, grid.Widget{ID: "wide", Size: grid.Size{Width: 40, Height: 1}})
	require.NoError(t, err)
	assert.Equal(t, 12, wide.Size.Width)
	assert.Equal(t, grid.Position{Column: 0, Row: 2}, wide.Position)
	assert.Equal(t, 6, b.TotalRows())
}

func TestCommit(t *testing.T) {
	b, st := newTestBoard(t, w("a", 0, 0, 2, 2), w("b", 2, 0, 2, 2))

	err := b.Commit("a", grid.Rect{Position: grid.Position{Column: 1}, Size: grid.Size{Width: 2, Height: 2}})
	assert.ErrorIs(t, err, ErrOverlap)

	err = b.Commit("a", grid.Rect{Position: grid.Position{Column: 11}, Size: grid.Size{Width: 2, Height: 2}})
	assert.ErrorIs(t, err, ErrOutOfBounds)

	err = b.Commit("missing", grid.Rect{Size: grid.Size{Width: 1, Height: 1}})
	assert.ErrorIs(t, err, ErrWidgetNotFound)

	target := grid.Rect{Position: grid.Position{Column: 0, Row: 7}, Size: grid.Size{Width: 3, Height: 2}}
	require.NoError(t, b.Commit("a", target))
	got, ok := b.Get("a")
	require.True(t, ok)
	assert.Equal(t, target, got.Rect())
	assert.Equal(t, 9, b.TotalRows())

	saved, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, target, saved[0].Rect())
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBoard(t, w("a", 0, 0, 2, 2), w("b", 0, 8, 2, 2))
	assert.Equal(t, 10, b.TotalRows())

	require.NoError(t, b.Remove(ctx, "b"))
	assert.Equal(t, 6, b.TotalRows())
	assert.ErrorIs(t, b.Remove(ctx, "b"), ErrWidgetNotFound)
}

func TestSetConfig(t *testing.T) {
	b, _ := newTestBoard(t, w("a", 8, 0, 4, 2))

	narrow := grid.DefaultConfig()
	narrow.Columns = 8
	assert.ErrorIs(t, b.SetConfig(narrow), ErrOutOfBounds)

	wide := grid.DefaultConfig()
	wide.Columns = 24
	require.NoError(t, b.SetConfig(wide))
	assert.Equal(t, 24, b.Config().Columns)
}

func TestSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b, _ := newTestBoard(t, w("a", 0, 0, 2, 2))
	events := b.Subscribe(ctx)

	require.NoError(t, b.Commit("a", grid.Rect{Position: grid.Position{Column: 3}, Size: grid.Size{Width: 2, Height: 2}}))

	select {
	case evt := <-events:
		assert.Equal(t, pubsub.UpdatedEvent, evt.Type)
		assert.Equal(t, "a", evt.Payload.ID)
		assert.Equal(t, 3, evt.Payload.Position.Column)
	case <-time.After(time.Second):
		t.Fatal("no event after commit")
	}
}

// The board drives the grid controller end to end: drag, commit, reload.
func TestBoardWithController(t *testing.T) {
	b, _ := newTestBoard(t, w("a", 0, 0, 2, 2), w("b", 2, 0, 2, 2))
	c, err := grid.NewController(b.Config(), b, b.Commit, nil)
	require.NoError(t, err)

	container := grid.Container{Width: 1264}
	require.True(t, c.BeginDrag("a", grid.Point{X: 10, Y: 10}, container))
	_, ok := c.DragCandidate("a", grid.Point{X: 114, Y: 10})
	assert.False(t, ok)
	_, ok = c.DragCandidate("a", grid.Point{X: 10, Y: 162})
	assert.True(t, ok)
	_, ok, err = c.End()
	require.NoError(t, err)
	require.True(t, ok)

	got, _ := b.Get("a")
	assert.Equal(t, grid.Position{Column: 0, Row: 2}, got.Position)
	assert.Empty(t, grid.Overlaps(b.Widgets()))
}
