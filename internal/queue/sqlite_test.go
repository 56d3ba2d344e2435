package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovelist/internal/model"
)

func openState(t *testing.T, dir string) *SQLiteState {
	t.Helper()
	s, err := Open(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestEnqueuePreservesOrderAndBody(t *testing.T) {
	s := openState(t, t.TempDir())
	ctx := context.Background()

	first, err := s.Enqueue(ctx, model.Operation{Path: "/items", Method: model.POST, Body: strPtr(`{"text":"a"}`)})
	require.NoError(t, err)
	second, err := s.Enqueue(ctx, model.Operation{Path: "/items/1", Method: model.DELETE})
	require.NoError(t, err)

	assert.Less(t, first.Seq, second.Seq)
	assert.NotEmpty(t, first.ID)
	assert.NotZero(t, first.EnqueuedAt)

	ops, err := s.PeekAll(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, first, ops[0])
	assert.Equal(t, model.DELETE, ops[1].Method)
	assert.Nil(t, ops[1].Body)
}

func TestEnqueueRejectsReads(t *testing.T) {
	s := openState(t, t.TempDir())
	_, err := s.Enqueue(context.Background(), model.Operation{Path: "/items", Method: "GET"})
	require.Error(t, err)
}

func TestDrainAllKeepsLaterOperations(t *testing.T) {
	s := openState(t, t.TempDir())
	ctx := context.Background()

	a, _ := s.Enqueue(ctx, model.Operation{Path: "/items", Method: model.POST})
	b, _ := s.Enqueue(ctx, model.Operation{Path: "/items", Method: model.POST})
	c, err := s.Enqueue(ctx, model.Operation{Path: "/items", Method: model.POST})
	require.NoError(t, err)

	require.NoError(t, s.DrainAll(ctx, b.Seq))

	ops, err := s.PeekAll(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, c.Seq, ops[0].Seq)
	assert.NotEqual(t, a.Seq, ops[0].Seq)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, dir)
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, model.Operation{Path: "/items/1", Method: model.PUT, Body: strPtr(`{"done":true}`)})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "/items", []byte(`[{"id":1}]`)))
	require.NoError(t, s.Close())

	reopened := openState(t, dir)
	ops, err := reopened.PeekAll(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, `{"done":true}`, *ops[0].Body)

	body, ok, err := reopened.Get(ctx, "/items")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, string(body))
}

func TestCacheIsLastWriteWins(t *testing.T) {
	s := openState(t, t.TempDir())
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "/items")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "/items", []byte(`[1]`)))
	require.NoError(t, s.Put(ctx, "/items", []byte(`[1,2]`)))

	body, ok, err := s.Get(ctx, "/items")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1,2]`, string(body))
}

func TestTryLockFlushIsSharedByHandles(t *testing.T) {
	dir := t.TempDir()
	first := openState(t, dir)
	second := openState(t, dir)

	unlock, held, err := first.TryLockFlush()
	require.NoError(t, err)
	require.True(t, held)

	_, held, err = second.TryLockFlush()
	require.NoError(t, err)
	assert.False(t, held)

	require.NoError(t, unlock())
	unlock, held, err = second.TryLockFlush()
	require.NoError(t, err)
	assert.True(t, held)
	require.NoError(t, unlock())
}
