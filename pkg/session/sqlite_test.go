package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta := metadata.New("sess-1234", "org-5678", "tenant-9012")
	meta.CustomerName = "Priya"
	meta.IsVerified = true

	sess := New(meta)
	sess.SetActiveAgent("verification")
	require.NoError(t, store.AddSession(ctx, sess))

	sess.AddItem("item-1", "user", "", false)
	sess.CompleteItem("item-1", "hello")
	item, _ := sess.Item("item-1")
	require.NoError(t, store.AppendItem(ctx, sess.ID, item))

	loaded, err := store.GetSession(ctx, "sess-1234")
	require.NoError(t, err)

	assert.Equal(t, "verification", loaded.ActiveAgent())
	assert.Equal(t, "Priya", loaded.Metadata().CustomerName)
	assert.True(t, loaded.Metadata().IsVerified)

	items := loaded.Transcript()
	require.Len(t, items, 1)
	assert.Equal(t, "hello", items[0].Text)
	assert.Equal(t, ItemDone, items[0].Status)
}

func TestSQLiteUpdateSessionUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := New(metadata.New("sess-1234", "org-5678", "tenant-9012"))
	require.NoError(t, store.UpdateSession(ctx, sess))

	sess.SetActiveAgent("scheduling")
	sess.Metadata().HasScheduled = true
	require.NoError(t, store.UpdateSession(ctx, sess))

	loaded, err := store.GetSession(ctx, "sess-1234")
	require.NoError(t, err)
	assert.Equal(t, "scheduling", loaded.ActiveAgent())
	assert.True(t, loaded.Metadata().HasScheduled)
}

func TestSQLiteItemRedeliveryIsIgnored(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := New(metadata.New("sess-1234", "org-5678", "tenant-9012"))
	require.NoError(t, store.AddSession(ctx, sess))

	item := Item{ID: "item-1", Role: "user", Text: "one", Status: ItemDone, CreatedAt: time.Now()}
	require.NoError(t, store.AppendItem(ctx, sess.ID, item))

	item.Text = "two"
	require.NoError(t, store.AppendItem(ctx, sess.ID, item))

	loaded, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	items := loaded.Transcript()
	require.Len(t, items, 1)
	assert.Equal(t, "one", items[0].Text)
}

func TestSQLiteDeleteSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := New(metadata.New("sess-1234", "org-5678", "tenant-9012"))
	require.NoError(t, store.AddSession(ctx, sess))

	require.NoError(t, store.DeleteSession(ctx, sess.ID))
	require.ErrorIs(t, store.DeleteSession(ctx, sess.ID), ErrNotFound)

	_, err := store.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	summaries, err := store.GetSessionSummaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
