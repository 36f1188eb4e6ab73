package repository

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAddAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, Record{
		Kind:       KindUpload,
		Identifier: "BV1xx411c7mD",
		Title:      "my stream",
		Files:      2,
		Bytes:      4500,
		Elapsed:    3 * time.Second,
		Line:       "ws",
	}))

	records, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.NotEmpty(t, rec.ID, "id is assigned on insert")
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, KindUpload, rec.Kind)
	assert.Equal(t, "BV1xx411c7mD", rec.Identifier)
	assert.Equal(t, 2, rec.Files)
	assert.EqualValues(t, 4500, rec.Bytes)
	assert.Equal(t, 3*time.Second, rec.Elapsed)
	assert.Equal(t, "ws", rec.Line)
}

func TestRecentFiltersByKind(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, Record{Kind: KindUpload, Identifier: "BV1"}))
	require.NoError(t, store.Add(ctx, Record{Kind: KindDownload, Identifier: "https://live.example/room"}))

	uploads, err := store.Recent(ctx, KindUpload, 10)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "BV1", uploads[0].Identifier)

	downloads, err := store.Recent(ctx, KindDownload, 10)
	require.NoError(t, err)
	require.Len(t, downloads, 1)
	assert.Equal(t, "https://live.example/room", downloads[0].Identifier)
}

func TestRecentOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Add(ctx, Record{
			Kind:       KindUpload,
			Identifier: "BV" + strconv.Itoa(i),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.Recent(ctx, KindUpload, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "BV4", records[0].Identifier, "newest first")
	assert.Equal(t, "BV2", records[2].Identifier)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Add(context.Background(), Record{Kind: KindUpload, Identifier: "BV1"}))
	require.NoError(t, store.Close())

	// Reopening keeps existing rows.
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
