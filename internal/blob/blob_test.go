package blob

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databunker/pricewatch/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.LevelError)
}

func TestExtractDate(t *testing.T) {
	date, ok := ExtractDate("competitors/competitors_local_2026-08-25.csv")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), date)

	_, ok = ExtractDate("competitors/permanencia_precios.csv")
	assert.False(t, ok)
}

func TestDatedObjectsSkipsUndatedKeys(t *testing.T) {
	objects := []Object{
		{Key: "competitors/competitors_local_2026-08-25.csv"},
		{Key: "competitors/README.txt"},
	}

	dated := DatedObjects(objects, testLogger())

	require.Len(t, dated, 1)
	assert.Equal(t, "competitors/competitors_local_2026-08-25.csv", dated[0].Key)
}

func TestLatestResolvesSameDateDeterministically(t *testing.T) {
	objects := DatedObjects([]Object{
		{Key: "a/competitors_local_2026-08-25.csv"},
		{Key: "b/competitors_local_2026-08-25.csv"},
		{Key: "a/competitors_local_2026-08-18.csv"},
	}, testLogger())

	latest, found := Latest(objects, testLogger())

	require.True(t, found)
	assert.Equal(t, "b/competitors_local_2026-08-25.csv", latest.Key)
}

func TestLatestBeforeIsStrict(t *testing.T) {
	objects := DatedObjects([]Object{
		{Key: "competitors/competitors_local_2026-08-25.csv"},
		{Key: "competitors/competitors_local_2026-08-18.csv"},
	}, testLogger())
	cutoff := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	previous, found := LatestBefore(objects, cutoff, testLogger())

	require.True(t, found)
	assert.Equal(t, "competitors/competitors_local_2026-08-18.csv", previous.Key)
}

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "competitors/competitors_local_2026-08-25.csv", []byte("a,b\n1,2\n")))
	require.NoError(t, store.Put(ctx, "logs/validation_2026-08-25.txt", []byte("ok")))

	data, err := store.Get(ctx, "competitors/competitors_local_2026-08-25.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	objects, err := store.List(ctx, "competitors/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "competitors/competitors_local_2026-08-25.csv", objects[0].Key)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
