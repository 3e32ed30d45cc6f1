package pricing

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databunker/pricewatch/internal/blob"
	"github.com/databunker/pricewatch/internal/config"
)

// memStore is an in-memory blob.Store for tests.
type memStore struct {
	objects  map[string][]byte
	modified map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		objects:  map[string][]byte{},
		modified: map[string]time.Time{},
	}
}

func (s *memStore) List(ctx context.Context, prefix string) ([]blob.Object, error) {
	var out []blob.Object
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, blob.Object{Key: key, LastModified: s.modified[key]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return data, nil
}

func (s *memStore) Put(ctx context.Context, key string, data []byte) error {
	s.objects[key] = data
	s.modified[key] = time.Now()
	return nil
}

func snapshotBytes(t *testing.T, rows []CompetitorRow) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshotCSV(&buf, rows, config.SnapshotColumnOrder))
	return buf.Bytes()
}

func historyRow(canal, llave, ownSKU, finalPrice string) CompetitorRow {
	return CompetitorRow{
		Canal:      canal,
		UpcLlave:   llave,
		OwnSKU:     ownSKU,
		FinalPrice: finalPrice,
		SKU:        "feed-sku",
		UPC:        "111",
		StoreID:    "100_alpha",
	}
}

func TestSelectHistoryPrefersCadenceWeekday(t *testing.T) {
	// 2026-08-25 is a Tuesday.
	tuesdays := []string{"2026-07-21", "2026-07-28", "2026-08-04", "2026-08-11", "2026-08-18", "2026-08-25"}
	others := []string{"2026-08-26", "2026-08-27"}

	var objects []blob.Object
	for _, d := range append(append([]string{}, tuesdays...), others...) {
		objects = append(objects, blob.Object{Key: "competitors/competitors_local_" + d + ".csv"})
	}

	selected, err := SelectHistory(objects, time.Tuesday, testLogger())
	require.NoError(t, err)

	require.Len(t, selected, 6)
	for _, obj := range selected {
		assert.Equal(t, time.Tuesday, obj.Date.Weekday())
	}
	assert.Equal(t, "competitors/competitors_local_2026-08-25.csv", selected[0].Key)
}

func TestSelectHistoryFallsBackToRecentFiles(t *testing.T) {
	dates := []string{"2026-08-20", "2026-08-21", "2026-08-22", "2026-08-25", "2026-08-26"}
	var objects []blob.Object
	for _, d := range dates {
		objects = append(objects, blob.Object{Key: "competitors/competitors_local_" + d + ".csv"})
	}

	selected, err := SelectHistory(objects, time.Tuesday, testLogger())
	require.NoError(t, err)

	require.Len(t, selected, 5)
	assert.Equal(t, "competitors/competitors_local_2026-08-26.csv", selected[0].Key)
}

func TestSelectHistoryInsufficient(t *testing.T) {
	objects := []blob.Object{
		{Key: "competitors/competitors_local_2026-08-11.csv"},
		{Key: "competitors/competitors_local_2026-08-18.csv"},
		{Key: "competitors/competitors_local_2026-08-25.csv"},
	}

	_, err := SelectHistory(objects, time.Tuesday, testLogger())

	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestBuildPermanence(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newMemStore()

	history := map[string]string{
		"2026-08-04": "10",
		"2026-08-11": "10",
		"2026-08-18": "10",
		"2026-08-25": "10",
	}
	for date, p := range history {
		rows := []CompetitorRow{
			historyRow("Alpha", "0000000000000111", "77", p),
			historyRow("Alpha - Promos", "0000000000000999", "88", "5"),
		}
		require.NoError(t, store.Put(ctx,
			"competitors/competitors_local_"+date+".csv", snapshotBytes(t, rows)))
	}

	catalogCSV := "sku,ean,ean wm,Descripción SKU\n77,7501234,0000000000000111,Paracetamol 500mg\n"
	require.NoError(t, store.Put(ctx, "client/client.csv", []byte(catalogCSV)))

	current := []CompetitorRow{
		historyRow("Alpha", "0000000000000111", "77", "12"),
		historyRow("Alpha - Promos", "0000000000000999", "88", "5"),
	}

	records, err := BuildPermanence(ctx, current, store, cfg, testLogger())
	require.NoError(t, err)

	require.Len(t, records, 1, "excluded channels never reach the permanence table")
	rec := records[0]
	assert.Equal(t, "0000000000000111-77-Alpha", rec.AggKey)
	assert.Equal(t, "0000000000000111", rec.Upc)

	// History files fill N-4..N-2, the current snapshot is N-1.
	require.NotNil(t, rec.Weeks[0])
	require.NotNil(t, rec.Weeks[3])
	assert.Equal(t, "10", rec.Weeks[0].String())
	assert.Equal(t, "10", rec.Weeks[1].String())
	assert.Equal(t, "10", rec.Weeks[2].String())
	assert.Equal(t, "12", rec.Weeks[3].String())

	assert.Equal(t, Scenario4, rec.Scenario)
	assert.Equal(t, "10", rec.Recommended)

	assert.Equal(t, "77", rec.SKU)
	assert.Equal(t, "7501234", rec.EAN)
	assert.Equal(t, "Paracetamol 500mg", rec.Description)
	assert.Equal(t, "Alpha", rec.Canal)
}

func TestBuildPermanenceUnmatchedKey(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newMemStore()

	for _, date := range []string{"2026-08-04", "2026-08-11", "2026-08-18", "2026-08-25"} {
		rows := []CompetitorRow{historyRow("Alpha", "0000000000000222", "", "30")}
		require.NoError(t, store.Put(ctx,
			"competitors/competitors_local_"+date+".csv", snapshotBytes(t, rows)))
	}

	current := []CompetitorRow{historyRow("Alpha", "0000000000000222", "", "30")}

	records, err := BuildPermanence(ctx, current, store, cfg, testLogger())
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Producto sin comparacion", records[0].SKU)
	assert.Empty(t, records[0].EAN)
}

func TestBuildPermanenceAggregatesMeanPerKey(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newMemStore()

	for _, date := range []string{"2026-08-04", "2026-08-11", "2026-08-18", "2026-08-25"} {
		rows := []CompetitorRow{historyRow("Alpha", "0000000000000333", "55", "10")}
		require.NoError(t, store.Put(ctx,
			"competitors/competitors_local_"+date+".csv", snapshotBytes(t, rows)))
	}

	current := []CompetitorRow{
		historyRow("Alpha", "0000000000000333", "55", "10"),
		historyRow("Alpha", "0000000000000333", "55", "20"),
	}

	records, err := BuildPermanence(ctx, current, store, cfg, testLogger())
	require.NoError(t, err)

	require.Len(t, records, 1)
	require.NotNil(t, records[0].Weeks[3])
	assert.Equal(t, "15", records[0].Weeks[3].String())
}

func weekSlots(values ...string) [4]*decimal.Decimal {
	var weeks [4]*decimal.Decimal
	for i, v := range values {
		if v == "" {
			continue
		}
		weeks[i] = price(v)
	}
	return weeks
}

func TestPermanenceCSVRoundTrip(t *testing.T) {
	records := []PermanenceRecord{
		{
			AggKey:      "0000000000000111-77-Alpha",
			Upc:         "0000000000000111",
			Weeks:       weekSlots("10", "10", "", "12"),
			Mean:        "10.67",
			Median:      "10",
			Mode:        "10",
			Recommended: "10",
			Scenario:    Scenario4,
			SKU:         "77",
			EAN:         "7501234",
			Description: "Paracetamol 500mg",
			Canal:       "Alpha",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePermanenceCSV(&buf, records))

	parsed, err := ReadPermanenceCSV(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	assert.Equal(t, records[0].AggKey, parsed[0].AggKey)
	assert.Equal(t, records[0].Scenario, parsed[0].Scenario)
	require.NotNil(t, parsed[0].Weeks[0])
	assert.Equal(t, "10", parsed[0].Weeks[0].String())
	assert.Nil(t, parsed[0].Weeks[2])
	assert.Equal(t, "Paracetamol 500mg", parsed[0].Description)
}
