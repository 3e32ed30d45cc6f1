package pricing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow(storeID, sku, upc, finalPrice string) CompetitorRow {
	return CompetitorRow{
		Date:       "2026-08-25",
		StoreID:    storeID,
		Canal:      "Alpha",
		SKU:        sku,
		UPC:        upc,
		FinalPrice: finalPrice,
	}
}

func TestValidateSuccess(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newMemStore()
	target := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	rows := []CompetitorRow{
		validRow("100_alpha", "1", "111", "10"),
		validRow("200_beta", "2", "222", "20"),
		validRow("300_gamma", "3", "333", "30"),
	}

	out, summary := Validate(ctx, rows, target, store, cfg, testLogger())

	assert.Len(t, out, 3)
	assert.Equal(t, LevelSuccess, summary.Level)
	assert.Empty(t, summary.Warnings)
	assert.Equal(t, 3, summary.Metrics["registros_finales"])
	assert.Equal(t, 0, summary.Metrics["registros_eliminados_total"])
}

func TestValidateMissingStoreIDWarns(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newMemStore()
	target := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	rows := []CompetitorRow{validRow("100_alpha", "1", "111", "10")}

	_, summary := Validate(ctx, rows, target, store, cfg, testLogger())

	assert.Equal(t, LevelWarning, summary.Level)
	assert.NotEmpty(t, summary.Warnings)
	assert.Equal(t, 2, summary.Metrics["store_ids_faltantes"])
}

func TestValidateRemovesDuplicates(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newMemStore()
	target := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	rows := []CompetitorRow{
		validRow("100_alpha", "1", "111", "10"),
		validRow("100_alpha", "1", "111", "10"),
		validRow("200_beta", "2", "222", "20"),
		validRow("300_gamma", "3", "333", "30"),
	}

	out, summary := Validate(ctx, rows, target, store, cfg, testLogger())

	assert.Len(t, out, 3)
	assert.Equal(t, 1, summary.Metrics["registros_eliminados_duplicados"])
	assert.Equal(t, LevelWarning, summary.Level)
}

func TestValidateCollapsesDates(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newMemStore()
	target := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	rows := []CompetitorRow{
		validRow("100_alpha", "1", "111", "10"),
		validRow("200_beta", "2", "222", "20"),
		validRow("300_gamma", "3", "333", "30"),
	}
	rows[0].Date = "2026-08-24"

	out, _ := Validate(ctx, rows, target, store, cfg, testLogger())

	for _, row := range out {
		assert.Equal(t, "2026-08-25", row.Date)
	}
}

func TestValidateLevelNeverDecreases(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newMemStore()
	target := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	// Duplicates trigger a warning after the missing-store warning; the
	// level must stay at WARNING, never bounce back to SUCCESS.
	rows := []CompetitorRow{
		validRow("100_alpha", "1", "111", "10"),
		validRow("100_alpha", "1", "111", "10"),
	}

	_, summary := Validate(ctx, rows, target, store, cfg, testLogger())

	assert.Equal(t, LevelWarning, summary.Level)
	assert.GreaterOrEqual(t, len(summary.Warnings), 2)
}

func TestValidateVolumeDropAgainstPrevious(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newMemStore()
	target := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	var prior []CompetitorRow
	for i := 0; i < 10; i++ {
		prior = append(prior, validRow("100_alpha", "sku"+string(rune('a'+i)), "111", "10"))
	}
	require.NoError(t, store.Put(ctx,
		"competitors/competitors_local_2026-08-18.csv", snapshotBytes(t, prior)))

	rows := []CompetitorRow{
		validRow("100_alpha", "1", "111", "10"),
		validRow("200_beta", "2", "222", "20"),
		validRow("300_gamma", "3", "333", "30"),
	}

	_, summary := Validate(ctx, rows, target, store, cfg, testLogger())

	assert.Equal(t, LevelWarning, summary.Level)
	assert.Equal(t, "completada", summary.Metrics["comparacion_anterior"])
	assert.Equal(t, "2026-08-18", summary.Metrics["archivo_anterior_fecha"])

	found := false
	for _, w := range summary.Warnings {
		if strings.Contains(w, "100_alpha") {
			found = true
		}
	}
	assert.True(t, found, "the store with the volume drop is itemized")
}

func TestValidatePersistsReport(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := newMemStore()
	target := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	rows := []CompetitorRow{
		validRow("100_alpha", "1", "111", "10"),
		validRow("200_beta", "2", "222", "20"),
		validRow("300_gamma", "3", "333", "30"),
	}

	Validate(ctx, rows, target, store, cfg, testLogger())

	data, err := store.Get(ctx, "logs/validation_2026-08-25.txt")
	require.NoError(t, err)
	report := string(data)
	assert.Contains(t, report, "REPORTE DE VALIDACIÓN")
	assert.Contains(t, report, "VALIDACIÓN DE STORE IDs")
	assert.Contains(t, report, "COMPARACIÓN CON ARCHIVO ANTERIOR")
	assert.Contains(t, report, "Resultado: SUCCESS")
}
