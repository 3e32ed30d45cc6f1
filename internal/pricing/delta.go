package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/databunker/pricewatch/internal/blob"
	"github.com/databunker/pricewatch/internal/logger"
)

func mergeKeyOf(row CompetitorRow, keys []string) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = row.columnValue(key)
	}
	return strings.Join(parts, "\x1f")
}

func dedupOnKeys(rows []CompetitorRow, keys []string) []CompetitorRow {
	seen := make(map[string]struct{}, len(rows))
	out := make([]CompetitorRow, 0, len(rows))
	for _, row := range rows {
		k := mergeKeyOf(row, keys)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out
}

// ApplyLastPrice joins the current snapshot against the prior one on the
// merge keys and records the prior final price, but only when it differs
// from the current one. Equal or missing prior prices leave last_price
// empty, so the column reads as "changed since last time". A nil prior
// snapshot blanks the column for every row.
func ApplyLastPrice(current, prior []CompetitorRow, mergeKeys []string, appLogger *logger.Logger) []CompetitorRow {
	const component = "LastPrice"

	if prior == nil {
		for i := range current {
			current[i].LastPrice = ""
		}
		appLogger.Info(component, "No prior snapshot available, last_price left empty: rows=%d", len(current))
		return current
	}

	prior = dedupOnKeys(prior, mergeKeys)
	priorPrice := make(map[string]string, len(prior))
	for _, row := range prior {
		priorPrice[mergeKeyOf(row, mergeKeys)] = row.FinalPrice
	}

	current = dedupOnKeys(current, mergeKeys)
	changed := 0
	for i := range current {
		old, ok := priorPrice[mergeKeyOf(current[i], mergeKeys)]
		if !ok || old == "" || old == current[i].FinalPrice {
			current[i].LastPrice = ""
			continue
		}
		current[i].LastPrice = old
		changed++
	}

	appLogger.Info(component, "Applied last_price: rows=%d changed=%d", len(current), changed)
	return current
}

// LastPriceFromHistory loads the most recent persisted snapshot older than
// targetDate and applies the prior-price join against it. A missing or
// unreadable history degrades to an empty last_price column rather than
// failing the run.
func LastPriceFromHistory(ctx context.Context, store blob.Store, prefix string, current []CompetitorRow, mergeKeys []string, targetDate string, appLogger *logger.Logger) ([]CompetitorRow, error) {
	const component = "LastPrice"

	objects, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list historical snapshots: %w", err)
	}

	dated := blob.DatedObjects(objects, appLogger)
	cutoff, err := time.Parse("2006-01-02", targetDate)
	if err != nil {
		return nil, fmt.Errorf("invalid target date %q: %w", targetDate, err)
	}

	latest, found := blob.LatestBefore(dated, cutoff, appLogger)
	if !found {
		return ApplyLastPrice(current, nil, mergeKeys, appLogger), nil
	}

	data, err := store.Get(ctx, latest.Key)
	if err != nil {
		appLogger.Warn(component, "Failed to read prior snapshot, last_price left empty: key=%s error=%v", latest.Key, err)
		return ApplyLastPrice(current, nil, mergeKeys, appLogger), nil
	}

	prior, err := ReadSnapshotCSV(data)
	if err != nil {
		appLogger.Warn(component, "Failed to parse prior snapshot, last_price left empty: key=%s error=%v", latest.Key, err)
		return ApplyLastPrice(current, nil, mergeKeys, appLogger), nil
	}

	appLogger.Info(component, "Comparing against prior snapshot: key=%s rows=%d", latest.Key, len(prior))
	return ApplyLastPrice(current, prior, mergeKeys, appLogger), nil
}
