package pricing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"

	"github.com/databunker/pricewatch/internal/blob"
	"github.com/databunker/pricewatch/internal/config"
	"github.com/databunker/pricewatch/internal/logger"
)

// ErrInsufficientHistory is returned when fewer than four weekly snapshots
// exist, which is not enough to fill any scenario window.
var ErrInsufficientHistory = errors.New("insufficient historical snapshots")

const (
	historyWanted   = 6
	historyRequired = 4
	historyLoaded   = 3

	skuNoComparison = "Producto sin comparacion"
)

var trailingDecimalZero = regexp.MustCompile(`\.0$`)

// PermanenceRecord is one key's multi-week price history with its
// stability classification. Weeks runs oldest to newest: index 0 is N-4,
// index 3 is the current week N-1. A nil slot is a week the key was not
// observed.
type PermanenceRecord struct {
	AggKey string // upc llave + "-" + own sku + "-" + canal
	Upc    string // canonical key segment, repeated for direct filtering
	Weeks  [4]*decimal.Decimal

	Mean        string
	Median      string
	Mode        string
	Recommended string
	Scenario    string

	SKU         string
	EAN         string
	Description string
	Canal       string
}

type aggGroup struct {
	aggKey string
	upc    string
}

// aggregateSnapshot collapses one snapshot into mean final price per
// aggregation key. Excluded channels are dropped; groups whose prices are
// all non-numeric still appear, with a nil mean, so the key's presence in
// the week is recorded.
func aggregateSnapshot(rows []CompetitorRow, cfg config.Config) map[aggGroup]*decimal.Decimal {
	groups := make(map[aggGroup][]decimal.Decimal)
	for _, row := range rows {
		if cfg.IsExcludedChannel(row.Canal) {
			continue
		}
		ownSKU := trailingDecimalZero.ReplaceAllString(strings.TrimSpace(row.OwnSKU), "")
		g := aggGroup{
			aggKey: row.UpcLlave + "-" + ownSKU + "-" + row.Canal,
			upc:    row.UpcLlave,
		}
		if _, ok := groups[g]; !ok {
			groups[g] = nil
		}
		price, err := decimal.NewFromString(strings.TrimSpace(row.FinalPrice))
		if err != nil {
			continue
		}
		groups[g] = append(groups[g], price)
	}

	means := make(map[aggGroup]*decimal.Decimal, len(groups))
	for g, prices := range groups {
		if len(prices) == 0 {
			means[g] = nil
			continue
		}
		mean := decimal.Avg(prices[0], prices[1:]...)
		means[g] = &mean
	}
	return means
}

// SelectHistory picks the snapshot files feeding the permanence window.
// Files on the weekly cadence day are preferred; when fewer than six
// exist the most recent files regardless of weekday fill in. Fewer than
// four usable files aborts with ErrInsufficientHistory.
func SelectHistory(objects []blob.Object, cadence time.Weekday, appLogger *logger.Logger) ([]blob.Dated, error) {
	const component = "Permanence"

	dated := blob.DatedObjects(objects, appLogger)

	onCadence := make([]blob.Dated, 0, len(dated))
	for _, obj := range dated {
		if obj.Date.Weekday() == cadence {
			onCadence = append(onCadence, obj)
		}
	}

	selected := onCadence
	if len(onCadence) < historyWanted {
		appLogger.Warn(component, "Only %d snapshots on cadence weekday, falling back to most recent files", len(onCadence))
		selected = dated
	}

	blob.SortNewestFirst(selected)
	if len(selected) > historyWanted {
		selected = selected[:historyWanted]
	}
	if len(selected) < historyRequired {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientHistory, len(selected), historyRequired)
	}
	return selected, nil
}

// BuildPermanence computes the permanence records for the current
// snapshot: it aggregates the current week, loads the three most recent
// historical snapshots as the prior weeks, outer-joins the four weekly
// aggregates, classifies every key and enriches matched keys from the
// client catalog.
func BuildPermanence(ctx context.Context, current []CompetitorRow, store blob.Store, cfg config.Config, appLogger *logger.Logger) ([]PermanenceRecord, error) {
	const component = "Permanence"

	objects, err := store.List(ctx, cfg.CompetitorsPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot history: %w", err)
	}

	selected, err := SelectHistory(objects, cfg.CadenceWeekday, appLogger)
	if err != nil {
		return nil, err
	}

	records := make(map[aggGroup]*PermanenceRecord)
	assign := func(week int, means map[aggGroup]*decimal.Decimal) {
		for g, mean := range means {
			record, ok := records[g]
			if !ok {
				record = &PermanenceRecord{AggKey: g.aggKey, Upc: g.upc}
				records[g] = record
			}
			record.Weeks[week] = mean
		}
	}

	// Slot 3 is the current week N-1; the historical files fill N-2
	// backwards to N-4.
	assign(3, aggregateSnapshot(current, cfg))
	for i, obj := range selected[:historyLoaded] {
		data, err := store.Get(ctx, obj.Key)
		if err != nil {
			appLogger.Warn(component, "Skipping unreadable historical snapshot: key=%s error=%v", obj.Key, err)
			continue
		}
		rows, err := ReadSnapshotCSV(data)
		if err != nil {
			appLogger.Warn(component, "Skipping unparseable historical snapshot: key=%s error=%v", obj.Key, err)
			continue
		}
		assign(2-i, aggregateSnapshot(rows, cfg))
	}

	catalog := loadLatestCatalog(ctx, store, cfg, appLogger)
	catalogBySKU := make(map[string]CatalogEntry, len(catalog))
	for _, entry := range catalog {
		if entry.SKU != "" {
			catalogBySKU[entry.SKU] = entry
		}
	}

	out := make([]PermanenceRecord, 0, len(records))
	for _, record := range records {
		record.Mean, record.Median, record.Mode = Stats(record.Weeks[:])
		record.Scenario, record.Recommended = Classify(record.Weeks[:])

		parts := strings.Split(record.AggKey, "-")
		if len(parts) >= 3 {
			sku := parts[1]
			if sku == "" || sku == "nan" {
				sku = skuNoComparison
			}
			record.SKU = sku
			record.Canal = strings.Join(parts[2:], "-")
		}
		if entry, ok := catalogBySKU[record.SKU]; ok {
			record.EAN = entry.EAN
			record.Description = entry.Description
		}
		out = append(out, *record)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AggKey != out[j].AggKey {
			return out[i].AggKey < out[j].AggKey
		}
		return out[i].Upc < out[j].Upc
	})

	appLogger.Info(component, "Built permanence table: keys=%d history_files=%d", len(out), len(selected))
	return out, nil
}

// loadLatestCatalog fetches the most recently modified client catalog.
// Missing catalogs degrade to unenriched records, never an error.
func loadLatestCatalog(ctx context.Context, store blob.Store, cfg config.Config, appLogger *logger.Logger) []CatalogEntry {
	const component = "Permanence"

	objects, err := store.List(ctx, cfg.ClientPrefix)
	if err != nil || len(objects) == 0 {
		appLogger.Warn(component, "Client catalog unavailable, records stay unenriched: error=%v", err)
		return nil
	}

	latest := objects[0]
	for _, obj := range objects[1:] {
		if obj.LastModified.After(latest.LastModified) {
			latest = obj
		}
	}

	data, err := store.Get(ctx, latest.Key)
	if err != nil {
		appLogger.Warn(component, "Failed to read client catalog: key=%s error=%v", latest.Key, err)
		return nil
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		appLogger.Warn(component, "Failed to parse client catalog: key=%s error=%v", latest.Key, err)
		return nil
	}
	return catalog
}

var permanenceColumns = []string{
	"UPC_llave_cod_interno", "upc llave",
	"N-4", "N-3", "N-2", "N-1",
	"Precio Promedio", "Precio Mediana", "Precio Moda",
	"Precio recomendado", "Escenario aplicado",
	"SKU", "EAN", "Descripción SKU", "Canal",
}

func weekString(w *decimal.Decimal) string {
	if w == nil {
		return ""
	}
	return w.Round(2).String()
}

// WritePermanenceCSV serializes permanence records in the downstream
// column order.
func WritePermanenceCSV(w io.Writer, records []PermanenceRecord) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, permanenceColumns)
	for _, r := range records {
		rows = append(rows, []string{
			r.AggKey, r.Upc,
			weekString(r.Weeks[0]), weekString(r.Weeks[1]),
			weekString(r.Weeks[2]), weekString(r.Weeks[3]),
			r.Mean, r.Median, r.Mode,
			r.Recommended, r.Scenario,
			r.SKU, r.EAN, r.Description, r.Canal,
		})
	}

	df := dataframe.LoadRecords(rows,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Error() != nil {
		return fmt.Errorf("failed to build permanence frame: %w", df.Error())
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("failed to write permanence CSV: %w", err)
	}
	return nil
}

// ReadPermanenceCSV parses a persisted permanence file, used by the read
// API.
func ReadPermanenceCSV(data []byte) ([]PermanenceRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	df, err := readStringFrame(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	getStr := frameGetter(df)

	parseWeek := func(v string) *decimal.Decimal {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return &d
	}

	records := make([]PermanenceRecord, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		records = append(records, PermanenceRecord{
			AggKey: getStr(i, "upc_llave_cod_interno"),
			Upc:    getStr(i, "upc llave"),
			Weeks: [4]*decimal.Decimal{
				parseWeek(getStr(i, "n-4")),
				parseWeek(getStr(i, "n-3")),
				parseWeek(getStr(i, "n-2")),
				parseWeek(getStr(i, "n-1")),
			},
			Mean:        getStr(i, "precio promedio"),
			Median:      getStr(i, "precio mediana"),
			Mode:        getStr(i, "precio moda"),
			Recommended: getStr(i, "precio recomendado"),
			Scenario:    getStr(i, "escenario aplicado"),
			SKU:         getStr(i, "sku"),
			EAN:         getStr(i, "ean"),
			Description: getStr(i, "descripción sku"),
			Canal:       getStr(i, "canal"),
		})
	}
	return records, nil
}
