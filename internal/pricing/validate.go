package pricing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/databunker/pricewatch/internal/blob"
	"github.com/databunker/pricewatch/internal/config"
	"github.com/databunker/pricewatch/internal/logger"
)

// Level is the overall outcome of a validation run.
type Level string

const (
	LevelSuccess Level = "SUCCESS"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

func levelRank(l Level) int {
	switch l {
	case LevelError:
		return 2
	case LevelWarning:
		return 1
	default:
		return 0
	}
}

// Summary carries the validation outcome alongside the snapshot. The
// level only ever escalates over the run.
type Summary struct {
	Level          Level
	CriticalErrors []string
	Warnings       []string
	Metrics        map[string]interface{}
}

func newSummary() *Summary {
	return &Summary{Level: LevelSuccess, Metrics: map[string]interface{}{}}
}

func (s *Summary) escalate(l Level) {
	if levelRank(l) > levelRank(s.Level) {
		s.Level = l
	}
}

func (s *Summary) warn(format string, args ...interface{}) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
	s.escalate(LevelWarning)
}

func (s *Summary) critical(format string, args ...interface{}) {
	s.CriticalErrors = append(s.CriticalErrors, fmt.Sprintf(format, args...))
	s.escalate(LevelError)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate runs the data-quality checks over the final snapshot, removes
// the rows the checks disqualify, collapses every row to the target date
// and persists the line-by-line report. Check failures degrade the
// summary, never abort: the caller decides what to do with a WARNING or
// ERROR outcome.
func Validate(ctx context.Context, rows []CompetitorRow, targetDate time.Time, store blob.Store, cfg config.Config, appLogger *logger.Logger) ([]CompetitorRow, *Summary) {
	const component = "Validation"

	summary := newSummary()
	report := &reportBuilder{}
	dateStr := targetDate.Format("2006-01-02")
	initial := len(rows)
	summary.Metrics["registros_iniciales"] = initial

	report.header("REPORTE DE VALIDACIÓN DE DATOS - " + dateStr)

	// 1. Store id coverage.
	report.section(1, "VALIDACIÓN DE STORE IDs")
	observed := make(map[string]int)
	for _, row := range rows {
		observed[row.StoreID]++
	}
	var missing []string
	for _, id := range cfg.StoreIDs {
		if observed[id] == 0 {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	report.linef("Store ids esperados: %d", len(cfg.StoreIDs))
	report.linef("Store ids presentes: %d", len(observed))
	if len(missing) > 0 {
		report.linef("Store ids faltantes: %v", missing)
		summary.warn("store ids sin datos: %v", missing)
	} else {
		report.linef("Todos los store ids esperados están presentes")
	}
	var unexpected []string
	for id := range observed {
		if !contains(cfg.StoreIDs, id) {
			unexpected = append(unexpected, id)
		}
	}
	sort.Strings(unexpected)
	if len(unexpected) > 0 {
		report.linef("Store ids no esperados (informativo): %v", unexpected)
	}
	summary.Metrics["store_ids_faltantes"] = len(missing)

	// 2. Rows without a usable final price.
	report.section(2, "REGISTROS SIN FINAL PRICE")
	perChannelEmpty := make(map[string]int)
	kept := rows[:0]
	for _, row := range rows {
		if isMissing(row.FinalPrice) {
			perChannelEmpty[row.Canal]++
			continue
		}
		kept = append(kept, row)
	}
	removedPrice := initial - len(kept)
	rows = kept
	report.linef("Registros eliminados por final price vacío: %d", removedPrice)
	for _, canal := range sortedKeys(perChannelEmpty) {
		report.linef("  %s: %d", canal, perChannelEmpty[canal])
	}
	if removedPrice > 0 {
		summary.warn("%d registros sin final price eliminados", removedPrice)
	}
	summary.Metrics["registros_eliminados_final_price"] = removedPrice

	// 3. last_price application.
	report.section(3, "APLICACIÓN DE LAST PRICE")
	perChannelChanged := make(map[string]int)
	changed := 0
	for _, row := range rows {
		if row.LastPrice != "" && row.LastPrice != row.FinalPrice {
			perChannelChanged[row.Canal]++
			changed++
		}
	}
	report.linef("Registros con cambio de precio detectado: %d", changed)
	for _, canal := range sortedKeys(perChannelChanged) {
		report.linef("  %s: %d", canal, perChannelChanged[canal])
	}
	summary.Metrics["registros_con_last_price"] = changed

	// 4. Exact duplicates on the quality subset.
	report.section(4, "ELIMINACIÓN DE DUPLICADOS")
	dupKeys := []string{"sku", "upc", "store id", "final price"}
	beforeDedup := len(rows)
	rows = dedupOnKeys(rows, dupKeys)
	removedDup := beforeDedup - len(rows)
	report.linef("Registros duplicados eliminados (sku, upc, store id, final price): %d", removedDup)
	if removedDup > 0 {
		summary.warn("%d registros duplicados eliminados", removedDup)
	}
	summary.Metrics["registros_eliminados_duplicados"] = removedDup

	// 5. Distribution, then the date collapse.
	report.section(5, "DISTRIBUCIÓN POR STORE ID Y FECHA")
	perStore := make(map[string]int)
	perDate := make(map[string]int)
	for _, row := range rows {
		perStore[row.StoreID]++
		perDate[row.Date]++
	}
	for _, id := range sortedKeys(perStore) {
		report.linef("  %s: %d", id, perStore[id])
	}
	report.linef("Fechas observadas antes de unificar: %d", len(perDate))
	for _, d := range sortedKeys(perDate) {
		report.linef("  %s: %d", d, perDate[d])
	}
	for i := range rows {
		rows[i].Date = dateStr
	}
	report.linef("Todas las fechas unificadas a %s", dateStr)

	// 6. Target date check.
	report.section(6, "VALIDACIÓN DE FECHA OBJETIVO")
	report.linef("Fecha objetivo presente: true")
	summary.Metrics["tiene_fecha_objetivo"] = true

	// 7. Volume comparison against the previous persisted snapshot.
	report.section(7, "COMPARACIÓN CON ARCHIVO ANTERIOR")
	compareWithPrevious(ctx, rows, targetDate, store, cfg, summary, report, appLogger)

	summary.Metrics["registros_finales"] = len(rows)
	summary.Metrics["registros_eliminados_total"] = initial - len(rows)

	report.blank()
	report.linef("Registros iniciales: %d", initial)
	report.linef("Registros finales: %d", len(rows))
	report.linef("Resultado: %s", summary.Level)
	for _, w := range summary.Warnings {
		report.linef("ADVERTENCIA: %s", w)
	}
	for _, c := range summary.CriticalErrors {
		report.linef("ERROR: %s", c)
	}

	reportKey := cfg.LogsPrefix + "validation_" + dateStr + ".txt"
	if err := store.Put(ctx, reportKey, []byte(report.String())); err != nil {
		appLogger.Error(component, "Failed to persist validation report: key=%s error=%v", reportKey, err)
	} else {
		appLogger.Info(component, "Validation report persisted: key=%s", reportKey)
	}

	appLogger.Info(component, "Validation finished: level=%s initial=%d final=%d", summary.Level, initial, len(rows))
	return rows, summary
}

// compareWithPrevious checks per-store volumes against the most recent
// older snapshot and flags stores whose counts fell more than the
// configured threshold.
func compareWithPrevious(ctx context.Context, rows []CompetitorRow, targetDate time.Time, store blob.Store, cfg config.Config, summary *Summary, report *reportBuilder, appLogger *logger.Logger) {
	const component = "Validation"

	objects, err := store.List(ctx, cfg.CompetitorsPrefix)
	if err != nil {
		report.linef("Listado de históricos no disponible: %v", err)
		summary.Metrics["comparacion_anterior"] = "no_disponible"
		return
	}

	dated := blob.DatedObjects(objects, appLogger)
	previous, found := blob.LatestBefore(dated, targetDate, appLogger)
	if !found {
		report.linef("Sin archivo anterior para comparar")
		summary.Metrics["comparacion_anterior"] = "no_disponible"
		return
	}

	data, err := store.Get(ctx, previous.Key)
	if err != nil {
		report.linef("Archivo anterior ilegible (%s): %v", previous.Key, err)
		summary.Metrics["comparacion_anterior"] = "no_disponible"
		return
	}
	priorRows, err := ReadSnapshotCSV(data)
	if err != nil {
		report.linef("Archivo anterior inválido (%s): %v", previous.Key, err)
		summary.Metrics["comparacion_anterior"] = "no_disponible"
		return
	}

	oldCounts := make(map[string]int)
	for _, row := range priorRows {
		oldCounts[row.StoreID]++
	}
	newCounts := make(map[string]int)
	for _, row := range rows {
		newCounts[row.StoreID]++
	}

	report.linef("Archivo anterior: %s (%d registros)", previous.Key, len(priorRows))
	for _, id := range sortedKeys(oldCounts) {
		old := oldCounts[id]
		current := newCounts[id]
		pct := float64(old-current) / float64(old) * 100
		report.linef("  %s: anterior=%d actual=%d variación=%.1f%%", id, old, current, -pct)
		if pct > cfg.CountDropThresholdPct {
			summary.warn("store id %s cayó %.1f%% (anterior=%d actual=%d)", id, pct, old, current)
		}
	}

	summary.Metrics["comparacion_anterior"] = "completada"
	summary.Metrics["archivo_anterior_fecha"] = previous.Date.Format("2006-01-02")
}
