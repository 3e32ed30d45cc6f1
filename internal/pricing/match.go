package pricing

import (
	"errors"
	"strings"

	"github.com/databunker/pricewatch/internal/config"
	"github.com/databunker/pricewatch/internal/logger"
)

// ErrMissingReference is returned when a reference file the matcher cannot
// run without (match table, client catalog) is absent from the blob store.
var ErrMissingReference = errors.New("missing reference file")

// CreateUpcWM derives the canonical cross-retailer key from a raw UPC. The
// Walmart family publishes codes with their check digit; every other
// channel appends a spurious trailing digit that is removed when the code
// is long enough to carry one. The result is zero-padded to 16 characters.
func CreateUpcWM(upc, channel string, cfg config.Config) string {
	key := strings.TrimSpace(upc)
	if !cfg.IsWalmartLike(channel) && len(key) > 7 {
		key = key[:len(key)-1]
	}
	for len(key) < 16 {
		key = "0" + key
	}
	return key
}

func blankPlaceholder(value string) string {
	if value == "nan" || value == "None" {
		return ""
	}
	return value
}

// PrimaryMatch left-joins rows against the match table on the raw feed
// key and channel, filling the operator's own UPC and SKU. Unmatched rows
// get explicit empty codes.
func PrimaryMatch(rows []CompetitorRow, entries []MatchEntry, appLogger *logger.Logger) {
	const component = "Match"

	index := make(map[string]MatchEntry, len(entries))
	for _, entry := range entries {
		index[entry.UpcWMCompetitor+"\x1f"+entry.Competitor] = entry
	}

	matched := 0
	for i := range rows {
		key := strings.TrimSpace(blankPlaceholder(rows[i].UpcLlave)) + "\x1f" + strings.TrimSpace(rows[i].Canal)
		entry, ok := index[key]
		if !ok {
			rows[i].OwnUPC = ""
			rows[i].OwnSKU = ""
			continue
		}
		rows[i].OwnUPC = entry.UpcClient
		rows[i].OwnSKU = entry.SkuClient
		matched++
	}
	appLogger.Info(component, "Primary match: rows=%d matched=%d", len(rows), matched)
}

// DeriveKeys computes the canonical key and the composite row key. The
// promo channels keep the key the remap placed in upc llave verbatim;
// everything else rederives it from the cleaned UPC.
func DeriveKeys(rows []CompetitorRow, cfg config.Config) {
	for i := range rows {
		if !cfg.IsRawKeyChannel(rows[i].Canal) {
			rows[i].UpcLlave = CreateUpcWM(rows[i].UPC, rows[i].Canal, cfg)
		} else {
			rows[i].UpcLlave = strings.TrimSpace(blankPlaceholder(rows[i].UpcLlave))
		}
		rows[i].Key = rows[i].Canal + "_" + rows[i].UpcLlave
	}
}

// FallbackResolve resolves rows the match table missed by looking up the
// canonical key against the catalog's ean wm column. Rows that still miss
// keep explicit empty codes so downstream grouping stays deterministic.
func FallbackResolve(rows []CompetitorRow, catalog []CatalogEntry, appLogger *logger.Logger) {
	const component = "Match"

	// On duplicate ean wm entries the first catalog row wins.
	index := make(map[string]CatalogEntry, len(catalog))
	for _, entry := range catalog {
		eanWM := strings.TrimSpace(blankPlaceholder(entry.EanWM))
		if eanWM == "" {
			continue
		}
		if _, ok := index[eanWM]; ok {
			continue
		}
		index[eanWM] = entry
	}

	resolved := 0
	for i := range rows {
		if rows[i].OwnUPC != "" || rows[i].UpcLlave == "" {
			continue
		}
		entry, ok := index[rows[i].UpcLlave]
		if !ok {
			continue
		}
		rows[i].OwnUPC = entry.EanWM
		rows[i].OwnSKU = entry.SKU
		resolved++
	}
	appLogger.Info(component, "Fallback resolution: resolved=%d", resolved)
}

// Match runs the full catalog matching chain: primary join on the raw
// feed key, canonical key derivation, then the catalog fallback.
func Match(rows []CompetitorRow, entries []MatchEntry, catalog []CatalogEntry, cfg config.Config, appLogger *logger.Logger) {
	PrimaryMatch(rows, entries, appLogger)
	DeriveKeys(rows, cfg)
	FallbackResolve(rows, catalog, appLogger)
}
