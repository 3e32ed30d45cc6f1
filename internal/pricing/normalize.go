package pricing

import (
	"regexp"
	"strings"

	"github.com/databunker/pricewatch/internal/config"
	"github.com/databunker/pricewatch/internal/logger"
)

var (
	priceNoisePattern = regexp.MustCompile(`[\$,\[\] ]`)
	stockSuffix       = regexp.MustCompile(`\.0+$`)
)

// HomogenizeDate maps the date formats seen in the feed to YYYY-MM-DD.
// Slashes are treated as dashes; a 2-character first token marks the value
// as DD-MM-YYYY and the tokens are reversed. Anything else passes through
// untouched.
func HomogenizeDate(value string) string {
	v := strings.ReplaceAll(strings.TrimSpace(value), "/", "-")
	parts := strings.Split(v, "-")
	if len(parts) != 3 {
		return v
	}
	if len(parts[0]) == 2 {
		return parts[2] + "-" + parts[1] + "-" + parts[0]
	}
	return v
}

func cleanPrice(value string) string {
	return priceNoisePattern.ReplaceAllString(value, "")
}

func cleanStock(value string) string {
	return stockSuffix.ReplaceAllString(value, "")
}

func isMissing(value string) bool {
	return value == "" || value == "nan"
}

// Normalize applies the snapshot cleaning rules in feed order: date
// homogenization, stock suffix cleanup, UPC validity plus zero-stripping,
// final-price validity (protected store ids keep their rows), price noise
// removal, SKU validity, and finally per-key dedup keeping the first
// occurrence. Re-running it over its own output changes nothing.
func Normalize(rows []CompetitorRow, cfg config.Config, appLogger *logger.Logger) []CompetitorRow {
	const component = "Normalize"

	initial := len(rows)
	out := make([]CompetitorRow, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	droppedUPC := 0
	droppedPrice := 0
	droppedSKU := 0
	droppedDup := 0

	for _, row := range rows {
		row.Date = HomogenizeDate(row.Date)
		row.Stock = cleanStock(row.Stock)

		upc := strings.TrimSpace(row.UPC)
		if isMissing(upc) || upc == "0" {
			droppedUPC++
			continue
		}
		// An all-zeros UPC strips down to nothing and is as invalid as
		// an empty one.
		row.UPC = strings.TrimLeft(upc, "0")
		if row.UPC == "" {
			droppedUPC++
			continue
		}

		finalPrice := strings.TrimSpace(row.FinalPrice)
		if (isMissing(finalPrice) || finalPrice == "0" || finalPrice == "0.0") && !cfg.IsProtectedStoreID(row.StoreID) {
			droppedPrice++
			continue
		}

		row.Price = cleanPrice(row.Price)
		row.SalePrice = cleanPrice(row.SalePrice)
		row.FinalPrice = cleanPrice(row.FinalPrice)

		if isMissing(strings.TrimSpace(row.SKU)) {
			droppedSKU++
			continue
		}

		dedupKey := row.Date + "\x1f" + row.StoreID + "\x1f" + row.SKU + "\x1f" + row.UPC
		if _, ok := seen[dedupKey]; ok {
			droppedDup++
			continue
		}
		seen[dedupKey] = struct{}{}

		out = append(out, row)
	}

	appLogger.Info(component, "Cleaned snapshot: initial=%d final=%d dropped_upc=%d dropped_price=%d dropped_sku=%d dropped_duplicates=%d",
		initial, len(out), droppedUPC, droppedPrice, droppedSKU, droppedDup)
	return out
}

// ApplyHomologation replaces extracted UPCs with their homologated codes,
// preserving the original value in upc_anterior for traceability.
func ApplyHomologation(rows []CompetitorRow, mapping map[string]string, appLogger *logger.Logger) {
	const component = "Homologation"

	replaced := 0
	for i := range rows {
		rows[i].UpcAnterior = rows[i].UPC
		if homologated, ok := mapping[rows[i].UPC]; ok {
			rows[i].UPC = homologated
			replaced++
		}
	}
	appLogger.Info(component, "Applied UPC homologation: mappings=%d replaced=%d", len(mapping), replaced)
}

// RenameChannels maps feed channel names to their reporting names.
func RenameChannels(rows []CompetitorRow, aliases map[string]string) {
	for i := range rows {
		if alias, ok := aliases[rows[i].Canal]; ok {
			rows[i].Canal = alias
		}
	}
}

// RemapPromoChannels fixes the promo-listing channels whose scraper places
// fields in nonstandard columns: subcategory arrives in item
// characteristics, the sales flag in store address, and the canonical key
// in stock. Runs before matching so the relocated key participates in the
// joins.
func RemapPromoChannels(rows []CompetitorRow, cfg config.Config, appLogger *logger.Logger) {
	const component = "PromoRemap"

	remapped := 0
	for i := range rows {
		if !cfg.IsRawKeyChannel(rows[i].Canal) {
			continue
		}
		rows[i].Subcategory = rows[i].ItemCharacteristics
		rows[i].SalesFlag = rows[i].StoreAddress
		rows[i].UpcLlave = rows[i].Stock
		remapped++
	}
	if remapped > 0 {
		appLogger.Info(component, "Remapped promo channel columns: rows=%d", remapped)
	}
}
