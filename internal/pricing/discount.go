package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/databunker/pricewatch/internal/config"
	"github.com/databunker/pricewatch/internal/logger"
)

// ApplyPromoDiscounts reconstructs sale and final prices for the watched
// UPCs whose promo listings publish a discount label instead of the
// discounted amount. When a row's channel carries a label map and its
// sales flag matches one, the list price times the retained percentage
// replaces both sale price and final price, rounded to 2 decimals. Rows
// whose list price does not parse are skipped with a warning.
func ApplyPromoDiscounts(rows []CompetitorRow, cfg config.Config, appLogger *logger.Logger) {
	const component = "PromoDiscount"

	if len(cfg.DiscountUPCs) == 0 || len(cfg.DiscountLabels) == 0 {
		return
	}

	watched := make(map[string]struct{}, len(cfg.DiscountUPCs))
	for _, upc := range cfg.DiscountUPCs {
		watched[upc] = struct{}{}
	}

	hundred := decimal.NewFromInt(100)
	applied := 0
	for i := range rows {
		if _, ok := watched[rows[i].UPC]; !ok {
			continue
		}
		labels, ok := cfg.DiscountLabels[rows[i].Canal]
		if !ok {
			continue
		}
		pct, ok := labels[rows[i].SalesFlag]
		if !ok {
			continue
		}

		listPrice, err := decimal.NewFromString(strings.TrimSpace(rows[i].Price))
		if err != nil {
			appLogger.Warn(component, "Unparseable list price, discount skipped: upc=%s canal=%s price=%q",
				rows[i].UPC, rows[i].Canal, rows[i].Price)
			continue
		}

		discounted := listPrice.Mul(decimal.NewFromFloat(pct)).Div(hundred).Round(2)
		rows[i].SalePrice = discounted.String()
		rows[i].FinalPrice = discounted.String()
		applied++
	}

	if applied > 0 {
		appLogger.Info(component, "Applied promo discount overrides: rows=%d", applied)
	}
}
