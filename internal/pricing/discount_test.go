package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/databunker/pricewatch/internal/config"
)

func discountConfig() config.Config {
	c := testConfig()
	c.DiscountUPCs = []string{"111"}
	c.DiscountLabels = map[string]map[string]float64{
		"Alpha": {"20.2% de desc": 79.8727},
	}
	return c
}

func TestApplyPromoDiscounts(t *testing.T) {
	cfg := discountConfig()
	rows := []CompetitorRow{
		{Canal: "Alpha", UPC: "111", Price: "100", SalesFlag: "20.2% de desc", SalePrice: "0", FinalPrice: "0"},
		{Canal: "Alpha", UPC: "111", Price: "100", SalesFlag: "unknown label", FinalPrice: "100"},
		{Canal: "Alpha", UPC: "222", Price: "100", SalesFlag: "20.2% de desc", FinalPrice: "100"},
		{Canal: "Beta", UPC: "111", Price: "100", SalesFlag: "20.2% de desc", FinalPrice: "100"},
	}

	ApplyPromoDiscounts(rows, cfg, testLogger())

	assert.Equal(t, "79.87", rows[0].SalePrice, "the labeled discount rebuilds the sale price from the list price")
	assert.Equal(t, "79.87", rows[0].FinalPrice)

	assert.Equal(t, "100", rows[1].FinalPrice, "unmapped labels stay untouched")
	assert.Equal(t, "100", rows[2].FinalPrice, "unwatched UPCs stay untouched")
	assert.Equal(t, "100", rows[3].FinalPrice, "channels without a label map stay untouched")
}

func TestApplyPromoDiscountsSkipsUnparseablePrice(t *testing.T) {
	cfg := discountConfig()
	rows := []CompetitorRow{
		{Canal: "Alpha", UPC: "111", Price: "no price", SalesFlag: "20.2% de desc", FinalPrice: "50"},
	}

	ApplyPromoDiscounts(rows, cfg, testLogger())

	assert.Equal(t, "50", rows[0].FinalPrice)
}
