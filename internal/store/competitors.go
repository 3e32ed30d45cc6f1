package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/databunker/pricewatch/internal/pricing"
)

// CompetitorStore reads raw scraped price rows from the warehouse.
type CompetitorStore struct {
	DB *sqlx.DB
}

// competitorRecord mirrors the warehouse row shape. Everything is
// nullable text there, so every column scans into a plain string via
// COALESCE.
type competitorRecord struct {
	Date                string `db:"date"`
	Canal               string `db:"canal"`
	StoreID             string `db:"store_id"`
	SKU                 string `db:"sku"`
	UPC                 string `db:"upc"`
	UpcWM               string `db:"upc_wm"`
	Item                string `db:"item"`
	Image               string `db:"image"`
	Price               string `db:"price"`
	SalePrice           string `db:"sale_price"`
	SalesFlag           string `db:"sales_flag"`
	FinalPrice          string `db:"final_price"`
	Category            string `db:"category"`
	Subcategory         string `db:"subcategory"`
	URLSku              string `db:"url_sku"`
	Stock               string `db:"stock"`
	ItemCharacteristics string `db:"item_characteristics"`
	StoreAddress        string `db:"store_address"`
}

// FetchSnapshot pulls each store's most recent extraction at or before
// the target date. Stores scrape at different hours, so the latest date
// is resolved per store id instead of globally.
func (s *CompetitorStore) FetchSnapshot(ctx context.Context, channels, storeIDs []string, targetDate time.Time) ([]pricing.CompetitorRow, error) {
	// year and month are partition columns: they prune the scan but are
	// never selected.
	query := `
		WITH max_dates AS (
			SELECT store_id, MAX(date) AS max_date
			FROM competitor_prices
			WHERE store_id = ANY($1)
			  AND canal = ANY($2)
			  AND date <= $3
			  AND year = $4
			  AND month = $5
			GROUP BY store_id
		)
		SELECT
			COALESCE(cp.date, '')                 AS date,
			COALESCE(cp.canal, '')                AS canal,
			COALESCE(cp.store_id, '')             AS store_id,
			COALESCE(cp.sku, '')                  AS sku,
			COALESCE(cp.upc, '')                  AS upc,
			COALESCE(cp.upc_wm, '')               AS upc_wm,
			COALESCE(cp.item, '')                 AS item,
			COALESCE(cp.image, '')                AS image,
			COALESCE(cp.price, '')                AS price,
			COALESCE(cp.sale_price, '')           AS sale_price,
			COALESCE(cp.sales_flag, '')           AS sales_flag,
			COALESCE(cp.final_price, '')          AS final_price,
			COALESCE(cp.category, '')             AS category,
			COALESCE(cp.subcategory, '')          AS subcategory,
			COALESCE(cp.url_sku, '')              AS url_sku,
			COALESCE(cp.stock, '')                AS stock,
			COALESCE(cp.item_characteristics, '') AS item_characteristics,
			COALESCE(cp.store_address, '')        AS store_address
		FROM competitor_prices cp
		INNER JOIN max_dates md
			ON cp.store_id = md.store_id AND cp.date = md.max_date
		WHERE cp.canal = ANY($2)
		  AND cp.year = $4
		  AND cp.month = $5`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var records []competitorRecord
	err := s.DB.SelectContext(ctx, &records, query,
		pq.Array(storeIDs), pq.Array(channels), targetDate.Format("2006-01-02"),
		targetDate.Format("2006"), targetDate.Format("01"))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch competitor snapshot: %w", err)
	}

	rows := make([]pricing.CompetitorRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, pricing.CompetitorRow{
			Date:                r.Date,
			Canal:               r.Canal,
			StoreID:             r.StoreID,
			SKU:                 r.SKU,
			UPC:                 r.UPC,
			UpcLlave:            r.UpcWM,
			Item:                r.Item,
			Image:               r.Image,
			Price:               r.Price,
			SalePrice:           r.SalePrice,
			SalesFlag:           r.SalesFlag,
			FinalPrice:          r.FinalPrice,
			Category:            r.Category,
			Subcategory:         r.Subcategory,
			URLSku:              r.URLSku,
			Stock:               r.Stock,
			ItemCharacteristics: r.ItemCharacteristics,
			StoreAddress:        r.StoreAddress,
		})
	}
	return rows, nil
}
