package pricing

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"
)

// readStringFrame loads a CSV keeping every column as text. Price and code
// columns must never go through numeric detection: leading zeros and exact
// decimal strings would be destroyed.
func readStringFrame(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithLazyQuotes(true),
	)
	if df.Error() != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to read CSV: %w", df.Error())
	}
	return df, nil
}

// columnIndex maps lowercased column names to the original header names so
// lookups tolerate header casing differences between feed files and
// persisted snapshots.
func columnIndex(df dataframe.DataFrame) map[string]string {
	index := make(map[string]string, len(df.Names()))
	for _, name := range df.Names() {
		index[strings.ToLower(strings.TrimSpace(name))] = name
	}
	return index
}

// frameGetter returns a closure reading column values by lowercase name
// from one frame row, yielding "" for absent columns.
func frameGetter(df dataframe.DataFrame) func(row int, column string) string {
	index := columnIndex(df)
	return func(row int, column string) string {
		name, ok := index[column]
		if !ok {
			return ""
		}
		return df.Col(name).Elem(row).String()
	}
}

// RowsFromDataFrame converts a snapshot frame into rows. It accepts both
// the raw feed shape ("upc wm", no Key column) and the persisted snapshot
// shape ("upc llave", Key column).
func RowsFromDataFrame(df dataframe.DataFrame) []CompetitorRow {
	getStr := frameGetter(df)
	index := columnIndex(df)

	llaveColumn := "upc llave"
	if _, ok := index[llaveColumn]; !ok {
		llaveColumn = "upc wm"
	}

	rows := make([]CompetitorRow, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		rows = append(rows, CompetitorRow{
			Key:                 getStr(i, "key"),
			Date:                getStr(i, "date"),
			Canal:               getStr(i, "canal"),
			SKU:                 getStr(i, "sku"),
			UPC:                 getStr(i, "upc"),
			Item:                getStr(i, "item"),
			Image:               getStr(i, "image"),
			Price:               getStr(i, "price"),
			SalePrice:           getStr(i, "sale price"),
			SalesFlag:           getStr(i, "sales flag"),
			UpcLlave:            getStr(i, llaveColumn),
			FinalPrice:          getStr(i, "final price"),
			OwnUPC:              getStr(i, "upc marca prop"),
			OwnSKU:              getStr(i, "código interno 1"),
			Category:            getStr(i, "category"),
			Subcategory:         getStr(i, "subcategory"),
			URLSku:              getStr(i, "url sku"),
			UpcAnterior:         getStr(i, "upc_anterior"),
			StoreID:             getStr(i, "store id"),
			LastPrice:           getStr(i, "last_price"),
			Stock:               getStr(i, "stock"),
			ItemCharacteristics: getStr(i, "item characteristics"),
			StoreAddress:        getStr(i, "store address"),
		})
	}
	return rows
}

// ReadSnapshotCSV parses a competitor snapshot file.
func ReadSnapshotCSV(data []byte) ([]CompetitorRow, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	df, err := readStringFrame(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return RowsFromDataFrame(df), nil
}

// WriteSnapshotCSV serializes rows using the given column order. The
// column set is fixed at persistence time so downstream consumers see a
// stable header.
func WriteSnapshotCSV(w io.Writer, rows []CompetitorRow, columns []string) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, columns)
	for _, row := range rows {
		record := make([]string, len(columns))
		for j, column := range columns {
			record[j] = row.columnValue(column)
		}
		records = append(records, record)
	}

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Error() != nil {
		return fmt.Errorf("failed to build snapshot frame: %w", df.Error())
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("failed to write snapshot CSV: %w", err)
	}
	return nil
}

// ParseMatchTable parses the match reference CSV. Expected columns:
// upcwm_competitor, competitor, upc_client, sku_client.
func ParseMatchTable(data []byte) ([]MatchEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	df, err := readStringFrame(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	getStr := frameGetter(df)

	entries := make([]MatchEntry, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		entries = append(entries, MatchEntry{
			UpcWMCompetitor: strings.TrimSpace(getStr(i, "upcwm_competitor")),
			Competitor:      strings.TrimSpace(getStr(i, "competitor")),
			UpcClient:       strings.TrimSpace(getStr(i, "upc_client")),
			SkuClient:       strings.TrimSpace(getStr(i, "sku_client")),
		})
	}
	return entries, nil
}

// ParseCatalog parses the operator's client catalog CSV. Column names are
// matched case-insensitively; the description column is any header
// containing both "descripción" and "sku".
func ParseCatalog(data []byte) ([]CatalogEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	df, err := readStringFrame(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	getStr := frameGetter(df)

	descColumn := ""
	for _, name := range df.Names() {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "descripción") && strings.Contains(lower, "sku") {
			descColumn = lower
			break
		}
	}

	entries := make([]CatalogEntry, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		entry := CatalogEntry{
			SKU:   strings.TrimSpace(getStr(i, "sku")),
			EAN:   strings.TrimSpace(getStr(i, "ean")),
			EanWM: strings.TrimSpace(getStr(i, "ean wm")),
		}
		if descColumn != "" {
			entry.Description = strings.TrimSpace(getStr(i, descColumn))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ParseHomologation parses the Latin-1 encoded UPC homologation CSV into
// an extracted-code to homologated-code mapping. Expected columns:
// upc_extraccion, upc_homologado.
func ParseHomologation(data []byte) (map[string]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]string{}, nil
	}

	decoded := charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(data))
	df, err := readStringFrame(decoded)
	if err != nil {
		return nil, err
	}
	getStr := frameGetter(df)

	mapping := make(map[string]string, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		from := strings.TrimSpace(getStr(i, "upc_extraccion"))
		to := strings.TrimSpace(getStr(i, "upc_homologado"))
		if from == "" || to == "" {
			continue
		}
		mapping[from] = to
	}
	return mapping, nil
}
