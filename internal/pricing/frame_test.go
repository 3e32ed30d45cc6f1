package pricing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databunker/pricewatch/internal/config"
)

func TestSnapshotCSVPreservesCodesAndOrder(t *testing.T) {
	rows := []CompetitorRow{{
		Key:        "Alpha_0000000001123456",
		Date:       "2026-08-25",
		Canal:      "Alpha",
		SKU:        "A-1",
		UPC:        "11234567",
		UpcLlave:   "0000000001123456",
		FinalPrice: "129.00",
		OwnSKU:     "77",
		StoreID:    "100_alpha",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshotCSV(&buf, rows, config.SnapshotColumnOrder))

	header := buf.String()[:bytes.IndexByte(buf.Bytes(), '\n')]
	assert.Equal(t, "Key,date,canal,sku,upc,item,image,price,sale price,sales flag,upc llave,final price,upc marca prop,código interno 1,category,subcategory,url sku,upc_anterior,store id,last_price", header)

	parsed, err := ReadSnapshotCSV(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "0000000001123456", parsed[0].UpcLlave, "leading zeros survive the round trip")
	assert.Equal(t, "129.00", parsed[0].FinalPrice, "decimal strings stay untouched")
	assert.Equal(t, "Alpha_0000000001123456", parsed[0].Key)
}

func TestReadSnapshotCSVAcceptsRawFeedHeaders(t *testing.T) {
	csv := "date,canal,sku,upc,upc wm,final price,store id\n" +
		"2026-08-25,Alpha,A-1,11234567,0000000001123456,10,100_alpha\n"

	rows, err := ReadSnapshotCSV([]byte(csv))
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "0000000001123456", rows[0].UpcLlave, "the raw feed key column maps onto upc llave")
	assert.Empty(t, rows[0].Key)
}

func TestReadSnapshotCSVEmpty(t *testing.T) {
	rows, err := ReadSnapshotCSV(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseHomologation(t *testing.T) {
	data := []byte("upc_extraccion,upc_homologado\n123,456\n789,\n")

	mapping, err := ParseHomologation(data)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"123": "456"}, mapping, "rows without a homologated code are ignored")
}
