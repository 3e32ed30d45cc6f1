package pricing

// CompetitorRow is one observed product-price record. Every field is kept
// as text: the persisted snapshot format is all-string and numeric typing
// is the consumer's responsibility.
type CompetitorRow struct {
	Key         string // canal + "_" + canonical key, filled by the matcher
	Date        string // canonical YYYY-MM-DD
	Canal       string
	SKU         string
	UPC         string
	Item        string
	Image       string
	Price       string
	SalePrice   string
	SalesFlag   string
	UpcLlave    string // canonical cross-retailer key ("upc wm" in the raw feed)
	FinalPrice  string
	OwnUPC      string // "upc marca prop": operator catalog code, empty when unresolved
	OwnSKU      string // "código interno 1": operator SKU, empty when unresolved
	Category    string
	Subcategory string
	URLSku      string
	UpcAnterior string // UPC as extracted, before homologation
	StoreID     string
	LastPrice   string // prior final price, only when it differs from the current one

	// Raw feed fields, consumed before persistence and never written out.
	Stock               string
	ItemCharacteristics string
	StoreAddress        string
}

// MatchEntry is one row of the match table linking a competitor canonical
// key to the operator's own catalog codes.
type MatchEntry struct {
	UpcWMCompetitor string
	Competitor      string
	UpcClient       string
	SkuClient       string
}

// CatalogEntry is one row of the operator's client catalog. Lookup only,
// never mutated here.
type CatalogEntry struct {
	SKU         string
	EAN         string
	EanWM       string
	Description string
}

// columnValue maps a persisted snapshot column name (lowercase, except the
// historical "Key" header) to the row field backing it.
func (r CompetitorRow) columnValue(name string) string {
	switch name {
	case "Key", "key":
		return r.Key
	case "date":
		return r.Date
	case "canal":
		return r.Canal
	case "sku":
		return r.SKU
	case "upc":
		return r.UPC
	case "item":
		return r.Item
	case "image":
		return r.Image
	case "price":
		return r.Price
	case "sale price":
		return r.SalePrice
	case "sales flag":
		return r.SalesFlag
	case "upc llave", "upc wm":
		return r.UpcLlave
	case "final price":
		return r.FinalPrice
	case "upc marca prop":
		return r.OwnUPC
	case "código interno 1":
		return r.OwnSKU
	case "category":
		return r.Category
	case "subcategory":
		return r.Subcategory
	case "url sku":
		return r.URLSku
	case "upc_anterior":
		return r.UpcAnterior
	case "store id":
		return r.StoreID
	case "last_price":
		return r.LastPrice
	case "stock":
		return r.Stock
	case "item characteristics":
		return r.ItemCharacteristics
	case "store address":
		return r.StoreAddress
	default:
		return ""
	}
}
