package config

import (
	"strings"
	"time"

	"github.com/databunker/pricewatch/internal/env"
)

// Config carries every channel / store-id specific rule of the pipeline as
// explicit named sets so they can be tested and audited independently of the
// transformation code.
type Config struct {
	// Source selection
	Channels []string
	StoreIDs []string

	// Store ids whose rows may legitimately lack a final price
	// (promotional listing pages) and must not be dropped for it.
	ProtectedStoreIDs []string

	// Channels excluded from the permanence aggregation.
	ExcludedChannels []string

	// Channels whose join key is taken verbatim from the feed instead of
	// being rederived, because their promo listings carry UPC/stock in
	// nonstandard positions that are remapped before matching.
	RawKeyChannels []string

	// Substrings identifying the retailer family whose UPCs keep their
	// final digit during canonical key derivation.
	WalmartMarkers []string

	// Feed channel name -> reporting channel name.
	ChannelAliases map[string]string

	// UPCs whose promo listings publish a discount label instead of the
	// discounted price, and the per-channel label -> retained percentage
	// of the list price used to reconstruct it.
	DiscountUPCs   []string
	DiscountLabels map[string]map[string]float64

	// Columns used to match a row to its historical counterpart.
	MergeKeys []string

	// Weekday of the weekly snapshot cadence used by history selection.
	CadenceWeekday time.Weekday

	// Fixed column order of persisted snapshots.
	SnapshotColumns []string

	// Blob store layout
	Bucket             string
	CompetitorsPrefix  string
	PermanencePrefix   string
	MatchPrefix        string
	ClientPrefix       string
	HomologationPrefix string
	LogsPrefix         string

	SnapshotFilePattern string
	PermanenceFile      string
	HomologationFile    string

	// Validation
	CountDropThresholdPct float64

	// Notification
	WatchUPCs          []string
	NotifyChannels     []string
	ChangeThresholdPct float64
}

// SnapshotColumnOrder is the wire contract of persisted snapshot files. The
// lowercase Spanish headers are part of the downstream format and must not
// be translated.
var SnapshotColumnOrder = []string{
	"Key", "date", "canal", "sku", "upc", "item", "image",
	"price", "sale price", "sales flag", "upc llave", "final price",
	"upc marca prop", "código interno 1", "category", "subcategory",
	"url sku", "upc_anterior", "store id", "last_price",
}

// GLP-1 pen listings publish tiered discount labels instead of the
// discounted price. Benavides labels the tier in the sales flag text;
// Farmacias del Ahorro encodes it as a catalog label image URL.
var defaultDiscountUPCs = []string{
	"7501082243741", "7501082243727", "7501082243710",
	"7501082243734", "7501082243642", "7501082243635",
}

var defaultDiscountLabels = map[string]map[string]float64{
	"Benavides": {
		"5.13% de desc":  94.90180,
		"20.2% de desc":  79.87270,
		"40.3% de desc":  59.74536,
		"20.48% de desc": 79.60690,
		"19.25% de desc": 80.78000,
		"38.44% de desc": 61.55915,
	},
	"Farmacias del Ahorro": {
		"https://www.fahorro.com/media/cataloglabel/7501082243741.png": 94.90180,
		"https://www.fahorro.com/media/cataloglabel/7501082243727.png": 79.87270,
		"https://www.fahorro.com/media/cataloglabel/7501082243710.png": 59.74536,
		"https://www.fahorro.com/media/cataloglabel/7501082243734.png": 79.60690,
		"https://www.fahorro.com/media/cataloglabel/7501082243642.png": 80.78000,
		"https://www.fahorro.com/media/cataloglabel/7501082243635.png": 61.55915,
	},
}

var defaultChannelAliases = map[string]string{
	"Farmacias del Ahorro - Online": "Farmacias del Ahorro",
	"Farmacias GDL - Online":        "Farmacias GDL",
	"Farmacias San Pablo - Online":  "Farmacias San Pablo",
	"Walmart - Tepeyac":             "Walmart",
	"Farmacias Similares":           "Similares CDMX",
	"Benavides - Online":            "Benavides",
	"Soriana - MIYANA":              "Soriana",
}

// FromEnv builds the production configuration, with env overrides for the
// deployment-specific pieces.
func FromEnv() Config {
	return Config{
		Channels: env.GetStringSlice("PIPELINE_CHANNELS", []string{
			"farmaciasBenavides", "farmaciasSanPablo", "farmaciasdelahorro",
			"farmaciasGDL", "walmart", "soriana", "farmaciasDesimilares",
		}),
		StoreIDs: env.GetStringSlice("PIPELINE_STORE_IDS", []string{
			"9999_benavides_promos", "9999_benavides", "9999_farmaciassanpablo",
			"9999_farmaciasdelahorro", "44100_farmaciasgdl",
			"9999_farmaciasdelahorro_promos", "2345_walmart_retail",
			"9999_farmaciassimilares",
		}),
		ProtectedStoreIDs: []string{
			"9999_farmaciasdelahorro_promos",
			"9999_benavides_promos",
		},
		ExcludedChannels: []string{
			"Farmacias del Ahorro - Promos",
			"Benavides - Plan de Lealtad",
		},
		RawKeyChannels: []string{
			"Farmacias del Ahorro - Promos",
			"Benavides - Plan de Lealtad",
		},
		WalmartMarkers: []string{"Walmart", "walmart"},
		ChannelAliases: defaultChannelAliases,
		DiscountUPCs:   env.GetStringSlice("PIPELINE_DISCOUNT_UPCS", defaultDiscountUPCs),
		DiscountLabels: defaultDiscountLabels,
		MergeKeys:      env.GetStringSlice("PIPELINE_MERGE_KEYS", []string{"canal", "sku", "upc"}),
		CadenceWeekday: time.Weekday(env.GetInt("PIPELINE_CADENCE_WEEKDAY", int(time.Tuesday))),

		SnapshotColumns: SnapshotColumnOrder,

		Bucket:             env.GetString("BLOB_BUCKET", "data-bunker-prod-env"),
		CompetitorsPrefix:  env.GetString("PREFIX_COMPETITORS", "derivables/yza/competitors_hist/"),
		PermanencePrefix:   env.GetString("PREFIX_PERMANENCE", "derivables/yza/permanencia/"),
		MatchPrefix:        env.GetString("PREFIX_MATCH", "derivables/yza/match/"),
		ClientPrefix:       env.GetString("PREFIX_CLIENT", "derivables/yza/client/"),
		HomologationPrefix: env.GetString("PREFIX_UPC_HOMOLOGATION", "derivables/yza/upc_files/"),
		LogsPrefix:         env.GetString("PREFIX_LOGS", "derivables/yza/logs/"),

		SnapshotFilePattern: env.GetString("SNAPSHOT_FILE_PATTERN", "competitors_local_%s.csv"),
		PermanenceFile:      env.GetString("PERMANENCE_FILE", "permanencia_precios.csv"),
		HomologationFile:    env.GetString("HOMOLOGATION_FILE", "upc_homologation.csv"),

		CountDropThresholdPct: env.GetFloat("VALIDATION_COUNT_DROP_PCT", 10.0),

		WatchUPCs: env.GetStringSlice("NOTIFY_WATCH_UPCS", nil),
		NotifyChannels: env.GetStringSlice("NOTIFY_CHANNELS", []string{
			"Benavides", "Farmacias del Ahorro", "Farmacias GDL",
			"Farmacias San Pablo", "Walmart", "Similares CDMX",
		}),
		ChangeThresholdPct: env.GetFloat("NOTIFY_CHANGE_THRESHOLD_PCT", 5.0),
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (c Config) IsProtectedStoreID(storeID string) bool {
	return contains(c.ProtectedStoreIDs, storeID)
}

func (c Config) IsExcludedChannel(channel string) bool {
	return contains(c.ExcludedChannels, channel)
}

func (c Config) IsRawKeyChannel(channel string) bool {
	return contains(c.RawKeyChannels, channel)
}

// IsWalmartLike reports whether the channel belongs to the retailer family
// whose UPCs keep their check digit.
func (c Config) IsWalmartLike(channel string) bool {
	for _, marker := range c.WalmartMarkers {
		if strings.Contains(channel, marker) {
			return true
		}
	}
	return false
}
