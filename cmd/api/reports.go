package main

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/databunker/pricewatch/internal/blob"
	"github.com/databunker/pricewatch/internal/pricing"
	"github.com/databunker/pricewatch/internal/response"
)

type snapshotInfo struct {
	Key  string `json:"key"`
	Date string `json:"date"`
}

// @Summary		List persisted snapshots
// @Description	returns the snapshot files available in the blob store, newest first
// @Tags			Snapshots
// @Produce		json
// @Success		200	{object}	response.APIResponse[[]snapshotInfo]
// @Router			/snapshots [get]
func (app *application) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	objects, err := app.blobs.List(r.Context(), app.pipeline.CompetitorsPrefix)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dated := blob.DatedObjects(objects, app.appLogger)
	blob.SortNewestFirst(dated)

	infos := make([]snapshotInfo, 0, len(dated))
	for _, obj := range dated {
		infos = append(infos, snapshotInfo{Key: obj.Key, Date: obj.Date.Format("2006-01-02")})
	}

	writeJSON(w, http.StatusOK, &response.APIResponse[[]snapshotInfo]{
		Success: true,
		Data:    infos,
	})
}

// @Summary		Latest snapshot
// @Description	returns the most recent snapshot as CSV
// @Tags			Snapshots
// @Produce		plain
// @Success		200	{string}	string
// @Router			/snapshots/latest [get]
func (app *application) handleGetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	objects, err := app.blobs.List(r.Context(), app.pipeline.CompetitorsPrefix)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	latest, found := blob.Latest(blob.DatedObjects(objects, app.appLogger), app.appLogger)
	if !found {
		writeJSONError(w, http.StatusNotFound, "no snapshots available")
		return
	}

	data, err := app.blobs.Get(r.Context(), latest.Key)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type permanenceItem struct {
	Key         string `json:"key"`
	Upc         string `json:"upc"`
	WeekN4      string `json:"week_n4"`
	WeekN3      string `json:"week_n3"`
	WeekN2      string `json:"week_n2"`
	WeekN1      string `json:"week_n1"`
	Mean        string `json:"mean"`
	Median      string `json:"median"`
	Mode        string `json:"mode"`
	Recommended string `json:"recommended"`
	Scenario    string `json:"scenario"`
	SKU         string `json:"sku"`
	EAN         string `json:"ean"`
	Description string `json:"description"`
	Canal       string `json:"canal"`
}

func weekValue(w *decimal.Decimal) string {
	if w == nil {
		return ""
	}
	return w.String()
}

// @Summary		Permanence table
// @Description	returns the current price-stability classification per key
// @Tags			Permanence
// @Produce		json
// @Success		200	{object}	response.APIResponse[[]permanenceItem]
// @Router			/permanence [get]
func (app *application) handleGetPermanence(w http.ResponseWriter, r *http.Request) {
	key := app.pipeline.PermanencePrefix + app.pipeline.PermanenceFile
	data, err := app.blobs.Get(r.Context(), key)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "permanence table not available")
		return
	}

	records, err := pricing.ReadPermanenceCSV(data)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]permanenceItem, 0, len(records))
	for _, rec := range records {
		items = append(items, permanenceItem{
			Key:         rec.AggKey,
			Upc:         rec.Upc,
			WeekN4:      weekValue(rec.Weeks[0]),
			WeekN3:      weekValue(rec.Weeks[1]),
			WeekN2:      weekValue(rec.Weeks[2]),
			WeekN1:      weekValue(rec.Weeks[3]),
			Mean:        rec.Mean,
			Median:      rec.Median,
			Mode:        rec.Mode,
			Recommended: rec.Recommended,
			Scenario:    rec.Scenario,
			SKU:         rec.SKU,
			EAN:         rec.EAN,
			Description: rec.Description,
			Canal:       rec.Canal,
		})
	}

	writeJSON(w, http.StatusOK, &response.APIResponse[[]permanenceItem]{
		Success: true,
		Data:    items,
	})
}

// @Summary		Latest validation report
// @Description	returns the most recent validation report as plain text
// @Tags			Validation
// @Produce		plain
// @Success		200	{string}	string
// @Router			/validation/report [get]
func (app *application) handleGetValidationReport(w http.ResponseWriter, r *http.Request) {
	objects, err := app.blobs.List(r.Context(), app.pipeline.LogsPrefix)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	latest, found := blob.Latest(blob.DatedObjects(objects, app.appLogger), app.appLogger)
	if !found {
		writeJSONError(w, http.StatusNotFound, "no validation reports available")
		return
	}

	data, err := app.blobs.Get(r.Context(), latest.Key)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
