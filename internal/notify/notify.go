package notify

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/databunker/pricewatch/internal/pricing"
)

// Change is one watched product whose price moved beyond the threshold.
type Change struct {
	Canal      string
	UPC        string
	Item       string
	LastPrice  string
	FinalPrice string
	ChangePct  string // signed percentage, two decimals
}

// Sink delivers a price-change alert. The production sink is SMTP; tests
// capture in memory.
type Sink interface {
	Send(ctx context.Context, subject string, changes []Change, summary []pricing.CompetitorRow) error
}

func inSet(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// DetectChanges finds watched UPCs whose price moved at least
// thresholdPct against their prior snapshot value. Rows without a prior
// price or with non-numeric prices never alert. An empty watch list
// watches everything.
func DetectChanges(rows []pricing.CompetitorRow, watchUPCs []string, thresholdPct float64) []Change {
	threshold := decimal.NewFromFloat(thresholdPct)
	hundred := decimal.NewFromInt(100)

	var changes []Change
	for _, row := range rows {
		if len(watchUPCs) > 0 && !inSet(watchUPCs, row.UPC) {
			continue
		}
		if row.LastPrice == "" {
			continue
		}
		last, err := decimal.NewFromString(strings.TrimSpace(row.LastPrice))
		if err != nil || last.IsZero() {
			continue
		}
		current, err := decimal.NewFromString(strings.TrimSpace(row.FinalPrice))
		if err != nil {
			continue
		}

		pct := current.Sub(last).Div(last).Mul(hundred).Round(2)
		if pct.Abs().LessThan(threshold) {
			continue
		}
		changes = append(changes, Change{
			Canal:      row.Canal,
			UPC:        row.UPC,
			Item:       row.Item,
			LastPrice:  last.String(),
			FinalPrice: current.String(),
			ChangePct:  pct.String(),
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Canal != changes[j].Canal {
			return changes[i].Canal < changes[j].Canal
		}
		return changes[i].Item < changes[j].Item
	})
	return changes
}

// Summarize filters the snapshot down to the watched UPCs on the
// reporting channels, ordered for the alert body.
func Summarize(rows []pricing.CompetitorRow, watchUPCs, channels []string) []pricing.CompetitorRow {
	var out []pricing.CompetitorRow
	for _, row := range rows {
		if len(watchUPCs) > 0 && !inSet(watchUPCs, row.UPC) {
			continue
		}
		if len(channels) > 0 && !inSet(channels, row.Canal) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Canal != out[j].Canal {
			return out[i].Canal < out[j].Canal
		}
		return out[i].Item < out[j].Item
	})
	return out
}
