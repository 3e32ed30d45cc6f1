package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Scenario labels and recommendation sentinels are a downstream contract
// and stay in Spanish.
const (
	ScenarioInsufficient = "Sin datos suficientes"
	Scenario1            = "Escenario 1"
	Scenario2            = "Escenario 2"
	Scenario3            = "Escenario 3"
	Scenario4            = "Escenario 4"
	Scenario5            = "Escenario 5"

	RecIncomplete    = "Datos incompletos"
	RecWeeklyChange  = "No hay recomendacion por cambio de precio cada semana"
	RecNotApplicable = "No aplica"
	RecExceeds       = "Datos exceden escenarios definidos"

	ModeNone = "Sin moda"
)

type priceCount struct {
	value   decimal.Decimal
	count   int
	lastIdx int
}

// countDistinct groups equal prices preserving the index of each value's
// most recent occurrence. Equality is numeric, not textual, so "10" and
// "10.00" collapse into one group.
func countDistinct(prices []decimal.Decimal) []priceCount {
	groups := make([]priceCount, 0, len(prices))
	for i, price := range prices {
		found := false
		for j := range groups {
			if groups[j].value.Equal(price) {
				groups[j].count++
				groups[j].lastIdx = i
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, priceCount{value: price, count: 1, lastIdx: i})
		}
	}
	return groups
}

// Classify assigns one of the five price-stability scenarios to a key's
// weekly price history. The slice holds the oldest-to-newest week slots;
// nil entries are weeks the key was not observed. Only the observed values
// participate, in their original order.
//
// Ties between values repeated the same number of times resolve to the
// most recently observed value, so the recommendation tracks the latest
// stable price.
func Classify(weeks []*decimal.Decimal) (scenario, recommended string) {
	valid := make([]decimal.Decimal, 0, len(weeks))
	for _, w := range weeks {
		if w != nil {
			valid = append(valid, *w)
		}
	}

	switch len(valid) {
	case 0, 1:
		return ScenarioInsufficient, RecIncomplete

	case 2:
		if valid[0].Equal(valid[1]) {
			return Scenario1, valid[1].String()
		}
		return Scenario2, valid[1].String()

	case 3:
		if valid[0].Equal(valid[1]) {
			return Scenario3, valid[0].String()
		}
		if valid[1].Equal(valid[2]) {
			return Scenario3, valid[1].String()
		}
		return Scenario5, RecWeeklyChange

	case 4:
		groups := countDistinct(valid)

		repeatedTwice := make([]priceCount, 0, len(groups))
		maxCount := 0
		for _, g := range groups {
			if g.count == 2 {
				repeatedTwice = append(repeatedTwice, g)
			}
			if g.count > maxCount {
				maxCount = g.count
			}
		}

		if len(repeatedTwice) == 1 {
			return Scenario4, repeatedTwice[0].value.String()
		}
		if len(groups) == len(valid) {
			return Scenario5, RecWeeklyChange
		}
		if maxCount >= 2 {
			best := groups[0]
			for _, g := range groups[1:] {
				if g.count > best.count || (g.count == best.count && g.lastIdx > best.lastIdx) {
					best = g
				}
			}
			return Scenario4, best.value.String()
		}
		return Scenario5, RecNotApplicable

	default:
		return Scenario5, RecExceeds
	}
}

// Stats computes the mean, median and mode of the observed weekly prices,
// formatted for the permanence file. An empty observation set yields empty
// strings; a set with no value repeated yields the no-mode sentinel.
func Stats(weeks []*decimal.Decimal) (mean, median, mode string) {
	valid := make([]decimal.Decimal, 0, len(weeks))
	for _, w := range weeks {
		if w != nil {
			valid = append(valid, *w)
		}
	}
	if len(valid) == 0 {
		return "", "", ""
	}

	mean = decimal.Avg(valid[0], valid[1:]...).Round(2).String()

	ordered := make([]decimal.Decimal, len(valid))
	copy(ordered, valid)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].LessThan(ordered[j]) })
	mid := len(ordered) / 2
	if len(ordered)%2 == 1 {
		median = ordered[mid].Round(2).String()
	} else {
		median = decimal.Avg(ordered[mid-1], ordered[mid]).Round(2).String()
	}

	groups := countDistinct(valid)
	maxCount := 0
	modeTies := 0
	var modeValue decimal.Decimal
	for _, g := range groups {
		switch {
		case g.count > maxCount:
			maxCount = g.count
			modeValue = g.value
			modeTies = 1
		case g.count == maxCount:
			modeTies++
		}
	}
	if maxCount < 2 || modeTies > 1 {
		return mean, median, ModeNone
	}
	return mean, median, modeValue.Round(2).String()
}
