package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func price(v string) *decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		weeks       []*decimal.Decimal
		scenario    string
		recommended string
	}{
		{
			name:        "no observations",
			weeks:       []*decimal.Decimal{nil, nil, nil, nil},
			scenario:    ScenarioInsufficient,
			recommended: RecIncomplete,
		},
		{
			name:        "single observation",
			weeks:       []*decimal.Decimal{nil, price("10"), nil, nil},
			scenario:    ScenarioInsufficient,
			recommended: RecIncomplete,
		},
		{
			name:        "two equal values",
			weeks:       []*decimal.Decimal{price("10"), nil, nil, price("10")},
			scenario:    Scenario1,
			recommended: "10",
		},
		{
			name:        "two distinct values recommend the newer",
			weeks:       []*decimal.Decimal{price("8"), nil, nil, price("9")},
			scenario:    Scenario2,
			recommended: "9",
		},
		{
			name:        "three values with leading pair",
			weeks:       []*decimal.Decimal{nil, price("15"), price("15"), price("15")},
			scenario:    Scenario3,
			recommended: "15",
		},
		{
			name:        "three values with trailing pair",
			weeks:       []*decimal.Decimal{nil, price("12"), price("15"), price("15")},
			scenario:    Scenario3,
			recommended: "15",
		},
		{
			name:        "three distinct values",
			weeks:       []*decimal.Decimal{nil, price("12"), price("13"), price("14")},
			scenario:    Scenario5,
			recommended: RecWeeklyChange,
		},
		{
			name:        "four values with one repeated pair",
			weeks:       []*decimal.Decimal{price("10"), price("10"), price("11"), price("12")},
			scenario:    Scenario4,
			recommended: "10",
		},
		{
			name:        "four values with a triple",
			weeks:       []*decimal.Decimal{price("10"), price("10"), price("10"), price("12")},
			scenario:    Scenario4,
			recommended: "10",
		},
		{
			name:        "two pairs recommend the most recent",
			weeks:       []*decimal.Decimal{price("10"), price("10"), price("12"), price("12")},
			scenario:    Scenario4,
			recommended: "12",
		},
		{
			name:        "four distinct values",
			weeks:       []*decimal.Decimal{price("10"), price("11"), price("12"), price("13")},
			scenario:    Scenario5,
			recommended: RecWeeklyChange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, recommended := Classify(tt.weeks)
			assert.Equal(t, tt.scenario, scenario)
			assert.Equal(t, tt.recommended, recommended)
		})
	}
}

func TestClassifyNumericEquality(t *testing.T) {
	// "10" and "10.00" are the same price even though the strings differ.
	scenario, recommended := Classify([]*decimal.Decimal{price("10"), nil, nil, price("10.00")})

	assert.Equal(t, Scenario1, scenario)
	assert.Equal(t, "10.00", recommended)
}

func TestStats(t *testing.T) {
	mean, median, mode := Stats([]*decimal.Decimal{price("10"), price("10"), price("11"), price("13")})

	assert.Equal(t, "11", mean)
	assert.Equal(t, "10.5", median)
	assert.Equal(t, "10", mode)
}

func TestStatsNoMode(t *testing.T) {
	mean, median, mode := Stats([]*decimal.Decimal{price("10"), price("11"), price("12"), nil})

	assert.Equal(t, "11", mean)
	assert.Equal(t, "11", median)
	assert.Equal(t, ModeNone, mode)
}

func TestStatsTiedModeIsNoMode(t *testing.T) {
	_, _, mode := Stats([]*decimal.Decimal{price("10"), price("10"), price("12"), price("12")})

	assert.Equal(t, ModeNone, mode)
}

func TestStatsEmpty(t *testing.T) {
	mean, median, mode := Stats([]*decimal.Decimal{nil, nil, nil, nil})

	assert.Empty(t, mean)
	assert.Empty(t, median)
	assert.Empty(t, mode)
}
