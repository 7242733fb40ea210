package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquanexus/credits-cli/internal/model"
)

func sampleRecords() []DisplayRecord {
	return []DisplayRecord{
		{ID: "a", MarketValue: "$37,500 MXN", WaterSaved: "1,500 m³", AvgCost: "$25 MXN/m³", Risk: model.RiskCritical, Verification: model.VerificationVeryHigh},
		{ID: "b", MarketValue: "$660,000 MXN", WaterSaved: "30,000 m³", AvgCost: "$22 MXN/m³", Risk: model.RiskMedium, Verification: model.VerificationHigh},
		{ID: "c", MarketValue: "$150,000 MXN", WaterSaved: "8,000 m³", AvgCost: "$19 MXN/m³", Risk: model.RiskLow, Verification: model.VerificationMedium},
		{ID: "d", MarketValue: "$350,000 MXN", WaterSaved: "12,500 m³", AvgCost: "$28 MXN/m³", Risk: model.RiskHigh, Verification: model.VerificationBasic},
	}
}

func ids(records []DisplayRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestSort_MarketValueDescending(t *testing.T) {
	t.Parallel()

	got := Sort(sampleRecords(), SortMarketValue)
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids(got))
}

func TestSort_CostAscending(t *testing.T) {
	t.Parallel()

	got := Sort(sampleRecords(), SortCost)
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids(got))
}

func TestSort_WaterSavedDescending(t *testing.T) {
	t.Parallel()

	got := Sort(sampleRecords(), SortWaterSaved)
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids(got))
}

func TestSort_RiskBySeverityNotCollation(t *testing.T) {
	t.Parallel()

	// Alphabetically "Alto" < "Bajo" < "Crítico" < "Medio"; severity order
	// must win.
	got := Sort(sampleRecords(), SortRisk)
	assert.Equal(t, []string{"a", "d", "b", "c"}, ids(got))
}

func TestSort_VerificationByRank(t *testing.T) {
	t.Parallel()

	got := Sort(sampleRecords(), SortVerification)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
}

func TestSort_UnknownKeyKeepsOrder(t *testing.T) {
	t.Parallel()

	got := Sort(sampleRecords(), SortKey("bogus"))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
}

func TestSort_StableAndIdempotent(t *testing.T) {
	t.Parallel()

	records := sampleRecords()
	// Duplicate values to exercise stability.
	records = append(records, DisplayRecord{ID: "b2", MarketValue: "$660,000 MXN", AvgCost: "$22 MXN/m³"})

	for _, key := range []SortKey{SortMarketValue, SortWaterSaved, SortRisk, SortVerification, SortCost} {
		once := Sort(records, key)
		twice := Sort(once, key)
		assert.Equal(t, ids(once), ids(twice), "key %s", key)
	}

	// Equal market values keep input order.
	got := Sort(records, SortMarketValue)
	require.Equal(t, "b", got[0].ID)
	require.Equal(t, "b2", got[1].ID)
}

// TestComparator_ConsistentOrdering checks totality: no pair may order both
// ways, and comparison against self is always zero.
func TestComparator_ConsistentOrdering(t *testing.T) {
	t.Parallel()

	records := sampleRecords()
	records = append(records, DisplayRecord{ID: "junk", MarketValue: "???", AvgCost: ""})

	for _, key := range []SortKey{SortMarketValue, SortWaterSaved, SortRisk, SortVerification, SortCost} {
		cmp := Comparator(key)
		for _, a := range records {
			assert.Zero(t, cmp(a, a), "key %s self-compare", key)
			for _, b := range records {
				assert.Equal(t, sign(cmp(a, b)), -sign(cmp(b, a)),
					"key %s records %s/%s", key, a.ID, b.ID)
			}
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestSort_MalformedValuesSortLowest(t *testing.T) {
	t.Parallel()

	records := []DisplayRecord{
		{ID: "broken", MarketValue: "no numbers here"},
		{ID: "ok", MarketValue: "$1,000 MXN"},
	}

	got := Sort(records, SortMarketValue)
	assert.Equal(t, []string{"ok", "broken"}, ids(got))
}

func TestDisplayNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"$37,500 MXN", 37500},
		{"1,500 m³", 1500},
		{"$25 MXN/m³", 25},
		{"0.21 ton CO₂e", 0.21},
		{"-12", -12},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, displayNumber(tt.in), 0.0001)
		})
	}
}
