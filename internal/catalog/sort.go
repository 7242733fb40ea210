package catalog

import (
	"slices"
	"strconv"
	"strings"

	"github.com/aquanexus/credits-cli/internal/model"
)

// SortKey names a catalog ordering.
type SortKey string

const (
	SortMarketValue  SortKey = "marketValue"
	SortWaterSaved   SortKey = "waterSaved"
	SortRisk         SortKey = "risk"
	SortVerification SortKey = "verification"
	SortCost         SortKey = "cost"
)

// Comparator returns a cmp-style comparison for the given key. Value,
// volume, risk and verification order descending (biggest first); cost
// orders ascending. An unknown key compares everything equal, which leaves
// the incoming order untouched under a stable sort.
func Comparator(key SortKey) func(a, b DisplayRecord) int {
	switch key {
	case SortMarketValue:
		return func(a, b DisplayRecord) int {
			return compareFloat(displayNumber(b.MarketValue), displayNumber(a.MarketValue))
		}
	case SortWaterSaved:
		return func(a, b DisplayRecord) int {
			return compareFloat(displayNumber(b.WaterSaved), displayNumber(a.WaterSaved))
		}
	case SortRisk:
		return func(a, b DisplayRecord) int {
			return b.Risk.Rank() - a.Risk.Rank()
		}
	case SortVerification:
		return func(a, b DisplayRecord) int {
			return model.VerificationRank(b.Verification) - model.VerificationRank(a.Verification)
		}
	case SortCost:
		return func(a, b DisplayRecord) int {
			return compareFloat(displayNumber(a.AvgCost), displayNumber(b.AvgCost))
		}
	default:
		return func(a, b DisplayRecord) int { return 0 }
	}
}

// Sort returns a sorted copy of the records. The sort is stable, so records
// that compare equal keep their input order.
func Sort(records []DisplayRecord, key SortKey) []DisplayRecord {
	out := make([]DisplayRecord, len(records))
	copy(out, records)
	slices.SortStableFunc(out, Comparator(key))
	return out
}

// displayNumber recovers the numeric value from a formatted display string:
// every rune except digits, the decimal point, and the minus sign is
// stripped before parsing. Malformed strings yield zero, so broken records
// sort as lowest instead of breaking the ordering.
func displayNumber(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
