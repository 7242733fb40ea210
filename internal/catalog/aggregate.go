package catalog

// Totals holds the portfolio-level KPIs. They describe the whole record set,
// never the filtered subset a user happens to be looking at.
type Totals struct {
	WaterVolumeM3  float64 `json:"totalWaterVolume"`
	MarketValueMXN float64 `json:"totalMonetaryValue"`
	ActiveRecords  int     `json:"activeRecordCount"`
}

// Aggregate reduces a normalized record set to its portfolio totals. Sums
// run over the raw numerics, not the formatted strings; an absent volume or
// value contributed zero at normalization time and simply adds nothing here.
// The record count includes every input record regardless of status.
func Aggregate(records []DisplayRecord) Totals {
	t := Totals{ActiveRecords: len(records)}
	for _, r := range records {
		t.WaterVolumeM3 += r.VolumeM3
		t.MarketValueMXN += r.ValueMXN
	}
	return t
}
