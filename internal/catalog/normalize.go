// Package catalog implements the marketplace view-model pipeline: raw
// project and company records are normalized into display records, filtered,
// sorted, and reduced into portfolio aggregates. Every function here is pure;
// persistence and transport live elsewhere.
package catalog

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aquanexus/credits-cli/internal/model"
)

// CO2KgPerM3 is the pumping-energy emission factor for Mexican agriculture:
// one m³ of water saved avoids 0.14 kg CO₂e.
const CO2KgPerM3 = 0.14

// Fallback labels substituted for absent source fields.
const (
	FallbackName     = "Proyecto Sin Nombre"
	FallbackIndustry = "Agricultura"
)

// esMX formats numbers with es-MX grouping (comma thousands separators).
var esMX = message.NewPrinter(language.MustParse("es-MX"))

// DisplayRecord is the uniform, ephemeral shape the presentation layer
// consumes. Formatted strings carry locale grouping; the raw numerics they
// were derived from are kept alongside so aggregation never re-parses text.
type DisplayRecord struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Industry     string     `json:"industry"`
	Region       string     `json:"region"`
	Location     string     `json:"location"`
	WaterSaved   string     `json:"waterSaved"`
	MarketValue  string     `json:"creditsSupported"`
	AvgCost      string     `json:"avgCost"`
	Risk         model.Risk `json:"risk"`
	Verification string     `json:"verification"`
	Projects     int        `json:"projects"`
	CO2Avoided   string     `json:"co2Avoided"`
	LastUpdate   string     `json:"lastUpdate"`

	VolumeM3     float64 `json:"volume_m3"`
	UnitPriceMXN float64 `json:"unit_price_mxn"`
	ValueMXN     float64 `json:"value_mxn"`
	CO2Tons      float64 `json:"co2_tons"`
}

// RiskFromScore partitions a 0–100 water-stress score into severity bands.
// A missing or zero score classifies as the lowest band so downstream
// comparators never see an unranked record.
func RiskFromScore(score float64) model.Risk {
	switch {
	case score >= 80:
		return model.RiskCritical
	case score >= 50:
		return model.RiskHigh
	default:
		return model.RiskLow
	}
}

// CO2Tons converts a saved water volume to avoided CO₂e in metric tons,
// rounded to two decimals.
func CO2Tons(volumeM3 float64) float64 {
	return math.Round(volumeM3*CO2KgPerM3/1000*100) / 100
}

// NormalizeProject maps a raw project row into a DisplayRecord. Absent
// numeric fields contribute zero and absent strings get fixed fallbacks;
// this function never fails on an incomplete row.
func NormalizeProject(p model.Project) DisplayRecord {
	volume := p.WaterSavingsM3
	price := p.PricePerCredit
	value := volume * price

	name := p.Name
	if name == "" {
		name = FallbackName
	}
	industry := p.Crop
	if industry == "" {
		industry = FallbackIndustry
	}

	verification := model.VerificationPending
	if p.VerifiedByAI {
		verification = model.VerificationAI
	}
	if p.VerificationLevel != "" {
		verification = p.VerificationLevel
	}

	return DisplayRecord{
		ID:           p.ID,
		Name:         name,
		Industry:     industry,
		Region:       p.Region,
		Location:     p.Location,
		WaterSaved:   FormatVolume(volume),
		MarketValue:  FormatMXN(value),
		AvgCost:      FormatUnitCost(price),
		Risk:         RiskFromScore(p.RiskScore),
		Verification: verification,
		Projects:     1,
		CO2Avoided:   FormatCO2(CO2Tons(volume)),
		LastUpdate:   "En tiempo real",
		VolumeM3:     volume,
		UnitPriceMXN: price,
		ValueMXN:     value,
		CO2Tons:      CO2Tons(volume),
	}
}

// NormalizeCompany maps a buyer account row into a DisplayRecord. Companies
// carry no water volume or unit price; their display value falls back to the
// stored budget, and risk arrives as a label instead of a score.
func NormalizeCompany(c model.Company) DisplayRecord {
	name := c.Name
	if name == "" {
		name = FallbackName
	}
	industry := c.Industry
	if industry == "" {
		industry = FallbackIndustry
	}

	return DisplayRecord{
		ID:           c.ID,
		Name:         name,
		Industry:     industry,
		Region:       c.Region,
		Location:     c.Region,
		WaterSaved:   FormatVolume(0),
		MarketValue:  FormatMXN(c.TotalBudgetMXN),
		AvgCost:      FormatUnitCost(0),
		Risk:         model.ParseRisk(c.RiskLevel),
		Verification: model.VerificationPending,
		Projects:     0,
		CO2Avoided:   FormatCO2(c.CO2AchievedTons),
		LastUpdate:   "En tiempo real",
		ValueMXN:     c.TotalBudgetMXN,
		CO2Tons:      c.CO2AchievedTons,
	}
}

// NormalizeProjects maps a batch of project rows, preserving input order.
func NormalizeProjects(projects []model.Project) []DisplayRecord {
	records := make([]DisplayRecord, len(projects))
	for i, p := range projects {
		records[i] = NormalizeProject(p)
	}
	return records
}

// FormatVolume renders a water volume with es-MX grouping and no decimals,
// e.g. "1,500 m³".
func FormatVolume(m3 float64) string {
	return esMX.Sprintf("%d m³", int64(math.Round(m3)))
}

// FormatMXN renders a monetary amount with es-MX grouping and no decimals,
// e.g. "$37,500 MXN".
func FormatMXN(v float64) string {
	return esMX.Sprintf("$%d MXN", int64(math.Round(v)))
}

// FormatUnitCost renders a per-m³ unit price, e.g. "$25 MXN/m³".
func FormatUnitCost(price float64) string {
	return esMX.Sprintf("$%d MXN/m³", int64(math.Round(price)))
}

// FormatCO2 renders avoided emissions in tons, e.g. "0.21 ton CO₂e".
func FormatCO2(tons float64) string {
	return esMX.Sprintf("%.2f ton CO₂e", tons)
}
