// Package report exports catalog views for offline review.
package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/aquanexus/credits-cli/internal/catalog"
)

var header = []string{
	"ID", "Nombre", "Industria", "Región", "Ubicación",
	"Agua Ahorrada", "Valor de Mercado", "Costo Promedio",
	"Riesgo", "Verificación", "CO₂ Evitado",
}

// WriteXLSX writes a catalog view to an XLSX workbook with a summary row.
func WriteXLSX(path string, records []catalog.DisplayRecord, totals catalog.Totals) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Catálogo")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().Value = h
	}

	for _, r := range records {
		row := sheet.AddRow()
		for _, v := range []string{
			r.ID, r.Name, r.Industry, r.Region, r.Location,
			r.WaterSaved, r.MarketValue, r.AvgCost,
			string(r.Risk), r.Verification, r.CO2Avoided,
		} {
			row.AddCell().Value = v
		}
	}

	sheet.AddRow()
	summary := sheet.AddRow()
	summary.AddCell().Value = "Totales"
	summary.AddCell().Value = catalog.FormatVolume(totals.WaterVolumeM3)
	summary.AddCell().Value = catalog.FormatMXN(totals.MarketValueMXN)

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}
