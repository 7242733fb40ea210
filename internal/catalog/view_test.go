package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquanexus/credits-cli/internal/model"
)

func viewFixture() []DisplayRecord {
	return NormalizeProjects([]model.Project{
		{ID: "a", Name: "Rancho San Miguel", Region: "Norte", WaterSavingsM3: 15000, PricePerCredit: 25.5},
		{ID: "b", Name: "Agroindustrial Del Valle", Region: "Norte", WaterSavingsM3: 30000, PricePerCredit: 22},
		{ID: "c", Name: "Finca La Esperanza", Region: "Sur", WaterSavingsM3: 8000, PricePerCredit: 18.75},
	})
}

func TestAssemble_DefaultSelectionIsFirstVisible(t *testing.T) {
	t.Parallel()

	v := Assemble(viewFixture(), Filter{}, SortMarketValue, "")

	require.NotNil(t, v.Selected)
	assert.Equal(t, "b", v.Selected.ID, "most valuable record selected by default")
	assert.Equal(t, "b", v.Visible[0].ID)
}

func TestAssemble_KeepsExplicitSelectionWhenVisible(t *testing.T) {
	t.Parallel()

	v := Assemble(viewFixture(), Filter{}, SortMarketValue, "c")

	require.NotNil(t, v.Selected)
	assert.Equal(t, "c", v.Selected.ID)
}

func TestAssemble_ReassignsSelectionAfterFilterChange(t *testing.T) {
	t.Parallel()

	records := viewFixture()

	// "c" is selected, then a filter excludes it.
	v := Assemble(records, Filter{Region: "Norte"}, SortMarketValue, "c")

	require.NotNil(t, v.Selected)
	assert.Equal(t, "b", v.Selected.ID, "selection falls to the first record of the new visible set")
}

func TestAssemble_EmptyVisibleSetClearsSelection(t *testing.T) {
	t.Parallel()

	v := Assemble(viewFixture(), Filter{Region: "Bajío"}, SortMarketValue, "a")

	assert.Nil(t, v.Selected)
	assert.Empty(t, v.Visible)
}

func TestAssemble_AggregatesIgnoreFilter(t *testing.T) {
	t.Parallel()

	records := viewFixture()
	all := Assemble(records, Filter{}, SortMarketValue, "")
	filtered := Assemble(records, Filter{Region: "Sur"}, SortMarketValue, "")

	assert.Equal(t, all.Totals, filtered.Totals, "aggregates describe the whole portfolio, not the visible subset")
	assert.Len(t, filtered.Visible, 1)
	assert.Equal(t, 3, filtered.Totals.ActiveRecords)
}

func TestAssemble_SortAppliesToFilteredSubsetOnly(t *testing.T) {
	t.Parallel()

	v := Assemble(viewFixture(), Filter{Region: "Norte"}, SortCost, "")

	require.Len(t, v.Visible, 2)
	assert.Equal(t, "b", v.Visible[0].ID, "cost ascending: $22 before $25.5")
	assert.Equal(t, "a", v.Visible[1].ID)
}
