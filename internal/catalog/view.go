package catalog

// View is the assembled structure handed to the presentation layer.
type View struct {
	Visible  []DisplayRecord `json:"visibleRecords"`
	Totals   Totals          `json:"aggregates"`
	Selected *DisplayRecord  `json:"selectedRecord"`
}

// Assemble runs the full pipeline: aggregates are computed over the
// unfiltered set, then the filter and sort shape the visible subset, and the
// selection is resolved against it. When selectedID is absent from the
// visible set — or empty — selection falls to the first visible record, or
// to nil when nothing is visible.
func Assemble(records []DisplayRecord, f Filter, key SortKey, selectedID string) View {
	v := View{Totals: Aggregate(records)}
	v.Visible = Sort(f.Apply(records), key)

	if len(v.Visible) == 0 {
		return v
	}
	if selectedID != "" {
		for i := range v.Visible {
			if v.Visible[i].ID == selectedID {
				v.Selected = &v.Visible[i]
				return v
			}
		}
	}
	v.Selected = &v.Visible[0]
	return v
}
