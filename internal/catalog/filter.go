package catalog

import "strings"

// FilterAll is the sentinel select-box value meaning "no constraint".
const FilterAll = "all"

// Filter holds the user-controlled catalog constraints. The zero value
// matches every record.
type Filter struct {
	Search       string `json:"search"`
	Region       string `json:"region"`
	Industry     string `json:"industry"`
	Verification string `json:"verificationLevel"`
}

// Match reports whether a record passes every non-empty constraint. The
// search term is a case-insensitive substring match against the name or the
// location; the remaining fields are exact matches. A record missing a field
// never matches a non-empty constraint on it, and never causes a panic.
func (f Filter) Match(r DisplayRecord) bool {
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Name), term) &&
			!strings.Contains(strings.ToLower(r.Location), term) {
			return false
		}
	}
	if active(f.Region) && r.Region != f.Region {
		return false
	}
	if active(f.Industry) && r.Industry != f.Industry {
		return false
	}
	if active(f.Verification) && r.Verification != f.Verification {
		return false
	}
	return true
}

// Apply returns the records passing the filter, preserving input order.
func (f Filter) Apply(records []DisplayRecord) []DisplayRecord {
	var out []DisplayRecord
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func active(field string) bool {
	return field != "" && field != FilterAll
}
