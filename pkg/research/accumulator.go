package research

// SourceAccumulator collects every search result of one run, duplicates included.
// Tool invocations within a run are sequential, so it carries no lock.
type SourceAccumulator struct {
	items []SearchResult
}

// Append adds results and returns the index of the first appended item.
func (a *SourceAccumulator) Append(results ...SearchResult) int {
	start := len(a.items)
	a.items = append(a.items, results...)
	return start
}

// Refine overwrites entries appended at or after from with their refined
// counterpart (matched by URL). Entries with no refined match are left alone.
func (a *SourceAccumulator) Refine(from int, refined []SearchResult) {
	byURL := make(map[string]SearchResult, len(refined))
	for _, r := range refined {
		byURL[r.URL] = r
	}
	for i := from; i < len(a.items); i++ {
		if r, ok := byURL[a.items[i].URL]; ok {
			a.items[i] = r
		}
	}
}

func (a *SourceAccumulator) Len() int { return len(a.items) }

// Items returns a copy of the accumulated results in insertion order.
func (a *SourceAccumulator) Items() []SearchResult {
	out := make([]SearchResult, len(a.items))
	copy(out, a.items)
	return out
}
