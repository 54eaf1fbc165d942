package research

// Aggregate builds the final payload from a finished run. It is pure: the same
// input always yields the same output and the inputs are not modified.
//
// Sources are deduplicated by URL. An entry keeps the position of the first
// occurrence of its URL but the value of the last one.
func Aggregate(toolResults []ToolResult, sources []SearchResult) FinalResearch {
	charts := []ChartArtifact{}
	for _, tr := range toolResults {
		if tr.ToolName != ToolCodeRunner {
			continue
		}
		charts = append(charts, chartsOf(tr.Result)...)
	}

	index := make(map[string]int, len(sources))
	deduped := make([]SearchResult, 0, len(sources))
	for _, s := range sources {
		if i, ok := index[s.URL]; ok {
			deduped[i] = s
			continue
		}
		index[s.URL] = len(deduped)
		deduped = append(deduped, s)
	}
	for i := range deduped {
		deduped[i].Content = truncateWithEllipsis(deduped[i].Content, maxSourceContent)
	}

	results := make([]ToolResult, len(toolResults))
	copy(results, toolResults)

	return FinalResearch{
		ToolResults: results,
		Sources:     deduped,
		Charts:      charts,
	}
}

// chartsOf returns the charts of a codeRunner result, accepting both the typed
// output and its decoded JSON form.
func chartsOf(result any) []ChartArtifact {
	switch r := result.(type) {
	case CodeRunnerOutput:
		return r.Charts
	case *CodeRunnerOutput:
		if r != nil {
			return r.Charts
		}
	case map[string]any:
		list, ok := r["charts"].([]any)
		if !ok {
			return nil
		}
		var charts []ChartArtifact
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				charts = append(charts, ChartArtifact(m))
			}
		}
		return charts
	}
	return nil
}
