package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceAccumulator(t *testing.T) {
	var acc SourceAccumulator

	assert.Equal(t, 0, acc.Append(SearchResult{URL: "a", Content: "old a"}))
	start := acc.Append(
		SearchResult{URL: "b", Content: "snippet b"},
		SearchResult{URL: "c", Content: "snippet c"},
		SearchResult{URL: "a", Content: "snippet a"},
	)
	assert.Equal(t, 1, start)
	assert.Equal(t, 4, acc.Len())

	acc.Refine(start, []SearchResult{
		{URL: "a", Content: "full a"},
		{URL: "b", Content: "full b"},
	})

	items := acc.Items()
	assert.Equal(t, "old a", items[0].Content, "entries before start are not refined")
	assert.Equal(t, "full b", items[1].Content)
	assert.Equal(t, "snippet c", items[2].Content)
	assert.Equal(t, "full a", items[3].Content)

	items[0].Content = "mutated"
	assert.Equal(t, "old a", acc.Items()[0].Content)
}
