package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleHTML(title string, paragraphs int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title><script>var tracking = true;</script></head><body>", title)
	b.WriteString(`<nav><a href="/">Home</a> <a href="/about">About</a></nav><article>`)
	fmt.Fprintf(&b, "<h1>%s</h1>", title)
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&b, "<p>Paragraph %d explains, in considerable detail, how the research pipeline gathers sources, reads them and summarises the findings for the reader.</p>", i)
	}
	b.WriteString("</article><footer>Copyright</footer></body></html>")
	return b.String()
}

func TestPageFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articleHTML("Pipeline Notes", 6)))
	})
	mux.HandleFunc("/long", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML("Long Read", 200)))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/data.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewPageFetcher()
	contents, err := f.Fetch(context.Background(), []string{
		server.URL + "/missing",
		server.URL + "/article",
		server.URL + "/data.json",
		server.URL + "/long",
	})
	require.NoError(t, err)
	require.Len(t, contents, 2)

	assert.Equal(t, server.URL+"/article", contents[0].URL)
	assert.Contains(t, contents[0].Title, "Pipeline Notes")
	assert.Contains(t, contents[0].Text, "Paragraph 0 explains")
	assert.NotContains(t, contents[0].Text, "tracking")

	assert.Equal(t, server.URL+"/long", contents[1].URL)
	assert.LessOrEqual(t, len([]rune(contents[1].Text)), 3000)
}

func TestPageFetcherAllFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewPageFetcher().Fetch(context.Background(), []string{server.URL + "/a", server.URL + "/b"})
	assert.ErrorContains(t, err, "no pages could be read")
}

func TestBlockText(t *testing.T) {
	got := blockText("<div><h2>Heading</h2><p>First   line</p><ul><li>item</li></ul></div>")
	assert.Equal(t, "Heading\nFirst line\nitem", got)
	assert.Equal(t, "", blockText(""))
}

func TestBlockTextNestedBlocks(t *testing.T) {
	got := blockText(`<ul><li><p>Nested paragraph</p></li><li>Plain</li></ul>` +
		"<blockquote><p>Quoted</p>\n<p>twice</p></blockquote><p>After</p>")
	assert.Equal(t, "Nested paragraph\nPlain\nQuoted twice\nAfter", got)
}
