package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const article = `<!doctype html>
<html><head><title>  On   Walking </title><style>p{color:red}</style></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
  <h1>On Walking</h1>
  <p>I have met with but one or two persons
     who understood the art of walking.</p>
  <p>Sauntering, it is said, comes from the Holy Land.</p>
</article>
<script>alert("x")</script>
<footer>© 1862</footer>
</body></html>`

func TestExtract(t *testing.T) {
	title, text := extract(article)

	assert.Equal(t, "On Walking", title)
	assert.Equal(t, "On Walking\n"+
		"I have met with but one or two persons who understood the art of walking.\n"+
		"Sauntering, it is said, comes from the Holy Land.", text)
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "1862")
}

func TestExtract_TruncatesOnRuneBoundary(t *testing.T) {
	_, text := extract("<p>" + strings.Repeat("ש", maxText) + "</p>")

	assert.True(t, strings.HasSuffix(text, "..."))
	assert.LessOrEqual(t, len(text), maxText+3)
	assert.True(t, strings.HasPrefix(text, "ש"))
	for _, r := range strings.TrimSuffix(text, "...") {
		assert.Equal(t, 'ש', r)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "echoes/1.0 (diary)", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(article))
	}))
	defer srv.Close()

	page, err := New(nil).Fetch(context.Background(), srv.URL+"/walking")

	require.NoError(t, err)
	assert.Equal(t, "On Walking", page.Title)
	assert.Contains(t, page.Text, "Holy Land")
}

func TestFetch_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			_, _ = w.Write([]byte("<html><body><script>x()</script></body></html>"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	f := New(nil)
	ctx := context.Background()

	_, err := f.Fetch(ctx, srv.URL+"/missing")
	require.ErrorContains(t, err, "HTTP 404")

	_, err = f.Fetch(ctx, srv.URL+"/empty")
	require.ErrorIs(t, err, ErrNoText)

	_, err = f.Fetch(ctx, "ftp://example.com/file")
	require.ErrorContains(t, err, "unsupported scheme")
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com"))
	assert.True(t, IsURL(" www.example.com"))
	assert.False(t, IsURL("today I walked"))
}
