package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const duckPage = `<html><body>
<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&rut=x">The <b>Go</b> Programming Language</a>
<a href="/settings">Settings</a>
<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fpkg.go.dev%2F">Go Packages</a>
<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F">Duplicate</a>
</body></html>`

func TestWebSearchFormatsResults(t *testing.T) {
	t.Parallel()

	var gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAgent = r.Header.Get("User-Agent")
		io.WriteString(w, duckPage)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/html/", 5*time.Second)
	got, err := c.WebSearch(context.Background(), "golang docs")
	require.NoError(t, err)

	assert.Equal(t, "golang docs", gotQuery)
	assert.Contains(t, gotAgent, "Mozilla")
	assert.Equal(t, "The Go Programming Language: https://go.dev/\nGo Packages: https://pkg.go.dev/", got)
}

func TestWebSearchCapsAtFive(t *testing.T) {
	t.Parallel()

	var page strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&page, `<a href="/url?q=https://example.com/%d&sa=U">Result %d</a>`, i, i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page.String())
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second).WebSearch(context.Background(), "q")
	require.NoError(t, err)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Result 0: https://example.com/0", lines[0])
}

func TestWebSearchNoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><a href="/about">About</a></html>`)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second).WebSearch(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Equal(t, NoResults, got)
}

func TestWebSearchHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).WebSearch(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestResultTarget(t *testing.T) {
	t.Parallel()

	cases := []struct {
		href string
		want string
	}{
		{href: "", want: ""},
		{href: "/settings", want: ""},
		{href: "/url?q=https://a.example/&sa=U", want: "https://a.example/"},
		{href: "//duckduckgo.com/l/?uddg=https%3A%2F%2Fb.example", want: "https://b.example"},
		{href: "https://c.example/?q=ignored", want: ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, resultTarget(tc.href), tc.href)
	}
}
