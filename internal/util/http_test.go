package util

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientSetsHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	cookieFile := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookieFile, []byte("\n  cf_clearance=abc  \nignored=1\n"), 0644))

	c, err := NewHTTPClient(HTTPClientOptions{
		Timeout:    5 * time.Second,
		UserAgent:  "batocbz-test",
		Cookie:     "session=1",
		CookieFile: cookieFile,
	})
	require.NoError(t, err)

	resp, err := c.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "batocbz-test", got.Get("User-Agent"))
	assert.Equal(t, "session=1; cf_clearance=abc", got.Get("Cookie"))
	assert.Equal(t, 5*time.Second, c.Timeout)
}

func TestHTTPClientCloudflareBypass(t *testing.T) {
	c, err := NewHTTPClient(HTTPClientOptions{CloudflareBypass: true})
	require.NoError(t, err)

	rt, ok := c.Transport.(roundTripper)
	require.True(t, ok)
	assert.NotNil(t, rt.base)
}

func TestJoinCookiesMissingFile(t *testing.T) {
	assert.Equal(t, "a=1", joinCookies(" a=1 ", filepath.Join(t.TempDir(), "nope")))
	assert.Equal(t, "", joinCookies("", ""))
}

func TestPickUserAgent(t *testing.T) {
	assert.Equal(t, "custom", PickUserAgent("custom"))
	assert.Contains(t, PickUserAgent(""), "Mozilla/5.0")
}
