package fileserver

import (
	"io/ioutil"
	"net/http"
	"net/netip"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	root := t.TempDir()
	err := ioutil.WriteFile(filepath.Join(root, "index.html"), []byte("<html><body>hello</body></html>"), 0o644)
	require.NoError(t, err)

	static, err := Static(root)
	require.NoError(t, err)
	server, err := New(Options{
		Bind:    netip.MustParseAddrPort("127.0.0.1:0"),
		Handler: CORSHandler(static),
	})
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		server.Close()
	})
	return server, "http://" + server.Addr().String()
}

func TestServeFile(t *testing.T) {
	_, baseURL := newTestServer(t)
	client := resty.New()

	response, err := client.R().Get(baseURL + "/index.html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Contains(t, string(response.Body()), "hello")
	assert.Equal(t, "*", response.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeIndex(t *testing.T) {
	_, baseURL := newTestServer(t)
	client := resty.New()

	response, err := client.R().Get(baseURL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Contains(t, string(response.Body()), "hello")
}

func TestNotFound(t *testing.T) {
	_, baseURL := newTestServer(t)
	client := resty.New()

	response, err := client.R().Get(baseURL + "/does-not-exist.xyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode())
	assert.Equal(t, "*", response.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", response.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", response.Header().Get("Access-Control-Allow-Headers"))
}

func TestPortConflict(t *testing.T) {
	server, _ := newTestServer(t)

	bind := netip.MustParseAddrPort(server.Addr().String())
	second, err := New(Options{Bind: bind, Handler: http.NotFoundHandler()})
	require.NoError(t, err)
	require.Error(t, second.Start())
}

func TestRebindAfterClose(t *testing.T) {
	server, _ := newTestServer(t)

	bind := netip.MustParseAddrPort(server.Addr().String())
	require.NoError(t, server.Close())

	second, err := New(Options{Bind: bind, Handler: http.NotFoundHandler()})
	require.NoError(t, err)
	require.NoError(t, second.Start())
	second.Close()
}

func TestStaticValidation(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Static(filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
	})

	t.Run("not a directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, ioutil.WriteFile(file, []byte("content"), 0o644))
		_, err := Static(file)
		require.Error(t, err)
	})
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{Handler: http.NotFoundHandler()})
	require.Error(t, err)

	_, err = New(Options{Bind: netip.MustParseAddrPort("127.0.0.1:0")})
	require.Error(t, err)
}
