package index

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgindex/internal/domain"
)

func writeLocalPackage(t *testing.T, root, name string, pkg domain.Package) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	raw, err := json.Marshal(pkg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), raw, 0o644))
}

func proxyServing(t *testing.T, pkgs map[string]domain.Package) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		pkg, ok := pkgs[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(pkg)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestResolver(t *testing.T, root string, proxies []Proxy) *Resolver {
	t.Helper()
	return NewResolver(NewLocalStore(root), proxies, nil, time.Second, slog.Default())
}

func TestResolve_LocalHit(t *testing.T) {
	root := t.TempDir()
	writeLocalPackage(t, root, "requests", domain.Package{
		Summary: "HTTP for humans",
		Releases: []domain.Release{{
			Version: "1.0.0",
			Files:   []domain.FileEntry{{Filename: "requests-1.0.0.tar.gz"}},
		}},
	})

	// A reachable proxy that also knows the package must not be consulted.
	var proxyCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyCalls.Add(1)
		_ = json.NewEncoder(w).Encode(domain.Package{})
	}))
	t.Cleanup(srv.Close)

	r := newTestResolver(t, root, []Proxy{{Name: "up", URL: srv.URL + "/pkg/{project}"}})
	pkg, err := r.Resolve(context.Background(), "Requests", "https://index.example")
	require.NoError(t, err)
	assert.True(t, pkg.Local)
	assert.Equal(t, "requests", pkg.Name)
	require.Len(t, pkg.Releases, 1)
	assert.Equal(t, "https://index.example/files/requests/requests-1.0.0.tar.gz", pkg.Releases[0].Files[0].URL)
	assert.Zero(t, proxyCalls.Load())
}

func TestResolve_ProxyFallbackInOrder(t *testing.T) {
	empty := proxyServing(t, nil)
	second := proxyServing(t, map[string]domain.Package{
		"flask": {Summary: "from second proxy", Releases: []domain.Release{{Version: "2.0"}}},
	})

	// A third proxy that also knows the package must never see the request.
	var thirdCalls atomic.Int64
	third := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		thirdCalls.Add(1)
		_ = json.NewEncoder(w).Encode(domain.Package{Summary: "from third proxy"})
	}))
	t.Cleanup(third.Close)

	r := newTestResolver(t, t.TempDir(), []Proxy{
		{Name: "first", URL: empty.URL + "/pkg/{project}"},
		{Name: "second", URL: second.URL + "/pkg/{project}"},
		{Name: "third", URL: third.URL + "/pkg/{project}"},
	})

	pkg, err := r.Resolve(context.Background(), "flask", "http://x")
	require.NoError(t, err)
	assert.False(t, pkg.Local)
	assert.Equal(t, "from second proxy", pkg.Summary, "first success wins")
	assert.Zero(t, thirdCalls.Load(), "later proxies are not consulted after a hit")
}

func TestResolve_UnreachableProxySkipped(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close() // connection refused from now on
	up := proxyServing(t, map[string]domain.Package{"click": {Summary: "survived the outage"}})

	r := newTestResolver(t, t.TempDir(), []Proxy{
		{Name: "dead", URL: dead.URL + "/pkg/{project}"},
		{Name: "up", URL: up.URL + "/pkg/{project}"},
	})

	pkg, err := r.Resolve(context.Background(), "click", "http://x")
	require.NoError(t, err)
	assert.Equal(t, "survived the outage", pkg.Summary)
}

func TestResolve_NotFoundAnywhere(t *testing.T) {
	empty := proxyServing(t, nil)
	r := newTestResolver(t, t.TempDir(), []Proxy{{Name: "up", URL: empty.URL + "/pkg/{project}"}})

	_, err := r.Resolve(context.Background(), "ghost", "http://x")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestResolve_NoProxies(t *testing.T) {
	r := newTestResolver(t, t.TempDir(), nil)

	_, err := r.Resolve(context.Background(), "anything", "http://x")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestResolve_NameNormalization(t *testing.T) {
	root := t.TempDir()
	writeLocalPackage(t, root, "python-dateutil", domain.Package{})

	r := newTestResolver(t, root, nil)
	for _, spelling := range []string{"python_dateutil", "Python.Dateutil", "python-dateutil"} {
		pkg, err := r.Resolve(context.Background(), spelling, "http://x")
		require.NoError(t, err, "spelling %q", spelling)
		assert.Equal(t, "python-dateutil", pkg.Name)
	}
}

func TestResolve_ProxyTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(slow.Close)
	up := proxyServing(t, map[string]domain.Package{"numpy": {Summary: "fast proxy"}})

	r := NewResolver(NewLocalStore(t.TempDir()), []Proxy{
		{Name: "slow", URL: slow.URL + "/pkg/{project}"},
		{Name: "up", URL: up.URL + "/pkg/{project}"},
	}, nil, 50*time.Millisecond, slog.Default())

	pkg, err := r.Resolve(context.Background(), "numpy", "http://x")
	require.NoError(t, err)
	assert.Equal(t, "fast proxy", pkg.Summary)
}
