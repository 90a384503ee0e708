package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"pkgindex/internal/domain"
)

// DefaultProxyTimeout bounds each upstream lookup.
const DefaultProxyTimeout = 10 * time.Second

// Proxy is one upstream index. URL is a template where "{project}" is
// replaced with the normalized project name.
type Proxy struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Resolver answers package lookups from the local index first, then walks
// the configured proxies in order and returns the first hit. Upstream
// failures of any kind count as misses; a proxy outage never masks a later
// proxy that knows the package.
type Resolver struct {
	store   *LocalStore
	proxies []Proxy
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// NewResolver creates a Resolver. A nil client falls back to
// http.DefaultClient; a zero timeout falls back to DefaultProxyTimeout.
func NewResolver(store *LocalStore, proxies []Proxy, client *http.Client, timeout time.Duration, logger *slog.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultProxyTimeout
	}
	return &Resolver{store: store, proxies: proxies, client: client, timeout: timeout, logger: logger}
}

// Store returns the local index storage backing the resolver.
func (r *Resolver) Store() *LocalStore { return r.store }

// Resolve looks up a project by any spelling of its name. Concurrent lookups
// for the same project share one underlying resolution.
func (r *Resolver) Resolve(ctx context.Context, project, baseURL string) (*domain.Package, error) {
	name := domain.NormalizeProjectName(project)
	if name == "" {
		return nil, domain.ErrValidation("empty project name")
	}
	v, err, _ := r.group.Do(name+"\x00"+baseURL, func() (any, error) {
		return r.resolve(ctx, name, baseURL)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Package), nil
}

func (r *Resolver) resolve(ctx context.Context, name, baseURL string) (*domain.Package, error) {
	pkg, err := r.store.Get(name, baseURL)
	if err == nil {
		return pkg, nil
	}
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	for _, p := range r.proxies {
		pkg, err := r.fetch(ctx, p, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("proxy lookup failed", "proxy", p.Name, "project", name, "error", err)
			continue
		}
		if pkg != nil {
			return pkg, nil
		}
	}
	return nil, domain.ErrNotFound("unknown package %q", name)
}

// fetch queries one proxy. It returns (nil, nil) when the proxy does not
// know the package and an error only for transport or decode failures.
func (r *Resolver) fetch(ctx context.Context, p Proxy, name string) (*domain.Package, error) {
	url := strings.ReplaceAll(p.URL, "{project}", name)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build proxy request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil
	}

	var pkg domain.Package
	if err := json.NewDecoder(resp.Body).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("decode proxy response: %w", err)
	}
	pkg.Name = name
	pkg.Local = false
	return &pkg, nil
}
