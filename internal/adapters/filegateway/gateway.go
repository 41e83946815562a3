// Package filegateway provides the HTTP adapter to the remote storage
// provider that holds thesis PDFs.
package filegateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/net/publicsuffix"

	"github.com/titulapp/thesis-api/internal/core"
)

// ErrLinkNotAvailable is returned when the provider has no download link for
// a stored-file handle.
var ErrLinkNotAvailable = errors.New("download link not available")

const (
	defaultFetchTimeout = 60 * time.Second
	defaultLinkTTL      = 10 * time.Minute
	defaultLinkExpr     = "url"
	defaultUserAgent    = "Mozilla/5.0 (compatible; thesis-api/1.0)"
	// maxFileBytes caps a single download so one oversized file cannot
	// exhaust process memory.
	maxFileBytes = 256 << 20
)

// Options configures the Gateway.
type Options struct {
	BaseURL string // Required: provider API base URL
	AppKey  string // Optional: bearer credential for the provider API

	HTTPClient *http.Client  // Optional: defaults to a 60s-timeout client
	Logger     *slog.Logger  // Optional: structured logger
	LinkCache  core.LinkCache // Optional: cache for resolved links
	LinkTTL    time.Duration // Optional: cache TTL, must undercut link expiry
	// LinkExpr is the JMESPath expression locating the download URL inside
	// the provider's link-resolution response. Providers shape these
	// responses differently, so the expression is configuration.
	LinkExpr  string
	UserAgent string
}

// Gateway talks to the remote storage provider over HTTP. It implements
// core.FileGateway.
type Gateway struct {
	baseURL   string
	appKey    string
	http      *http.Client
	logger    *slog.Logger
	cache     core.LinkCache
	linkTTL   time.Duration
	linkExpr  string
	userAgent string
}

var _ core.FileGateway = (*Gateway)(nil)

// New constructs a Gateway from options.
func New(opts Options) (*Gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("BaseURL is required")
	}

	expr := strings.TrimSpace(opts.LinkExpr)
	if expr == "" {
		expr = defaultLinkExpr
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("compile link expression %q: %w", expr, err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultFetchTimeout}
	}

	ttl := opts.LinkTTL
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	logger := opts.Logger
	if logger != nil {
		logger = logger.With("component", "file_gateway")
	}

	return &Gateway{
		baseURL:   base,
		appKey:    opts.AppKey,
		http:      hc,
		logger:    logger,
		cache:     opts.LinkCache,
		linkTTL:   ttl,
		linkExpr:  expr,
		userAgent: ua,
	}, nil
}

// ResolveDownloadLink exchanges a stored-file handle for a time-limited
// download URL, consulting the link cache first.
func (g *Gateway) ResolveDownloadLink(ctx context.Context, handle string) (string, error) {
	if strings.TrimSpace(handle) == "" {
		return "", errors.New("storage handle is required and cannot be empty")
	}

	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, handle); err == nil && len(cached) > 0 {
			return string(cached), nil
		} else if err != nil && g.logger != nil {
			g.logger.WarnContext(ctx, "link cache read failed", "handle", handle, "error", err)
		}
	}

	link, err := g.resolveRemote(ctx, handle)
	if err != nil {
		return "", err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, handle, []byte(link), g.linkTTL); err != nil && g.logger != nil {
			g.logger.WarnContext(ctx, "link cache write failed", "handle", handle, "error", err)
		}
	}
	return link, nil
}

func (g *Gateway) resolveRemote(ctx context.Context, handle string) (string, error) {
	endpoint := g.baseURL + "/files/" + url.PathEscape(handle) + "/link"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build link request: %w", err)
	}
	g.setCommonHeaders(req)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve download link: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrLinkNotAvailable
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("resolve download link: provider returned status %d", resp.StatusCode)
	}

	var doc any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode link response: %w", err)
	}

	value, err := jmespath.Search(g.linkExpr, doc)
	if err != nil {
		return "", fmt.Errorf("evaluate link expression: %w", err)
	}
	link, ok := value.(string)
	if !ok || strings.TrimSpace(link) == "" {
		return "", ErrLinkNotAvailable
	}
	return link, nil
}

// FetchBytes downloads the raw file contents from a resolved URL. Redirects
// are followed by the underlying client; a conventional User-Agent and a
// Referer derived from the target's registrable domain are presented because
// some providers reject anonymous fetches.
func (g *Gateway) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("download url is required and cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	g.setCommonHeaders(req)
	if ref := refererFor(req.URL); ref != "" {
		req.Header.Set("Referer", ref)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download file: status %d from %s", resp.StatusCode, req.URL.Host)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	if len(data) > maxFileBytes {
		return nil, fmt.Errorf("download file: exceeds %d byte limit", int64(maxFileBytes))
	}
	return data, nil
}

// Upload stores raw bytes under the given name and returns the provider
// handle referencing them.
func (g *Gateway) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("file name is required and cannot be empty")
	}
	if len(data) == 0 {
		return "", errors.New("file data is required and cannot be empty")
	}

	endpoint := g.baseURL + "/files?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	g.setCommonHeaders(req)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload file: provider returned status %d", resp.StatusCode)
	}

	var out struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if strings.TrimSpace(out.Handle) == "" {
		return "", errors.New("upload file: provider returned empty handle")
	}
	return out.Handle, nil
}

func (g *Gateway) setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "*/*")
	if g.appKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.appKey)
	}
}

// refererFor derives a conventional referer from the registrable domain
// (eTLD+1) of the download target.
func refererFor(u *url.URL) string {
	if u == nil || u.Hostname() == "" {
		return ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		// IPs and single-label hosts have no registrable domain; fall back
		// to the host itself.
		etld1 = u.Hostname()
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + etld1 + "/"
}

func closeBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	_ = body.Close()
}
