// Package fetcher downloads a single page and extracts its title, text
// content, outbound links, and relevance signal.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"page-harvester/internal/models"
)

// DefaultUserAgent is sent with all page requests so target sites can
// identify the crawler and apply robots rules or rate limits.
const DefaultUserAgent = "PageHarvester/1.0 (+https://github.com/page-harvester)"

// HTTP timeouts so a single hung request doesn't hold a crawl indefinitely.
const (
	connectTimeout        = 10 * time.Second
	responseHeaderTimeout = 25 * time.Second // time to first response header
	totalTimeout          = 30 * time.Second // total request (connect + headers + body)
)

// maxBodyBytes caps how much of a response body is read. Pages larger than
// this are truncated before parsing.
const maxBodyBytes = 5 << 20

// NewHTTPClient returns an http.Client for page fetches with explicit
// connect and response-header timeouts. Redirects are followed by default.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ResponseHeaderTimeout: responseHeaderTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   totalTimeout,
	}
}

// Fetcher fetches pages over HTTP and runs extraction on the markup.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New creates a Fetcher. A nil client gets the default timeouts.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = NewHTTPClient()
	}
	return &Fetcher{client: client, userAgent: DefaultUserAgent}
}

// FetchAndExtract fetches pageURL and extracts page data per the site
// configuration. It never returns an error: network and HTTP failures come
// back as a ScrapedPage with Status set to error and the failure captured,
// so one bad page cannot halt a crawl.
func (f *Fetcher) FetchAndExtract(ctx context.Context, pageURL string, cfg models.SiteConfig) models.ScrapedPage {
	body, err := f.fetch(ctx, pageURL)
	if err != nil {
		return errorPage(pageURL, err)
	}

	page, err := ExtractPage(pageURL, body, cfg)
	if err != nil {
		return errorPage(pageURL, err)
	}
	return page
}

func (f *Fetcher) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func errorPage(pageURL string, err error) models.ScrapedPage {
	return models.ScrapedPage{
		URL:       pageURL,
		Status:    models.PageStatusError,
		Error:     err.Error(),
		ScrapedAt: time.Now().UTC(),
	}
}
