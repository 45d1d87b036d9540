// Package frontier runs the bounded breadth-first crawl of one site: it owns
// the visited set and the FIFO queue of (url, depth) pairs and drives the
// fetcher through them.
package frontier

import (
	"context"
	"fmt"
	"log"
	"time"

	"page-harvester/internal/models"
	"page-harvester/internal/urlfilter"
)

// DefaultDelay is the pause between page requests within one site. Crawl
// courtesy toward the target, not a correctness requirement.
const DefaultDelay = 1 * time.Second

// PageFetcher fetches and extracts a single page. Implemented by
// fetcher.Fetcher.
type PageFetcher interface {
	FetchAndExtract(ctx context.Context, pageURL string, cfg models.SiteConfig) models.ScrapedPage
}

// Crawler performs sequential breadth-first crawls. One Crawler may serve
// many sites concurrently: all per-run state (visited set, queue) lives in
// Crawl's stack, never on the Crawler itself.
type Crawler struct {
	fetcher PageFetcher
	delay   time.Duration
}

// New creates a Crawler. A non-positive delay falls back to DefaultDelay.
func New(f PageFetcher, delay time.Duration) *Crawler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Crawler{fetcher: f, delay: delay}
}

type entry struct {
	url   string
	depth int
}

// Crawl walks cfg's site breadth-first and returns the successfully scraped
// pages. Individual fetch failures are logged and skipped; only an invalid
// configuration or pattern aborts before the first fetch. When ctx is
// canceled mid-run the pages gathered so far are returned along with the
// context error.
func (c *Crawler) Crawl(ctx context.Context, cfg models.SiteConfig) ([]models.ScrapedPage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := urlfilter.Normalize(cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("site config: %w", err)
	}
	rules, err := urlfilter.Compile(cfg, baseURL)
	if err != nil {
		return nil, fmt.Errorf("site config: %w", err)
	}

	visited := make(map[string]struct{})
	queue := []entry{{url: baseURL, depth: 0}}
	var pages []models.ScrapedPage

	log.Printf("crawl start site=%s base=%s max_depth=%d max_pages=%d recursive=%t",
		cfg.Name, baseURL, cfg.MaxDepth, cfg.MaxPages, cfg.Recursive)

	for len(queue) > 0 && len(pages) < cfg.MaxPages {
		if ctx.Err() != nil {
			log.Printf("crawl canceled site=%s pages=%d queued=%d", cfg.Name, len(pages), len(queue))
			return pages, ctx.Err()
		}

		head := queue[0]
		queue = queue[1:]

		if _, ok := visited[head.url]; ok {
			continue
		}
		visited[head.url] = struct{}{}

		page := c.fetcher.FetchAndExtract(ctx, head.url, cfg)
		if page.Status != models.PageStatusSuccess {
			log.Printf("fetch failed url=%s depth=%d err=%s", head.url, head.depth, page.Error)
		} else {
			pages = append(pages, page)
			log.Printf("page scraped url=%s depth=%d content_len=%d links=%d relevant=%t",
				head.url, head.depth, page.ContentLength, len(page.Links), page.IsRelevant)
		}

		if cfg.Recursive && head.depth < cfg.MaxDepth {
			for _, link := range page.Links {
				if _, ok := visited[link]; ok {
					continue
				}
				if !rules.ShouldCrawl(link) {
					continue
				}
				queue = append(queue, entry{url: link, depth: head.depth + 1})
			}
		}

		if len(queue) > 0 && len(pages) < cfg.MaxPages {
			if err := c.pause(ctx); err != nil {
				log.Printf("crawl canceled site=%s pages=%d queued=%d", cfg.Name, len(pages), len(queue))
				return pages, err
			}
		}
	}

	log.Printf("crawl done site=%s pages=%d visited=%d", cfg.Name, len(pages), len(visited))
	return pages, nil
}

func (c *Crawler) pause(ctx context.Context) error {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
