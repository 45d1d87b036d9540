package models

import (
	"errors"
	"fmt"
	"net/url"
)

// SiteConfig describes one crawl target. It is supplied by the caller per
// crawl invocation and never mutated during a run.
type SiteConfig struct {
	Name             string   `json:"name,omitempty"`
	URL              string   `json:"url"`
	Recursive        bool     `json:"recursive"`
	MaxDepth         int      `json:"max_depth"`
	MaxPages         int      `json:"max_pages"`
	AllowPatterns    []string `json:"allow_patterns,omitempty"`
	DenyPatterns     []string `json:"deny_patterns,omitempty"`
	ContentSelectors []string `json:"content_selectors,omitempty"`
}

// Validate rejects configurations that must never reach a crawl loop.
// Pattern syntax is checked later when the patterns are compiled.
func (c SiteConfig) Validate() error {
	if c.URL == "" {
		return errors.New("site config: url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("site config: invalid url %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("site config: url %q must be http or https", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("site config: url %q has no host", c.URL)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("site config: max_depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("site config: max_pages must be >= 1, got %d", c.MaxPages)
	}
	return nil
}
