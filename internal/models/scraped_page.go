package models

import "time"

// PageStatus marks whether a page fetch produced usable output.
type PageStatus string

const (
	PageStatusSuccess PageStatus = "success"
	PageStatusError   PageStatus = "error"
)

// ScrapedPage is the output record for one fetched page. Immutable once
// returned; persisting it is the caller's business.
type ScrapedPage struct {
	URL           string     `json:"url"`
	Title         string     `json:"title,omitempty"`
	Content       string     `json:"content,omitempty"`
	ContentLength int        `json:"content_length"`
	IsRelevant    bool       `json:"is_relevant"`
	Links         []string   `json:"links,omitempty"`
	LinksFound    int        `json:"links_found"`
	Status        PageStatus `json:"status"`
	Error         string     `json:"error,omitempty"`
	ScrapedAt     time.Time  `json:"scraped_at"`
}
