package models

import "time"

// CrawlStatus tracks the state of one crawl session.
type CrawlStatus struct {
	SessionID    string    `json:"session_id"`
	SiteURL      string    `json:"site_url"`
	Status       string    `json:"status"`
	PagesScraped int       `json:"pages_scraped"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
