package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"page-harvester/internal/models"
)

type fakeCrawler struct {
	pages map[string][]models.ScrapedPage
	errs  map[string]error
	calls []string
}

func (f *fakeCrawler) Crawl(_ context.Context, cfg models.SiteConfig) ([]models.ScrapedPage, error) {
	f.calls = append(f.calls, cfg.URL)
	return f.pages[cfg.URL], f.errs[cfg.URL]
}

type fakeSource struct {
	configs []models.SiteConfig
	err     error
}

func (f *fakeSource) Sites(_ context.Context) ([]models.SiteConfig, error) {
	return f.configs, f.err
}

func TestRunCrawlsAllSites(t *testing.T) {
	crawler := &fakeCrawler{
		pages: map[string][]models.ScrapedPage{
			"https://one.example.com": {{URL: "https://one.example.com", Status: models.PageStatusSuccess}},
			"https://two.example.com": {{URL: "https://two.example.com", Status: models.PageStatusSuccess}},
		},
	}
	source := &fakeSource{configs: []models.SiteConfig{
		{URL: "https://one.example.com", MaxPages: 10},
		{URL: "https://two.example.com", MaxPages: 10},
	}}

	outPath := filepath.Join(t.TempDir(), "results.json")
	if err := run(context.Background(), crawler, source, nil, outPath); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if len(crawler.calls) != 2 {
		t.Fatalf("expected 2 crawls, got %v", crawler.calls)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read results file: %v", err)
	}
	var results []siteResult
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatalf("failed to decode results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 site results, got %d", len(results))
	}
	if results[0].SessionID == "" || results[0].SessionID == results[1].SessionID {
		t.Fatal("expected distinct session ids per site")
	}
	if len(results[0].Pages) != 1 {
		t.Fatalf("unexpected pages for first site: %+v", results[0])
	}
}

func TestRunRecordsFailedSite(t *testing.T) {
	crawler := &fakeCrawler{
		pages: map[string][]models.ScrapedPage{
			"https://ok.example.com": {{URL: "https://ok.example.com", Status: models.PageStatusSuccess}},
		},
		errs: map[string]error{
			"https://down.example.com": errors.New("connect refused"),
		},
	}
	source := &fakeSource{configs: []models.SiteConfig{
		{URL: "https://down.example.com", MaxPages: 10},
		{URL: "https://ok.example.com", MaxPages: 10},
	}}

	outPath := filepath.Join(t.TempDir(), "results.json")
	if err := run(context.Background(), crawler, source, nil, outPath); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	// A failing site is recorded but does not stop the batch.
	if len(crawler.calls) != 2 {
		t.Fatalf("expected both sites crawled, got %v", crawler.calls)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var results []siteResult
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatal(err)
	}
	if results[0].Error == "" {
		t.Fatal("expected first site result to carry the error")
	}
	if results[1].Error != "" {
		t.Fatalf("unexpected error on healthy site: %s", results[1].Error)
	}
}

func TestRunNoSites(t *testing.T) {
	source := &fakeSource{}
	if err := run(context.Background(), &fakeCrawler{}, source, nil, ""); err == nil {
		t.Fatal("expected error for empty site list")
	}
}

func TestRunSourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("read failed")}
	if err := run(context.Background(), &fakeCrawler{}, source, nil, ""); err == nil {
		t.Fatal("expected error when source fails")
	}
}
