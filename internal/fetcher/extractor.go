package fetcher

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"page-harvester/internal/models"
	"page-harvester/internal/urlfilter"
)

// nonContentSelectors lists elements stripped before text extraction; their
// text contaminates content.
const nonContentSelectors = "script, style, nav, footer, header"

// titleSelectors in priority order. The first non-empty match wins.
var titleSelectors = []string{
	"h1.entry-title",
	"h1.post-title",
	"h1.article-title",
	".entry-header h1",
	".post-header h1",
	"article h1",
	"h1",
	"title",
}

// contentContainerSelectors is the fallback list used when a site configures
// no content selectors of its own.
var contentContainerSelectors = []string{
	"article",
	".entry-content",
	".post-content",
	".article-content",
	".content",
}

const (
	untitledMarker   = "Untitled"
	contentCap       = 5000
	truncationMarker = "..."

	// Relevance heuristic: a page counts as content-bearing when it has a
	// known content container, or at least minRelevantParagraphs paragraphs
	// whose combined text reaches minRelevantTextLen.
	minRelevantParagraphs = 3
	minRelevantTextLen    = 200
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// ExtractPage parses the markup of one fetched page and builds the output
// record. Links are collected from the full document before the non-content
// elements are stripped, so navigation links still feed the frontier.
func ExtractPage(pageURL string, body []byte, cfg models.SiteConfig) (models.ScrapedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.ScrapedPage{}, fmt.Errorf("parse html: %w", err)
	}

	links, linksFound := extractLinks(doc, pageURL)

	doc.Find(nonContentSelectors).Remove()

	content := extractContent(doc, cfg.ContentSelectors)
	return models.ScrapedPage{
		URL:           pageURL,
		Title:         extractTitle(doc),
		Content:       content,
		ContentLength: len(content),
		IsRelevant:    isRelevant(doc),
		Links:         links,
		LinksFound:    linksFound,
		Status:        models.PageStatusSuccess,
		ScrapedAt:     time.Now().UTC(),
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}
	return untitledMarker
}

// extractContent returns the page text. Configured selectors are applied in
// listed order and all matches concatenated; otherwise the first matching
// content container is used; otherwise every paragraph is joined.
func extractContent(doc *goquery.Document, selectors []string) string {
	if len(selectors) > 0 {
		var parts []string
		for _, selector := range selectors {
			selector = strings.TrimSpace(selector)
			if selector == "" {
				continue
			}
			doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
				if text := collapseWhitespace(s.Text()); text != "" {
					parts = append(parts, text)
				}
			})
		}
		return capContent(strings.Join(parts, "\n\n"))
	}

	for _, selector := range contentContainerSelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		if text := collapseWhitespace(container.Text()); text != "" {
			return capContent(text)
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return capContent(strings.Join(paragraphs, " "))
}

// isRelevant is a heuristic gate the caller uses to prioritize pages; it is
// not a crawl filter.
func isRelevant(doc *goquery.Document) bool {
	for _, selector := range contentContainerSelectors {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}

	count := 0
	textLen := 0
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		count++
		textLen += len(text)
	})
	return count >= minRelevantParagraphs && textLen >= minRelevantTextLen
}

// extractLinks collects every anchor href, normalized against the page URL.
// The returned slice keeps only same-domain links in document order; the
// count reports all anchors found, normalizable or not.
func extractLinks(doc *goquery.Document, pageURL string) ([]string, int) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, 0
	}

	var links []string
	found := 0
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		found++

		normalized, err := urlfilter.Normalize(href, base)
		if err != nil {
			return
		}
		if !urlfilter.SameDomain(normalized, pageURL) {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})
	return links, found
}

func capContent(text string) string {
	if len(text) <= contentCap {
		return text
	}
	// Back up so the cut never splits a multibyte rune.
	cut := contentCap
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + truncationMarker
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}
