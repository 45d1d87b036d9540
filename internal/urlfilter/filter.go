// Package urlfilter decides which discovered URLs re-enter the crawl
// frontier: canonical form, same-domain membership, and allow/deny policy.
package urlfilter

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"page-harvester/internal/models"
)

// blockedExtensions lists path suffixes that never carry crawlable HTML.
var blockedExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".rar", ".tar", ".gz",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico", ".bmp",
	".mp3", ".wav", ".ogg", ".mp4", ".avi", ".mov", ".wmv", ".flv", ".mkv", ".webm",
	".css", ".js", ".json", ".xml", ".rss",
}

// Normalize canonicalizes rawURL: resolves it against base when base is
// non-nil, strips the fragment, lowercases the host, and removes a single
// trailing slash unless the path is root. The result is stable under
// repeated normalization.
func Normalize(rawURL string, base *url.URL) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("normalize: empty url")
	}

	if base == nil && !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("normalize %q: %w", rawURL, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// SameDomain reports whether both URLs share the same host, compared
// case-insensitively. Subdomains are distinct hosts: www.x.com != x.com.
// Unparseable URLs are never same-domain.
func SameDomain(urlA, urlB string) bool {
	a, err := url.Parse(urlA)
	if err != nil {
		return false
	}
	b, err := url.Parse(urlB)
	if err != nil {
		return false
	}
	if a.Hostname() == "" || b.Hostname() == "" {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}

// Rules is the compiled crawl-eligibility policy for one site. Compiling up
// front surfaces bad patterns before the crawl starts.
type Rules struct {
	baseURL string
	allow   []*regexp.Regexp
	deny    []*regexp.Regexp
}

// Compile builds Rules from a site configuration. The base URL must already
// be normalized. Patterns match case-insensitively against the full URL.
func Compile(cfg models.SiteConfig, baseURL string) (*Rules, error) {
	r := &Rules{baseURL: baseURL}
	for _, p := range cfg.AllowPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("allow pattern %q: %w", p, err)
		}
		r.allow = append(r.allow, re)
	}
	for _, p := range cfg.DenyPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("deny pattern %q: %w", p, err)
		}
		r.deny = append(r.deny, re)
	}
	return r, nil
}

// ShouldCrawl decides crawl eligibility for a normalized URL. Check order:
// domain, deny patterns, allow patterns, extension blacklist. Deny always
// wins over allow; a non-empty allow list must match or the URL is rejected.
func (r *Rules) ShouldCrawl(rawURL string) bool {
	if !SameDomain(rawURL, r.baseURL) {
		return false
	}
	for _, re := range r.deny {
		if re.MatchString(rawURL) {
			return false
		}
	}
	if len(r.allow) > 0 {
		for _, re := range r.allow {
			if re.MatchString(rawURL) {
				return true
			}
		}
		return false
	}
	if hasBlockedExtension(rawURL) {
		return false
	}
	return true
}

func hasBlockedExtension(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range blockedExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
