package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/temoto/robotstxt"
)

// page is the result of extracting one article page.
type page struct {
	Title  string
	Text   string
	Image  string
	Byline string
}

var strictPolicy = bluemonday.StrictPolicy()

// sanitizeText strips all markup from feed-provided HTML fragments.
func sanitizeText(raw string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(raw))
}

// extractPage fetches an article URL and pulls out readable text plus a
// top image. Readability gets the first shot; goquery recovers the
// og:image when readability finds none.
func (s *Scraper) extractPage(ctx context.Context, rawURL string) (*page, error) {
	s.throttle()
	resp, err := s.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drainAndClose(resp.Body)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") && !strings.Contains(ct, "xml") {
		drainAndClose(resp.Body)
		return nil, fmt.Errorf("unsupported content type %s", ct)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	html, err := doc.Html()
	if err != nil {
		return nil, err
	}

	p := &page{}
	if art, err := readability.FromReader(strings.NewReader(html), parsed); err == nil {
		p.Title = strings.TrimSpace(art.Title)
		p.Text = strings.TrimSpace(art.TextContent)
		p.Image = art.Image
		p.Byline = art.Byline
	}
	if p.Text == "" {
		// Last resort: strip everything and keep the text.
		p.Text = sanitizeText(html)
	}
	if p.Image == "" {
		p.Image = ogImage(doc)
	}
	return p, nil
}

// ogImage pulls the open-graph image URL out of the page head.
func ogImage(doc *goquery.Document) string {
	img, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	if img == "" {
		img, _ = doc.Find(`meta[name="twitter:image"]`).First().Attr("content")
	}
	return strings.TrimSpace(img)
}

// robotsCache caches parsed robots.txt per host for an hour.
type robotsCache struct {
	client *http.Client

	mu      sync.Mutex
	entries map[string]*robotsEntry
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

const robotsTTL = time.Hour

func newRobotsCache(client *http.Client) *robotsCache {
	return &robotsCache{client: client, entries: map[string]*robotsEntry{}}
}

// allowed reports whether our crawler may fetch the URL. Unreachable or
// malformed robots.txt files do not block crawling.
func (c *robotsCache) allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	c.mu.Lock()
	entry, ok := c.entries[u.Host]
	c.mu.Unlock()

	if !ok || time.Since(entry.fetchedAt) > robotsTTL {
		entry = &robotsEntry{fetchedAt: time.Now()}
		robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err == nil {
			if resp, err := c.client.Do(req); err == nil {
				if data, err := robotstxt.FromResponse(resp); err == nil {
					entry.data = data
				}
				drainAndClose(resp.Body)
			}
		}
		c.mu.Lock()
		c.entries[u.Host] = entry
		c.mu.Unlock()
	}

	if entry.data == nil {
		return true
	}
	return entry.data.TestAgent(u.Path, "NewsFlow")
}

var contentDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\w+ \d{1,2}, \d{4})\b`),   // January 1, 2023
	regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`), // 1/1/2023
	regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),     // 2023-01-01
}

// dateFromContent scans the first 500 characters for a date string.
func dateFromContent(content string) time.Time {
	if content == "" {
		return time.Time{}
	}
	sample := content
	if len(sample) > 500 {
		sample = sample[:500]
	}
	for _, re := range contentDatePatterns {
		for _, match := range re.FindAllString(sample, -1) {
			if t, err := dateparse.ParseAny(match); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

var urlDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/(\d{4})/(\d{1,2})/(\d{1,2})/`), // /2023/12/31/
	regexp.MustCompile(`/(\d{4})-(\d{1,2})-(\d{1,2})`),  // /2023-12-31
	regexp.MustCompile(`/(\d{4})(\d{2})(\d{2})/`),       // /20231231/
}

// dateFromURL recovers a date from path segments like /2023/12/31/.
func dateFromURL(rawURL string) time.Time {
	for _, re := range urlDatePatterns {
		m := re.FindStringSubmatch(rawURL)
		if len(m) != 4 {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}
