// Package scraper ingests articles from configured news sources. RSS
// feeds are parsed with gofeed; article pages are fetched (after a
// robots.txt check), run through readability extraction, sanitized, and
// gated on quality before being saved.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"newsflow/internal/sentiment"
	"newsflow/internal/textutil"
	"newsflow/pkg/models"
)

// Store is the slice of the storage layer the scraper writes through.
type Store interface {
	ArticleURLExists(ctx context.Context, url string) (bool, error)
	RecentTitlesBySource(ctx context.Context, sourceID string, since time.Time) ([]string, error)
	SaveArticles(ctx context.Context, articles []*models.Article) error
	MarkSourceScraped(ctx context.Context, sourceID string, count int) error
}

// Request behavior.
const (
	defaultTimeout  = 30 * time.Second
	retryAttempts   = 3
	rateLimitDelay  = 2 * time.Second
	maxRateJitter   = 500 * time.Millisecond
	uaRotateEvery   = 10
	wordsPerMinute  = 200
	maxKeywords     = 10
	dedupeWindow    = 7 * 24 * time.Hour
	dedupeThreshold = 0.8
)

// Quality gate thresholds.
const (
	minTitleLen     = 10
	maxTitleLen     = 500
	minContentWords = 50
	maxArticleAge   = 365 * 24 * time.Hour
)

// userAgents rotated across requests to avoid trivial blocking.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"NewsFlow/1.0 (+https://newsflow.example/bot)",
}

var footerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Follow us on.*`),
	regexp.MustCompile(`(?i)Subscribe to.*`),
	regexp.MustCompile(`(?i)Read more at.*`),
	regexp.MustCompile(`© \d{4}.*`),
}

// Scraper fetches and normalizes articles from news sources.
type Scraper struct {
	store    Store
	analyzer *sentiment.Analyzer
	client   *http.Client
	parser   *gofeed.Parser
	robots   *robotsCache

	mu           sync.Mutex
	requestCount int
	lastRequest  time.Time
	userAgent    string
}

func New(store Store, analyzer *sentiment.Analyzer) *Scraper {
	client := &http.Client{Timeout: defaultTimeout}
	parser := gofeed.NewParser()
	parser.Client = client
	s := &Scraper{
		store:     store,
		analyzer:  analyzer,
		client:    client,
		parser:    parser,
		robots:    newRobotsCache(client),
		userAgent: userAgents[rand.Intn(len(userAgents))],
	}
	return s
}

// ScrapeSource runs one scraping pass over a source. Only RSS sources are
// fetched today; website and api sources are skipped with a warning.
func (s *Scraper) ScrapeSource(ctx context.Context, source *models.Source) (models.ScrapeStats, error) {
	var stats models.ScrapeStats

	if source.SourceType != models.SourceTypeRSS || source.RSSFeed == "" {
		log.Printf("scraper: source %s type=%s has no scrapable feed, skipping", source.Name, source.SourceType)
		return stats, nil
	}
	if !validURL(source.RSSFeed) {
		return stats, fmt.Errorf("invalid rss feed url for %s: %s", source.Name, source.RSSFeed)
	}

	feed, err := s.fetchFeed(ctx, source.RSSFeed)
	if err != nil {
		return stats, fmt.Errorf("fetch feed %s: %w", source.RSSFeed, err)
	}
	if len(feed.Items) == 0 {
		log.Printf("scraper: no entries in feed for %s", source.Name)
		return stats, nil
	}
	log.Printf("scraper: %d entries in feed for %s", len(feed.Items), source.Name)

	recentTitles, err := s.store.RecentTitlesBySource(ctx, source.ID, time.Now().Add(-dedupeWindow))
	if err != nil {
		return stats, fmt.Errorf("load recent titles: %w", err)
	}

	items := feed.Items
	if source.MaxArticles > 0 && len(items) > source.MaxArticles {
		items = items[:source.MaxArticles]
	}

	var saved []*models.Article
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if !validURL(link) {
			stats.Failed++
			continue
		}

		dup, err := s.isDuplicate(ctx, link, item.Title, recentTitles)
		if err != nil {
			stats.Failed++
			continue
		}
		if dup {
			stats.Duplicates++
			continue
		}

		article, err := s.buildArticle(ctx, source, item)
		if err != nil {
			log.Printf("scraper: %s: %v", link, err)
			stats.Failed++
			continue
		}
		if reason := validateQuality(article); reason != "" {
			log.Printf("scraper: rejected %s: %s", link, reason)
			stats.Failed++
			continue
		}
		saved = append(saved, article)
		recentTitles = append(recentTitles, article.Title)
		stats.Success++
	}

	if len(saved) > 0 {
		if err := s.store.SaveArticles(ctx, saved); err != nil {
			return stats, fmt.Errorf("save articles for %s: %w", source.Name, err)
		}
	}
	if err := s.store.MarkSourceScraped(ctx, source.ID, stats.Success); err != nil {
		log.Printf("scraper: mark scraped %s: %v", source.Name, err)
	}

	log.Printf("scraper: %s done: %d success, %d failed, %d duplicates",
		source.Name, stats.Success, stats.Failed, stats.Duplicates)
	return stats, nil
}

// buildArticle assembles an article from a feed item, pulling the full
// page when robots.txt allows it and falling back to feed metadata.
func (s *Scraper) buildArticle(ctx context.Context, source *models.Source, item *gofeed.Item) (*models.Article, error) {
	article := &models.Article{
		Title:       strings.TrimSpace(item.Title),
		URL:         strings.TrimSpace(item.Link),
		Summary:     sanitizeText(item.Description),
		SourceID:    source.ID,
		SourceName:  source.Name,
		ScrapedAt:   time.Now().UTC(),
		IsPublished: true,
		Categories:  []string{source.PrimaryCategory},
	}
	if item.Author != nil {
		article.Author = cleanAuthor(item.Author.Name)
	}

	if s.robots.allowed(ctx, article.URL) {
		if page, err := s.extractPage(ctx, article.URL); err == nil {
			if page.Title != "" && len(article.Title) < minTitleLen {
				article.Title = page.Title
			}
			article.Content = page.Text
			article.TopImage = page.Image
			if article.Author == "" {
				article.Author = cleanAuthor(page.Byline)
			}
		} else {
			log.Printf("scraper: extract %s: %v", article.URL, err)
		}
	} else {
		log.Printf("scraper: robots.txt disallows %s", article.URL)
	}

	// Feed content is the fallback body when page extraction yields nothing.
	if article.Content == "" {
		article.Content = sanitizeText(firstNonEmpty(item.Content, item.Description))
	}
	article.Content = cleanContent(article.Content)
	if article.Summary == "" && article.Content != "" {
		article.Summary = snippet(article.Content, 300)
	}

	article.PublishedAt = s.publishDate(item, article)
	article.Keywords = extractKeywords(article.Content, maxKeywords)
	article.ReadTime = readTime(article.Content)

	if s.analyzer != nil {
		res := s.analyzer.Analyze(article.Title + " " + article.Content)
		article.Sentiment = res.Score
		article.SentimentLbl = res.Label
	}
	return article, nil
}

// fetchFeed parses the RSS feed with retry and exponential backoff.
func (s *Scraper) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		s.throttle()
		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err == nil {
			return feed, nil
		}
		lastErr = err
		if attempt < retryAttempts-1 {
			wait := backoff(attempt)
			log.Printf("scraper: feed %s attempt %d/%d failed, retrying in %s: %v",
				feedURL, attempt+1, retryAttempts, wait, err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// throttle spaces requests out and rotates the user agent periodically.
func (s *Scraper) throttle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := rateLimitDelay
	if time.Since(s.lastRequest) < time.Second {
		delay *= 2
	}
	delay += time.Duration(rand.Int63n(int64(maxRateJitter)))
	time.Sleep(delay)

	s.lastRequest = time.Now()
	s.requestCount++
	if s.requestCount%uaRotateEvery == 0 {
		s.userAgent = userAgents[rand.Intn(len(userAgents))]
	}
}

func (s *Scraper) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	req.Header.Set("User-Agent", s.userAgent)
	s.mu.Unlock()
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	return s.client.Do(req)
}

// isDuplicate checks the exact URL, then fuzzy-matches the title against
// recent titles from the same source (Jaccard word overlap > 0.8).
func (s *Scraper) isDuplicate(ctx context.Context, url, title string, recentTitles []string) (bool, error) {
	exists, err := s.store.ArticleURLExists(ctx, url)
	if err != nil || exists {
		return exists, err
	}
	words := wordSet(title)
	if len(words) == 0 {
		return false, nil
	}
	for _, existing := range recentTitles {
		if jaccard(words, wordSet(existing)) > dedupeThreshold {
			return true, nil
		}
	}
	return false, nil
}

// publishDate recovers a publish timestamp: feed metadata first, then
// dates embedded in the content, then the URL path, then now.
func (s *Scraper) publishDate(item *gofeed.Item, article *models.Article) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	if t := dateFromContent(article.Content); !t.IsZero() {
		return t
	}
	if t := dateFromURL(article.URL); !t.IsZero() {
		return t
	}
	return time.Now().UTC()
}

// validateQuality returns a rejection reason, or "" for a valid article.
func validateQuality(a *models.Article) string {
	title := strings.TrimSpace(a.Title)
	if len(title) < minTitleLen {
		return "title too short or missing"
	}
	if len(title) > maxTitleLen {
		return "title too long"
	}
	words := textutil.WordCount(a.Content)
	if words < minContentWords {
		return fmt.Sprintf("content too short (%d words)", words)
	}
	now := time.Now()
	if a.PublishedAt.After(now.Add(time.Minute)) {
		return "publish date in future"
	}
	if a.PublishedAt.Before(now.Add(-maxArticleAge)) {
		return "article too old (>1 year)"
	}
	return ""
}

// cleanContent normalizes whitespace and trims boilerplate footer lines.
func cleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	for _, re := range footerPatterns {
		content = re.ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}

func cleanAuthor(author string) string {
	author = strings.TrimSpace(author)
	if len(author) > 200 {
		author = author[:197] + "..."
	}
	return author
}

// extractKeywords picks the most frequent non-stopword words of three or
// more characters.
func extractKeywords(content string, max int) []string {
	counts := map[string]int{}
	for _, w := range textutil.Tokenize(content) {
		if len(w) < 3 || textutil.IsStopword(w) {
			continue
		}
		counts[w]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > max {
		words = words[:max]
	}
	return words
}

// readTime estimates reading minutes at 200 wpm, minimum 1.
func readTime(content string) int {
	words := textutil.WordCount(content)
	mins := int(math.Round(float64(words) / wordsPerMinute))
	if mins < 1 {
		mins = 1
	}
	return mins
}

func snippet(content string, max int) string {
	if len(content) <= max {
		return content
	}
	cut := textutil.TruncateBytes(content, max)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	return base + time.Duration(rand.Int63n(int64(time.Second)))
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func wordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// drainAndClose discards the remainder of a body so connections can be
// reused.
func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	body.Close()
}
