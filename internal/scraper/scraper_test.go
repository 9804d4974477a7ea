package scraper

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"newsflow/pkg/models"
)

func validArticle() *models.Article {
	return &models.Article{
		Title:       "A perfectly reasonable headline about the economy",
		Content:     strings.Repeat("word ", 80),
		PublishedAt: time.Now().Add(-2 * time.Hour),
	}
}

func TestValidateQuality(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Article)
		reject string
	}{
		{"valid article", func(a *models.Article) {}, ""},
		{"title too short", func(a *models.Article) { a.Title = "Short" }, "title too short"},
		{"title too long", func(a *models.Article) { a.Title = strings.Repeat("x", 501) }, "title too long"},
		{"content too short", func(a *models.Article) { a.Content = "barely any words here" }, "content too short"},
		{"future date", func(a *models.Article) { a.PublishedAt = time.Now().Add(48 * time.Hour) }, "future"},
		{"too old", func(a *models.Article) { a.PublishedAt = time.Now().AddDate(-2, 0, 0) }, "too old"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArticle()
			tt.mutate(a)
			reason := validateQuality(a)
			if tt.reject == "" {
				assert.Empty(t, reason)
			} else {
				assert.Contains(t, reason, tt.reject)
			}
		})
	}
}

func TestJaccardTitleSimilarity(t *testing.T) {
	a := wordSet("Central bank raises interest rates again")
	b := wordSet("Central bank raises interest rates again today")
	c := wordSet("City wins football championship final")

	assert.Greater(t, jaccard(a, b), dedupeThreshold)
	assert.Less(t, jaccard(a, c), 0.1)
	assert.Zero(t, jaccard(a, map[string]bool{}))
}

func TestExtractKeywords(t *testing.T) {
	content := "inflation inflation inflation economy economy bank the of and is it go"
	kw := extractKeywords(content, 10)

	assert.Equal(t, "inflation", kw[0])
	assert.Equal(t, "economy", kw[1])
	assert.NotContains(t, kw, "the", "stopwords are dropped")
	assert.NotContains(t, kw, "go", "words under three characters are dropped")
}

func TestExtractKeywordsCap(t *testing.T) {
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot",
		"golf", "hotel", "india", "juliet", "kilo", "lima"}
	kw := extractKeywords(strings.Join(words, " "), 10)
	assert.Len(t, kw, 10)
}

func TestReadTime(t *testing.T) {
	assert.Equal(t, 1, readTime("short text"))
	assert.Equal(t, 1, readTime(""))
	assert.Equal(t, 2, readTime(strings.Repeat("word ", 400)))
	assert.Equal(t, 5, readTime(strings.Repeat("word ", 1000)))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 100))

	long := strings.Repeat("word ", 100)
	s := snippet(long, 50)
	assert.True(t, strings.HasSuffix(s, "..."))
	assert.LessOrEqual(t, len(s), 54)
	assert.False(t, strings.Contains(strings.TrimSuffix(s, "..."), "wor "), "does not cut mid-word")

	// A cut landing inside a multi-byte rune must not leave invalid UTF-8.
	uni := strings.Repeat("café ", 40)
	s = snippet(uni, 49)
	assert.True(t, utf8.ValidString(s))
}

func TestCleanAuthor(t *testing.T) {
	assert.Equal(t, "Jane Doe", cleanAuthor("  Jane Doe  "))
	truncated := cleanAuthor(strings.Repeat("x", 300))
	assert.Len(t, truncated, 200)
	assert.True(t, strings.HasSuffix(truncated, "..."))
}

func TestDateFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want time.Time
	}{
		{"https://example.com/2023/12/31/story", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"https://example.com/posts/2024-01-15-title", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"https://example.com/20230605/story/", time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC)},
		{"https://example.com/no-date-here", time.Time{}},
		{"https://example.com/2023/13/45/story", time.Time{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, dateFromURL(tt.url), tt.url)
	}
}

func TestDateFromContent(t *testing.T) {
	got := dateFromContent("Published on January 5, 2024 by the newsroom.")
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), got)

	got = dateFromContent("Updated 2023-11-20 with new figures.")
	assert.Equal(t, time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC), got)

	assert.True(t, dateFromContent("No dates in this text at all.").IsZero())
	assert.True(t, dateFromContent("").IsZero())
}

func TestSanitizeText(t *testing.T) {
	out := sanitizeText(`<p>Hello <script>alert("x")</script>world</p>`)
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "world")
	assert.NotContains(t, out, "<p>")
	assert.NotContains(t, out, "alert")
}

func TestValidURL(t *testing.T) {
	assert.True(t, validURL("https://example.com/a"))
	assert.True(t, validURL("http://example.com"))
	assert.False(t, validURL("ftp://example.com"))
	assert.False(t, validURL("not a url"))
	assert.False(t, validURL(""))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
