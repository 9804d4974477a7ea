package models

import (
	"time"

	dbtypes "newsflow/internal/db"
)

// Article action types recorded in the interaction log.
const (
	ActionView     = "view"
	ActionLike     = "like"
	ActionShare    = "share"
	ActionBookmark = "bookmark"
	ActionComment  = "comment"
	ActionClick    = "click"
)

// Sentiment labels assigned by the analyzer.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Source types supported by the scraper.
const (
	SourceTypeRSS     = "rss"
	SourceTypeWebsite = "website"
	SourceTypeAPI     = "api"
)

// Engagement weights for trending scores: views + 2*likes + 3*shares + 2*comments.
const (
	WeightView    = 1
	WeightLike    = 2
	WeightShare   = 3
	WeightComment = 2
)

// Article represents a news article record used across the service.
type Article struct {
	ID           string              `db:"id" json:"id"`
	Title        string              `db:"title" json:"title"`
	URL          string              `db:"url" json:"url"`
	Content      string              `db:"content" json:"content"`
	Summary      string              `db:"summary" json:"summary"`
	LLMSummary   string              `db:"llm_summary" json:"llm_summary,omitempty"`
	Author       string              `db:"author" json:"author,omitempty"`
	SourceID     string              `db:"source_id" json:"source_id"`
	SourceName   string              `db:"source_name" json:"source_name,omitempty"`
	PublishedAt  time.Time           `db:"published_at" json:"published_at"`
	ScrapedAt    time.Time           `db:"scraped_at" json:"scraped_at"`
	TopImage     string              `db:"top_image" json:"top_image,omitempty"`
	Sentiment    float64             `db:"sentiment_score" json:"sentiment_score"`
	SentimentLbl string              `db:"sentiment_label" json:"sentiment_label,omitempty"`
	ReadTime     int                 `db:"read_time_mins" json:"read_time_mins"`
	ViewCount    int                 `db:"view_count" json:"view_count"`
	Keywords     dbtypes.StringSlice `db:"keywords" json:"keywords"`
	Categories   dbtypes.StringSlice `db:"categories" json:"categories"`
	IsFeatured   bool                `db:"is_featured" json:"is_featured"`
	IsPublished  bool                `db:"is_published" json:"is_published"`

	// Relevance and Reason are set at runtime by the recommenders (not persisted).
	Relevance float64 `db:"relevance_score" json:"relevance_score,omitempty"`
	Reason    string  `db:"-" json:"recommendation_reason,omitempty"`
}

// Category is static reference data grouping articles by topic.
type Category struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description string    `db:"description" json:"description,omitempty"`
	Icon        string    `db:"icon" json:"icon,omitempty"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Source is a news outlet the scraper pulls articles from.
type Source struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Slug            string     `db:"slug" json:"slug"`
	Description     string     `db:"description" json:"description,omitempty"`
	BaseURL         string     `db:"base_url" json:"base_url"`
	RSSFeed         string     `db:"rss_feed" json:"rss_feed,omitempty"`
	SourceType      string     `db:"source_type" json:"source_type"`
	PrimaryCategory string     `db:"primary_category" json:"primary_category"`
	Country         string     `db:"country" json:"country,omitempty"`
	Language        string     `db:"language" json:"language"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	ScrapeFrequency int        `db:"scrape_frequency_mins" json:"scrape_frequency_mins"`
	MaxArticles     int        `db:"max_articles_per_scrape" json:"max_articles_per_scrape"`
	LastScraped     *time.Time `db:"last_scraped" json:"last_scraped,omitempty"`
	TotalScraped    int        `db:"total_articles_scraped" json:"total_articles_scraped"`
	SuccessRate     float64    `db:"success_rate" json:"success_rate"`
	Credibility     float64    `db:"credibility_score" json:"credibility_score"`
	BiasRating      string     `db:"bias_rating" json:"bias_rating"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// DueForScraping reports whether the source should be scraped again.
func (s *Source) DueForScraping(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if s.LastScraped == nil {
		return true
	}
	return now.Sub(*s.LastScraped) >= time.Duration(s.ScrapeFrequency)*time.Minute
}

// User is an authentication identity.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Profile holds a user's display and reading preferences plus onboarding state.
type Profile struct {
	UserID             string `db:"user_id" json:"user_id"`
	DisplayName        string `db:"display_name" json:"display_name,omitempty"`
	Theme              string `db:"theme" json:"theme"`
	ReadingSpeedWPM    int    `db:"reading_speed_wpm" json:"reading_speed_wpm"`
	IsOnboarded        bool   `db:"is_onboarded" json:"is_onboarded"`
	EmailNotifications bool   `db:"email_notifications" json:"email_notifications"`
	NotifyFrequency    string `db:"notification_frequency" json:"notification_frequency"`
}

// Interaction is one row of the append-only user event log.
type Interaction struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	ArticleID   string    `db:"article_id" json:"article_id"`
	Action      string    `db:"action" json:"action"`
	Platform    string    `db:"platform" json:"platform,omitempty"`
	IPAddress   string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent   string    `db:"user_agent" json:"user_agent,omitempty"`
	ReadingSecs int       `db:"reading_time_secs" json:"reading_time_secs,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Preference links a user to the categories and sources they want in their feed.
type Preference struct {
	UserID     string              `db:"user_id" json:"user_id"`
	Categories dbtypes.StringSlice `db:"categories" json:"categories"`
	Sources    dbtypes.StringSlice `db:"sources" json:"sources"`
}

// Bookmark marks an article saved by a user.
type Bookmark struct {
	UserID    string    `db:"user_id" json:"user_id"`
	ArticleID string    `db:"article_id" json:"article_id"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ScrapeStats summarizes one scraping run over a source.
type ScrapeStats struct {
	Success    int `json:"success"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
}

// Add folds another run's counters into s.
func (s *ScrapeStats) Add(o ScrapeStats) {
	s.Success += o.Success
	s.Failed += o.Failed
	s.Duplicates += o.Duplicates
}
