package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"newsflow/internal/llm"
	"newsflow/internal/recommend"
	"newsflow/internal/scraper"
	"newsflow/internal/store"
	"newsflow/pkg/models"
)

// ErrAuthRequired is returned when an interaction endpoint is called without
// a valid user.
var ErrAuthRequired = errors.New("authentication required")

var ErrNotFound = store.ErrNotFound

// Store is everything the service needs from persistence.
type Store interface {
	SaveArticles(ctx context.Context, articles []*models.Article) error
	ArticleByID(ctx context.Context, id string) (*models.Article, error)
	ListArticles(ctx context.Context, category string, limit, offset int) ([]*models.Article, error)
	SearchArticles(ctx context.Context, q string, limit int) ([]*models.Article, error)
	TrendingArticles(ctx context.Context, category string, window time.Duration, limit int) ([]*models.Article, error)
	IncrementViewCount(ctx context.Context, articleID string) error
	UpdateLLMSummary(ctx context.Context, articleID, summary string) error
	DeleteArticlesOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	RecordInteraction(ctx context.Context, in *models.Interaction) error
	ToggleBookmark(ctx context.Context, userID, articleID string) (bool, error)
	ToggleLike(ctx context.Context, userID, articleID string) (bool, error)
	BookmarkedArticles(ctx context.Context, userID string, limit int) ([]*models.Article, error)
	UserPreference(ctx context.Context, userID string) (*models.Preference, error)
	SavePreference(ctx context.Context, p *models.Preference) error

	ListSources(ctx context.Context, activeOnly bool) ([]*models.Source, error)
	SourceByID(ctx context.Context, id string) (*models.Source, error)
	CreateSource(ctx context.Context, src *models.Source) error
	ListCategories(ctx context.Context) ([]*models.Category, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
}

type Service struct {
	repo    Store
	rdb     *redis.Client
	engine  *recommend.Engine
	hybrid  *recommend.Hybrid
	scraper *scraper.Scraper
	llm     *llm.Client
}

func NewService(repo Store, rdb *redis.Client, engine *recommend.Engine, hybrid *recommend.Hybrid, sc *scraper.Scraper, llmClient *llm.Client) *Service {
	return &Service{repo: repo, rdb: rdb, engine: engine, hybrid: hybrid, scraper: sc, llm: llmClient}
}

// Ingest stores externally supplied articles, filling in defaults the way the
// scraper would.
func (s *Service) Ingest(ctx context.Context, articles []*models.Article) error {
	now := time.Now().UTC()
	for _, a := range articles {
		if a.PublishedAt.IsZero() {
			a.PublishedAt = now
		}
		if a.ReadTime <= 0 {
			a.ReadTime = 1
		}
		if a.SentimentLbl == "" {
			a.SentimentLbl = models.SentimentNeutral
		}
		a.IsPublished = true
	}
	return s.repo.SaveArticles(ctx, articles)
}

// GetArticle fetches one article. A non-empty viewerID counts a view against
// the article and the viewer's history.
func (s *Service) GetArticle(ctx context.Context, id, viewerID string) (*models.Article, error) {
	a, err := s.repo.ArticleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		log.Printf("increment view count id=%s: %v", id, err)
	}
	if viewerID != "" {
		s.track(ctx, viewerID, id, models.ActionView, "")
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, category string, limit, offset int) ([]*models.Article, error) {
	return s.repo.ListArticles(ctx, category, limit, offset)
}

func (s *Service) Search(ctx context.Context, q string, limit int) ([]*models.Article, error) {
	return s.repo.SearchArticles(ctx, q, limit)
}

// Trending returns the highest-engagement articles of the given window
// (24 hours by default), cached for 15 minutes.
func (s *Service) Trending(ctx context.Context, category string, hours, limit int) ([]*models.Article, error) {
	if hours <= 0 {
		hours = 24
	}
	key := fmt.Sprintf("newsflow:trending:%s:%d:%d", category, hours, limit)
	if cached := s.cachedArticles(ctx, key); cached != nil {
		return cached, nil
	}
	arts, err := s.repo.TrendingArticles(ctx, category, time.Duration(hours)*time.Hour, limit)
	if err != nil {
		return nil, err
	}
	s.cacheArticles(ctx, key, arts, 15*time.Minute)
	return arts, nil
}

func (s *Service) Similar(ctx context.Context, articleID string, limit int) ([]*models.Article, error) {
	return s.engine.SimilarArticles(ctx, articleID, limit)
}

func (s *Service) PersonalizedFeed(ctx context.Context, userID string, limit int, excludeRead bool) ([]*models.Article, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.hybrid.PersonalizedFeed(ctx, userID, limit, excludeRead)
}

func (s *Service) ExploreFeed(ctx context.Context, userID string, limit int) ([]*models.Article, error) {
	return s.hybrid.ExploreFeed(ctx, userID, limit)
}

// Summarize returns the article's LLM summary, generating and persisting it
// on first request.
func (s *Service) Summarize(ctx context.Context, articleID string) (string, error) {
	a, err := s.repo.ArticleByID(ctx, articleID)
	if err != nil {
		return "", err
	}
	if a.LLMSummary != "" {
		return a.LLMSummary, nil
	}
	content := a.Content
	if content == "" {
		content = a.Summary
	}
	if content == "" {
		content = a.Title
	}
	summary, err := s.llm.Summarize(ctx, a.Title, content)
	if err != nil {
		return "", fmt.Errorf("llm summarize: %w", err)
	}
	if err := s.repo.UpdateLLMSummary(ctx, articleID, summary); err != nil {
		return "", fmt.Errorf("save summary: %w", err)
	}
	return summary, nil
}

// Bookmark toggles the bookmark and reports the resulting state. Setting a
// bookmark also logs an interaction so the recommender sees it.
func (s *Service) Bookmark(ctx context.Context, userID, articleID string) (bool, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return false, err
	}
	if _, err := s.repo.ArticleByID(ctx, articleID); err != nil {
		return false, err
	}
	saved, err := s.repo.ToggleBookmark(ctx, userID, articleID)
	if err != nil {
		return false, err
	}
	if saved {
		s.track(ctx, userID, articleID, models.ActionBookmark, "")
	}
	return saved, nil
}

// Like toggles the like and reports the resulting state.
func (s *Service) Like(ctx context.Context, userID, articleID string) (bool, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return false, err
	}
	if _, err := s.repo.ArticleByID(ctx, articleID); err != nil {
		return false, err
	}
	liked, err := s.repo.ToggleLike(ctx, userID, articleID)
	if err != nil {
		return false, err
	}
	if liked {
		s.track(ctx, userID, articleID, models.ActionLike, "")
	}
	return liked, nil
}

// TrackClick counts a click through to the article's source. The view count
// bumps for every caller; the interaction is recorded only for known users,
// so anonymous readers still get a success response.
func (s *Service) TrackClick(ctx context.Context, userID, articleID string) error {
	if _, err := s.repo.ArticleByID(ctx, articleID); err != nil {
		return err
	}
	if err := s.repo.IncrementViewCount(ctx, articleID); err != nil {
		log.Printf("increment view count id=%s: %v", articleID, err)
	}
	if s.knownUser(ctx, userID) {
		s.track(ctx, userID, articleID, models.ActionClick, "")
	}
	return nil
}

// TrackShare works for anonymous callers too; only known users leave history.
func (s *Service) TrackShare(ctx context.Context, userID, articleID, platform string) error {
	if _, err := s.repo.ArticleByID(ctx, articleID); err != nil {
		return err
	}
	if s.knownUser(ctx, userID) {
		s.track(ctx, userID, articleID, models.ActionShare, platform)
	}
	return nil
}

// TrackSummaryView logs that the reader expanded an article's summary.
func (s *Service) TrackSummaryView(ctx context.Context, userID, articleID string) error {
	if _, err := s.repo.ArticleByID(ctx, articleID); err != nil {
		return err
	}
	if s.knownUser(ctx, userID) {
		s.track(ctx, userID, articleID, models.ActionView, "summary")
	}
	return nil
}

func (s *Service) Bookmarks(ctx context.Context, userID string, limit int) ([]*models.Article, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.BookmarkedArticles(ctx, userID, limit)
}

func (s *Service) Preferences(ctx context.Context, userID string) (*models.Preference, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.UserPreference(ctx, userID)
}

// UpdatePreferences replaces the user's preferred categories and sources and
// drops their cached feed so the change shows up immediately.
func (s *Service) UpdatePreferences(ctx context.Context, p *models.Preference) error {
	if _, err := s.requireUser(ctx, p.UserID); err != nil {
		return err
	}
	if err := s.repo.SavePreference(ctx, p); err != nil {
		return err
	}
	if s.rdb != nil {
		pattern := fmt.Sprintf("newsflow:feed:*:%s:*", p.UserID)
		keys, err := s.rdb.Keys(ctx, pattern).Result()
		if err == nil && len(keys) > 0 {
			s.rdb.Del(ctx, keys...)
		}
	}
	return nil
}

func (s *Service) Sources(ctx context.Context) ([]*models.Source, error) {
	return s.repo.ListSources(ctx, false)
}

func (s *Service) AddSource(ctx context.Context, src *models.Source) error {
	if src.SourceType == "" {
		src.SourceType = models.SourceTypeRSS
	}
	return s.repo.CreateSource(ctx, src)
}

func (s *Service) Categories(ctx context.Context) ([]*models.Category, error) {
	return s.repo.ListCategories(ctx)
}

// ScrapeSourceNow runs a scrape of one source outside the schedule.
func (s *Service) ScrapeSourceNow(ctx context.Context, sourceID string) (models.ScrapeStats, error) {
	src, err := s.repo.SourceByID(ctx, sourceID)
	if err != nil {
		return models.ScrapeStats{}, err
	}
	return s.scraper.ScrapeSource(ctx, src)
}

// ScrapeDueSources scrapes every active source whose interval has elapsed.
func (s *Service) ScrapeDueSources(ctx context.Context) error {
	sources, err := s.repo.ListSources(ctx, true)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	now := time.Now().UTC()
	total := models.ScrapeStats{}
	for _, src := range sources {
		if !src.DueForScraping(now) {
			continue
		}
		stats, err := s.scraper.ScrapeSource(ctx, src)
		if err != nil {
			log.Printf("scrape source=%s failed: %v", src.Slug, err)
			continue
		}
		total.Add(stats)
	}
	if total.Success > 0 {
		log.Printf("scrape run: saved=%d failed=%d duplicates=%d", total.Success, total.Failed, total.Duplicates)
	}
	return nil
}

// RebuildIndex refreshes the recommendation index over recent articles.
func (s *Service) RebuildIndex(ctx context.Context) error {
	return s.engine.Rebuild(ctx)
}

// CleanupOldArticles removes unbookmarked articles older than the cutoff.
func (s *Service) CleanupOldArticles(ctx context.Context, olderThan time.Duration) (int, error) {
	return s.repo.DeleteArticlesOlderThan(ctx, time.Now().UTC().Add(-olderThan))
}

func (s *Service) requireUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}
	u, err := s.repo.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAuthRequired
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAuthRequired
	}
	return u, nil
}

// knownUser reports whether userID names an active user. Tracking endpoints
// accept anonymous callers; they just leave no interaction history.
func (s *Service) knownUser(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	u, err := s.repo.UserByID(ctx, userID)
	return err == nil && u.IsActive
}

// track logs an interaction; failures are logged, never surfaced.
func (s *Service) track(ctx context.Context, userID, articleID, action, platform string) {
	err := s.repo.RecordInteraction(ctx, &models.Interaction{
		UserID:    userID,
		ArticleID: articleID,
		Action:    action,
		Platform:  platform,
	})
	if err != nil {
		log.Printf("record interaction user=%s article=%s action=%s: %v", userID, articleID, action, err)
	}
}

func (s *Service) cachedArticles(ctx context.Context, key string) []*models.Article {
	if s.rdb == nil {
		return nil
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var arts []*models.Article
	if err := json.Unmarshal(raw, &arts); err != nil {
		return nil
	}
	return arts
}

func (s *Service) cacheArticles(ctx context.Context, key string, arts []*models.Article, ttl time.Duration) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(arts)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("cache set %s: %v", key, err)
	}
}
