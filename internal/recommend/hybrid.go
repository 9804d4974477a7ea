package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"newsflow/pkg/models"
)

// Default blend weights: content 60%, trending 30%, fresh 10%.
const (
	defaultContentWeight  = 0.6
	defaultTrendingWeight = 0.3
	defaultFreshWeight    = 0.1
)

// Feed assembly parameters.
const (
	feedCacheTTL      = 30 * time.Minute
	exploreCacheTTL   = 10 * time.Minute
	trendingWindow    = 24 * time.Hour
	exploreWindow     = 48 * time.Hour
	breakingWindow    = time.Hour
	freshWindow       = 12 * time.Hour
	hybridMaxSource   = 3
	hybridMaxCategory = 4
)

// Hybrid blends content-based, trending, and fresh recommendations into
// one personalized feed, with Redis caching in front.
type Hybrid struct {
	engine *Engine
	store  Store
	rdb    *redis.Client

	contentWeight  float64
	trendingWeight float64
	freshWeight    float64
}

// NewHybrid builds a hybrid recommender. rdb may be nil, which disables
// feed caching.
func NewHybrid(engine *Engine, store Store, rdb *redis.Client) *Hybrid {
	return &Hybrid{
		engine:         engine,
		store:          store,
		rdb:            rdb,
		contentWeight:  defaultContentWeight,
		trendingWeight: defaultTrendingWeight,
		freshWeight:    defaultFreshWeight,
	}
}

// SetWeights overrides the blend weights, normalizing them when they do
// not sum to 1.
func (h *Hybrid) SetWeights(content, trending, fresh float64) {
	total := content + trending + fresh
	if math.Abs(total-1.0) > 0.01 && total > 0 {
		log.Printf("recommend: blend weights sum to %.2f, normalizing", total)
		content /= total
		trending /= total
		fresh /= total
	}
	h.contentWeight = content
	h.trendingWeight = trending
	h.freshWeight = fresh
}

type blendEntry struct {
	article  *models.Article
	content  float64
	trending float64
	fresh    float64
	reasons  []string
}

func (b *blendEntry) total() float64 { return b.content + b.trending + b.fresh }

func (b *blendEntry) addReason(r string) {
	for _, have := range b.reasons {
		if have == r {
			return
		}
	}
	b.reasons = append(b.reasons, r)
}

// PersonalizedFeed assembles the hybrid feed for one user.
func (h *Hybrid) PersonalizedFeed(ctx context.Context, userID string, limit int, excludeRead bool) ([]*models.Article, error) {
	cacheKey := fmt.Sprintf("newsflow:feed:hybrid:%s:%d:%t", userID, limit, excludeRead)
	if cached := h.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	entries := map[string]*blendEntry{}
	order := []string{}
	upsert := func(a *models.Article) *blendEntry {
		e := entries[a.ID]
		if e == nil {
			e = &blendEntry{article: a}
			entries[a.ID] = e
			order = append(order, a.ID)
		}
		return e
	}

	// Content-based candidates, oversampled for the diversity pass.
	content, err := h.engine.Recommendations(ctx, userID, limit*2, excludeRead)
	if err != nil {
		log.Printf("recommend: content recommendations for %s: %v", userID, err)
	}
	for _, a := range content {
		e := upsert(a)
		e.content = a.Relevance * h.contentWeight
		e.addReason(a.Reason)
	}

	for _, a := range h.trendingForUser(ctx, userID, limit) {
		e := upsert(a)
		e.trending = a.Relevance * h.trendingWeight
		e.addReason(a.Reason)
	}

	for _, a := range h.freshForUser(ctx, userID, limit) {
		e := upsert(a)
		e.fresh = a.Relevance * h.freshWeight
		e.addReason(a.Reason)
	}

	sorted := make([]*blendEntry, 0, len(order))
	for _, id := range order {
		sorted = append(sorted, entries[id])
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].total() > sorted[j].total() })

	feed := make([]*models.Article, 0, limit)
	for _, e := range applyBlendDiversity(sorted, limit) {
		a := e.article
		a.Relevance = e.total()
		a.Reason = formatReasons(e.reasons)
		feed = append(feed, a)
	}

	h.toCache(ctx, cacheKey, feed, feedCacheTTL)
	return feed, nil
}

// ExploreFeed mixes breaking news and global trending for discovery.
// userID is optional; when present, viewed articles still appear (the
// explore surface is deliberately not filtered by history).
func (h *Hybrid) ExploreFeed(ctx context.Context, userID string, limit int) ([]*models.Article, error) {
	cacheKey := fmt.Sprintf("newsflow:feed:explore:%s:%d", userID, limit)
	if cached := h.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	var pool []*models.Article

	breaking, err := h.store.BreakingArticles(ctx, breakingWindow, 5)
	if err != nil {
		log.Printf("recommend: breaking news: %v", err)
	}
	for _, a := range breaking {
		a.Relevance = 1.0
		a.Reason = "Breaking news"
	}
	pool = append(pool, breaking...)

	trending, err := h.store.TrendingArticles(ctx, "", exploreWindow, limit/2)
	if err != nil {
		log.Printf("recommend: global trending: %v", err)
	}
	for _, a := range trending {
		a.Relevance = normalizeEngagement(a.Relevance, 200)
		a.Reason = "Trending now"
	}
	pool = append(pool, trending...)

	if userID != "" {
		latest, err := h.store.LatestArticles(ctx, nil, nil, 5)
		if err == nil {
			for _, a := range latest {
				a.Relevance = 0.5
				a.Reason = "Something different"
			}
			pool = append(pool, latest...)
		}
	}

	seen := map[string]bool{}
	feed := make([]*models.Article, 0, limit)
	for _, a := range pool {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		feed = append(feed, a)
		if len(feed) >= limit {
			break
		}
	}

	h.toCache(ctx, cacheKey, feed, exploreCacheTTL)
	return feed, nil
}

// trendingForUser prefers trending within the user's preferred
// categories, falling back to global trending.
func (h *Hybrid) trendingForUser(ctx context.Context, userID string, limit int) []*models.Article {
	var categories []string
	if pref, err := h.store.UserPreference(ctx, userID); err == nil && pref != nil {
		categories = pref.Categories
	}

	if len(categories) == 0 {
		articles, err := h.store.TrendingArticles(ctx, "", trendingWindow, limit)
		if err != nil {
			log.Printf("recommend: trending: %v", err)
			return nil
		}
		for _, a := range articles {
			a.Relevance = normalizeEngagement(a.Relevance, 200)
			a.Reason = "Trending now"
		}
		return articles
	}

	perCategory := limit / len(categories)
	if perCategory < 2 {
		perCategory = 2
	}
	var out []*models.Article
	for _, c := range categories {
		articles, err := h.store.TrendingArticles(ctx, c, trendingWindow, perCategory)
		if err != nil {
			log.Printf("recommend: trending in %s: %v", c, err)
			continue
		}
		for _, a := range articles {
			a.Relevance = normalizeEngagement(a.Relevance, 100)
			a.Reason = "Trending in " + c
		}
		out = append(out, articles...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// freshForUser returns the newest unviewed articles in the user's
// preferred categories, scored by how recent they are.
func (h *Hybrid) freshForUser(ctx context.Context, userID string, limit int) []*models.Article {
	var categories []string
	if pref, err := h.store.UserPreference(ctx, userID); err == nil && pref != nil {
		categories = pref.Categories
	}

	since := time.Now().Add(-freshWindow)
	articles, err := h.store.FreshArticles(ctx, categories, since, userID, limit)
	if err != nil {
		log.Printf("recommend: fresh content: %v", err)
		return nil
	}
	now := time.Now()
	for _, a := range articles {
		age := now.Sub(a.PublishedAt)
		score := 1 - age.Hours()/freshWindow.Hours()
		if score < 0 {
			score = 0
		}
		a.Relevance = score
		a.Reason = "Fresh from " + a.SourceName
	}
	return articles
}

// applyBlendDiversity caps per-source and per-category counts, then fills
// remaining slots leniently so short feeds are not starved.
func applyBlendDiversity(entries []*blendEntry, limit int) []*blendEntry {
	out := make([]*blendEntry, 0, limit)
	taken := map[*blendEntry]bool{}
	sourceCounts := map[string]int{}
	categoryCounts := map[string]int{}

	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		src := e.article.SourceID
		if sourceCounts[src] >= hybridMaxSource {
			continue
		}
		cat := ""
		if len(e.article.Categories) > 0 {
			cat = e.article.Categories[0]
		}
		if cat != "" && categoryCounts[cat] >= hybridMaxCategory {
			continue
		}
		out = append(out, e)
		taken[e] = true
		sourceCounts[src]++
		if cat != "" {
			categoryCounts[cat]++
		}
	}

	if len(out) < limit {
		for _, e := range entries {
			if len(out) >= limit {
				break
			}
			if !taken[e] {
				out = append(out, e)
				taken[e] = true
			}
		}
	}
	return out
}

// normalizeEngagement maps a raw engagement count into [0, 1].
func normalizeEngagement(raw, scale float64) float64 {
	return math.Min(1.0, raw/scale)
}

// formatReasons folds recommendation reasons into one display string.
func formatReasons(reasons []string) string {
	switch len(reasons) {
	case 0:
		return "Recommended for you"
	case 1:
		return reasons[0]
	case 2:
		return reasons[0] + " and " + reasons[1]
	default:
		return reasons[0] + ", " + reasons[1] + ", and more"
	}
}

func (h *Hybrid) fromCache(ctx context.Context, key string) []*models.Article {
	if h.rdb == nil {
		return nil
	}
	raw, err := h.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var feed []*models.Article
	if err := json.Unmarshal(raw, &feed); err != nil {
		return nil
	}
	return feed
}

func (h *Hybrid) toCache(ctx context.Context, key string, feed []*models.Article, ttl time.Duration) {
	if h.rdb == nil || len(feed) == 0 {
		return
	}
	raw, err := json.Marshal(feed)
	if err != nil {
		return
	}
	if err := h.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("recommend: cache set %s: %v", key, err)
	}
}
