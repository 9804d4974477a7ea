// Package recommend implements the content-based article recommender:
// a TF-IDF index over recent articles, per-user interest vectors derived
// from the interaction log, and a hybrid blend with trending and fresh
// content.
package recommend

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"newsflow/pkg/models"
)

// Store is the slice of the storage layer the recommenders read from.
type Store interface {
	RecentArticles(ctx context.Context, since time.Time, limit int) ([]*models.Article, error)
	ArticlesByIDs(ctx context.Context, ids []string) ([]*models.Article, error)
	UserInteractions(ctx context.Context, userID string, limit int) ([]models.Interaction, error)
	ViewedArticleIDs(ctx context.Context, userID string) ([]string, error)
	UserPreference(ctx context.Context, userID string) (*models.Preference, error)
	LatestArticles(ctx context.Context, categories []string, excludeIDs []string, limit int) ([]*models.Article, error)
	TrendingArticles(ctx context.Context, category string, window time.Duration, limit int) ([]*models.Article, error)
	BreakingArticles(ctx context.Context, window time.Duration, limit int) ([]*models.Article, error)
	FreshArticles(ctx context.Context, categories []string, since time.Time, viewerID string, limit int) ([]*models.Article, error)
}

// Index build parameters.
const (
	indexWindowDays = 30
	indexMaxDocs    = 5000
	titleWeight     = 3
)

// Scoring parameters.
const (
	historyLimit    = 50
	minRecScore     = 0.1
	minSimilarScore = 0.2
	maxPerSource    = 2
	decayDays       = 30.0
	depthBonusStep  = 0.2
)

// actionWeights rank how strongly each interaction type signals interest.
var actionWeights = map[string]float64{
	models.ActionView:     1.0,
	models.ActionLike:     2.0,
	models.ActionBookmark: 2.5,
	models.ActionShare:    3.0,
	models.ActionComment:  2.2,
	models.ActionClick:    1.1,
}

// Engine is the content-based recommender. The TF-IDF index is held in
// memory behind an RWMutex and rebuilt periodically by the scheduler.
type Engine struct {
	store Store

	mu      sync.RWMutex
	vec     *Vectorizer
	vectors []Vector
	ids     []string
	sources map[string]string // article id -> source id
	builtAt time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// articleText combines title (weighted by repetition), content, keywords
// and category names into one document for vectorization.
func articleText(a *models.Article) string {
	var b strings.Builder
	for i := 0; i < titleWeight; i++ {
		b.WriteString(a.Title)
		b.WriteByte(' ')
	}
	b.WriteString(a.Content)
	b.WriteByte(' ')
	b.WriteString(strings.Join(a.Keywords, " "))
	b.WriteByte(' ')
	b.WriteString(strings.Join(a.Categories, " "))
	return b.String()
}

// Rebuild refits the TF-IDF index over the last 30 days of articles.
func (e *Engine) Rebuild(ctx context.Context) error {
	since := time.Now().AddDate(0, 0, -indexWindowDays)
	articles, err := e.store.RecentArticles(ctx, since, indexMaxDocs)
	if err != nil {
		return fmt.Errorf("load articles for index: %w", err)
	}
	if len(articles) == 0 {
		log.Printf("recommend: no articles to index")
		return nil
	}

	docs := make([]string, len(articles))
	ids := make([]string, len(articles))
	sources := make(map[string]string, len(articles))
	for i, a := range articles {
		docs[i] = articleText(a)
		ids[i] = a.ID
		sources[a.ID] = a.SourceID
	}

	vec := NewVectorizer()
	vectors := vec.FitTransform(docs)

	e.mu.Lock()
	e.vec = vec
	e.vectors = vectors
	e.ids = ids
	e.sources = sources
	e.builtAt = time.Now()
	e.mu.Unlock()

	log.Printf("recommend: indexed %d articles, vocab=%d", len(ids), vec.VocabSize())
	return nil
}

// ensureIndex builds the index on first use.
func (e *Engine) ensureIndex(ctx context.Context) error {
	e.mu.RLock()
	ready := e.vec != nil
	e.mu.RUnlock()
	if ready {
		return nil
	}
	return e.Rebuild(ctx)
}

// userVector derives an interest vector from the user's recent
// interactions. Interactions are grouped per article; each article's text
// is weighted by time decay, the strongest action on it, and a depth
// bonus for repeated engagement. Returns nil when the user has no history.
func (e *Engine) userVector(ctx context.Context, userID string) (Vector, error) {
	interactions, err := e.store.UserInteractions(ctx, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	if len(interactions) == 0 {
		return nil, nil
	}

	type group struct {
		maxWeight  float64
		mostRecent time.Time
		count      int
	}
	groups := map[string]*group{}
	order := []string{}
	for _, it := range interactions {
		g := groups[it.ArticleID]
		if g == nil {
			g = &group{}
			groups[it.ArticleID] = g
			order = append(order, it.ArticleID)
		}
		if w := actionWeights[it.Action]; w > g.maxWeight {
			g.maxWeight = w
		}
		if it.CreatedAt.After(g.mostRecent) {
			g.mostRecent = it.CreatedAt
		}
		g.count++
	}

	articles, err := e.store.ArticlesByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load history articles: %w", err)
	}

	now := time.Now()
	var b strings.Builder
	for _, a := range articles {
		g := groups[a.ID]
		if g == nil {
			continue
		}
		days := now.Sub(g.mostRecent).Hours() / 24
		timeWeight := math.Exp(-days / decayDays)
		depthBonus := 1.0 + float64(g.count-1)*depthBonusStep
		weight := timeWeight * g.maxWeight * depthBonus

		text := articleText(a)
		reps := int(weight * 3)
		if reps < 1 {
			reps = 1
		}
		for i := 0; i < reps; i++ {
			b.WriteString(text)
			b.WriteByte(' ')
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.vec == nil {
		return nil, nil
	}
	return e.vec.Transform(b.String()), nil
}

type scored struct {
	id    string
	score float64
}

// Recommendations returns personalized articles for a user, ranked by
// cosine similarity against their interest vector. Users without history
// fall back to their preferred categories, then to the latest articles.
func (e *Engine) Recommendations(ctx context.Context, userID string, limit int, excludeRead bool) ([]*models.Article, error) {
	if err := e.ensureIndex(ctx); err != nil {
		return nil, err
	}

	e.mu.RLock()
	empty := len(e.ids) == 0
	e.mu.RUnlock()
	if empty {
		return []*models.Article{}, nil
	}

	userVec, err := e.userVector(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userVec == nil {
		return e.categoryFallback(ctx, userID, limit, excludeRead)
	}

	excluded := map[string]bool{}
	if excludeRead {
		viewed, err := e.store.ViewedArticleIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load viewed ids: %w", err)
		}
		for _, id := range viewed {
			excluded[id] = true
		}
	}

	e.mu.RLock()
	candidates := make([]scored, 0, len(e.ids))
	for i, id := range e.ids {
		if excluded[id] {
			continue
		}
		if s := Cosine(userVec, e.vectors[i]); s >= minRecScore {
			candidates = append(candidates, scored{id, s})
		}
	}
	sources := e.sources
	e.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	diverse := applySourceDiversity(candidates, sources, maxPerSource, limit)

	if len(diverse) == 0 {
		return e.categoryFallback(ctx, userID, limit, excludeRead)
	}

	return e.resolve(ctx, userID, diverse)
}

// resolve loads the scored articles and attaches relevance and reasons.
func (e *Engine) resolve(ctx context.Context, userID string, recs []scored) ([]*models.Article, error) {
	ids := make([]string, len(recs))
	scores := make(map[string]float64, len(recs))
	for i, r := range recs {
		ids[i] = r.id
		scores[r.id] = r.score
	}
	articles, err := e.store.ArticlesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load recommended articles: %w", err)
	}

	pref, _ := e.store.UserPreference(ctx, userID)
	for _, a := range articles {
		a.Relevance = scores[a.ID]
		a.Reason = recommendationReason(a, pref)
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].Relevance > articles[j].Relevance })
	return articles, nil
}

// SimilarArticles ranks index articles by similarity to one reference
// article, falling back to its categories when nothing clears the
// threshold.
func (e *Engine) SimilarArticles(ctx context.Context, articleID string, limit int) ([]*models.Article, error) {
	if err := e.ensureIndex(ctx); err != nil {
		return nil, err
	}

	e.mu.RLock()
	var ref Vector
	for i, id := range e.ids {
		if id == articleID {
			ref = e.vectors[i]
			break
		}
	}
	e.mu.RUnlock()

	if ref == nil {
		// Not in the index window; vectorize on the fly.
		articles, err := e.store.ArticlesByIDs(ctx, []string{articleID})
		if err != nil {
			return nil, err
		}
		if len(articles) == 0 {
			return nil, fmt.Errorf("article %s not found", articleID)
		}
		e.mu.RLock()
		if e.vec != nil {
			ref = e.vec.Transform(articleText(articles[0]))
		}
		e.mu.RUnlock()
	}
	if ref == nil {
		return []*models.Article{}, nil
	}

	e.mu.RLock()
	candidates := make([]scored, 0, limit*2)
	for i, id := range e.ids {
		if id == articleID {
			continue
		}
		if s := Cosine(ref, e.vectors[i]); s > minSimilarScore {
			candidates = append(candidates, scored{id, s})
		}
	}
	e.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	if len(candidates) == 0 {
		return e.similarByCategory(ctx, articleID, limit)
	}

	ids := make([]string, len(candidates))
	scores := make(map[string]float64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
		scores[c.id] = c.score
	}
	articles, err := e.store.ArticlesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range articles {
		a.Relevance = scores[a.ID]
		a.Reason = "Similar content"
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].Relevance > articles[j].Relevance })
	return articles, nil
}

func (e *Engine) similarByCategory(ctx context.Context, articleID string, limit int) ([]*models.Article, error) {
	refs, err := e.store.ArticlesByIDs(ctx, []string{articleID})
	if err != nil || len(refs) == 0 {
		return []*models.Article{}, err
	}
	articles, err := e.store.LatestArticles(ctx, refs[0].Categories, []string{articleID}, limit)
	if err != nil {
		return nil, err
	}
	for _, a := range articles {
		a.Relevance = 0.5
		a.Reason = "Similar content"
	}
	return articles, nil
}

// categoryFallback serves users without interaction history from their
// preferred categories, or the latest articles when they have none.
func (e *Engine) categoryFallback(ctx context.Context, userID string, limit int, excludeRead bool) ([]*models.Article, error) {
	var categories []string
	pref, err := e.store.UserPreference(ctx, userID)
	if err == nil && pref != nil {
		categories = pref.Categories
	}

	var exclude []string
	if excludeRead {
		if viewed, err := e.store.ViewedArticleIDs(ctx, userID); err == nil {
			exclude = viewed
		}
	}

	articles, err := e.store.LatestArticles(ctx, categories, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("category fallback: %w", err)
	}
	reason := "Latest articles"
	if len(categories) > 0 {
		reason = "From your preferred categories"
	}
	for _, a := range articles {
		a.Relevance = 0.5
		a.Reason = reason
	}
	return articles, nil
}

// applySourceDiversity caps how many recommendations one source may fill.
func applySourceDiversity(recs []scored, sources map[string]string, perSource, limit int) []scored {
	out := make([]scored, 0, limit)
	counts := map[string]int{}
	for _, r := range recs {
		src := sources[r.id]
		if src != "" {
			if counts[src] >= perSource {
				continue
			}
			counts[src]++
		}
		out = append(out, r)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// recommendationReason explains a pick in terms the frontend can show.
func recommendationReason(a *models.Article, pref *models.Preference) string {
	if pref != nil {
		for _, c := range a.Categories {
			if pref.Categories.Contains(c) {
				return "Based on your interest in " + c
			}
		}
		if pref.Sources.Contains(a.SourceID) {
			return "From " + a.SourceName
		}
	}
	return "Recommended for you"
}
