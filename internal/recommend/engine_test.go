package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbtypes "newsflow/internal/db"
	"newsflow/pkg/models"
)

// fakeStore is an in-memory Store for recommender tests. Query methods
// return copies so one test path cannot contaminate another through the
// runtime Relevance and Reason fields.
type fakeStore struct {
	articles     []*models.Article
	interactions map[string][]models.Interaction
	viewed       map[string][]string
	prefs        map[string]*models.Preference
	trending     map[string][]*models.Article // keyed by category, "" = global
	breaking     []*models.Article
	fresh        []*models.Article
}

func newFakeStore(articles ...*models.Article) *fakeStore {
	return &fakeStore{
		articles:     articles,
		interactions: map[string][]models.Interaction{},
		viewed:       map[string][]string{},
		prefs:        map[string]*models.Preference{},
		trending:     map[string][]*models.Article{},
	}
}

func copyArticle(a *models.Article) *models.Article {
	c := *a
	return &c
}

func copyAll(in []*models.Article) []*models.Article {
	out := make([]*models.Article, len(in))
	for i, a := range in {
		out[i] = copyArticle(a)
	}
	return out
}

func (f *fakeStore) RecentArticles(ctx context.Context, since time.Time, limit int) ([]*models.Article, error) {
	return copyAll(f.articles), nil
}

func (f *fakeStore) ArticlesByIDs(ctx context.Context, ids []string) ([]*models.Article, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []*models.Article{}
	for _, a := range f.articles {
		if want[a.ID] {
			out = append(out, copyArticle(a))
		}
	}
	return out, nil
}

func (f *fakeStore) UserInteractions(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	return f.interactions[userID], nil
}

func (f *fakeStore) ViewedArticleIDs(ctx context.Context, userID string) ([]string, error) {
	return f.viewed[userID], nil
}

func (f *fakeStore) UserPreference(ctx context.Context, userID string) (*models.Preference, error) {
	if p, ok := f.prefs[userID]; ok {
		return p, nil
	}
	return &models.Preference{UserID: userID}, nil
}

func (f *fakeStore) LatestArticles(ctx context.Context, categories []string, excludeIDs []string, limit int) ([]*models.Article, error) {
	skip := map[string]bool{}
	for _, id := range excludeIDs {
		skip[id] = true
	}
	out := []*models.Article{}
	for _, a := range f.articles {
		if skip[a.ID] {
			continue
		}
		if len(categories) > 0 && !hasAnyCategory(a, categories) {
			continue
		}
		out = append(out, copyArticle(a))
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) TrendingArticles(ctx context.Context, category string, window time.Duration, limit int) ([]*models.Article, error) {
	out := copyAll(f.trending[category])
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) BreakingArticles(ctx context.Context, window time.Duration, limit int) ([]*models.Article, error) {
	out := copyAll(f.breaking)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) FreshArticles(ctx context.Context, categories []string, since time.Time, viewerID string, limit int) ([]*models.Article, error) {
	out := copyAll(f.fresh)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func hasAnyCategory(a *models.Article, categories []string) bool {
	for _, c := range categories {
		if a.Categories.Contains(c) {
			return true
		}
	}
	return false
}

func article(id, title, content, sourceID string, categories ...string) *models.Article {
	return &models.Article{
		ID:          id,
		Title:       title,
		Content:     content,
		SourceID:    sourceID,
		SourceName:  "Source " + sourceID,
		PublishedAt: time.Now().Add(-time.Hour),
		Categories:  dbtypes.StringSlice(categories),
		IsPublished: true,
	}
}

// A small corpus with two clear topics so similarities are unambiguous.
func testCorpus() []*models.Article {
	return []*models.Article{
		article("a1", "Quantum computing processor milestone announced",
			"Researchers demonstrated a quantum computing processor with record qubit counts.",
			"s1", "technology"),
		article("a2", "Quantum computing processor doubles qubit count",
			"The latest quantum computing processor packs record qubit counts into silicon.",
			"s2", "technology"),
		article("a3", "City wins football championship final",
			"The football team lifted the championship trophy after a dramatic final.",
			"s1", "sports"),
		article("a4", "Football striker breaks championship record",
			"The striker scored again as the football team chased the championship.",
			"s3", "sports"),
		article("a5", "Central bank raises interest rates again",
			"The central bank raised interest rates to cool inflation across the economy.",
			"s2", "business"),
		article("a6", "Inflation slows as interest rates bite",
			"Economists said inflation slowed because the central bank kept interest rates high.",
			"s3", "business"),
	}
}

func TestRebuildIndexesRecentArticles(t *testing.T) {
	store := newFakeStore(testCorpus()...)
	e := NewEngine(store)

	require.NoError(t, e.Rebuild(context.Background()))

	e.mu.RLock()
	defer e.mu.RUnlock()
	assert.Len(t, e.ids, 6)
	assert.Len(t, e.vectors, 6)
	assert.Greater(t, e.vec.VocabSize(), 0)
	assert.Equal(t, "s1", e.sources["a1"])
}

func TestRecommendationsFollowInterests(t *testing.T) {
	store := newFakeStore(testCorpus()...)
	store.interactions["u1"] = []models.Interaction{
		{UserID: "u1", ArticleID: "a1", Action: models.ActionLike, CreatedAt: time.Now()},
		{UserID: "u1", ArticleID: "a1", Action: models.ActionView, CreatedAt: time.Now()},
	}
	store.viewed["u1"] = []string{"a1"}

	e := NewEngine(store)
	recs, err := e.Recommendations(context.Background(), "u1", 5, true)
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	// The other quantum article ranks first; the viewed one never appears.
	assert.Equal(t, "a2", recs[0].ID)
	for _, a := range recs {
		assert.NotEqual(t, "a1", a.ID)
		assert.GreaterOrEqual(t, a.Relevance, minRecScore)
		assert.NotEmpty(t, a.Reason)
	}
}

func TestRecommendationsFallBackToPreferredCategories(t *testing.T) {
	store := newFakeStore(testCorpus()...)
	store.prefs["u2"] = &models.Preference{
		UserID:     "u2",
		Categories: dbtypes.StringSlice{"business"},
	}

	e := NewEngine(store)
	recs, err := e.Recommendations(context.Background(), "u2", 5, false)
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	for _, a := range recs {
		assert.True(t, a.Categories.Contains("business"))
		assert.Equal(t, "From your preferred categories", a.Reason)
	}
}

func TestRecommendationsFallBackToLatestWithoutPreferences(t *testing.T) {
	store := newFakeStore(testCorpus()...)

	e := NewEngine(store)
	recs, err := e.Recommendations(context.Background(), "stranger", 3, false)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, "Latest articles", recs[0].Reason)
}

func TestSimilarArticles(t *testing.T) {
	store := newFakeStore(testCorpus()...)
	e := NewEngine(store)

	similar, err := e.SimilarArticles(context.Background(), "a1", 3)
	require.NoError(t, err)
	require.NotEmpty(t, similar)

	assert.Equal(t, "a2", similar[0].ID)
	for _, a := range similar {
		assert.NotEqual(t, "a1", a.ID, "an article is never similar to itself")
	}
}

func TestApplySourceDiversity(t *testing.T) {
	recs := []scored{
		{"a1", 0.9}, {"a2", 0.8}, {"a3", 0.7}, {"a4", 0.6}, {"a5", 0.5},
	}
	sources := map[string]string{
		"a1": "s1", "a2": "s1", "a3": "s1", "a4": "s2", "a5": "s2",
	}

	out := applySourceDiversity(recs, sources, 2, 10)

	ids := make([]string, len(out))
	for i, r := range out {
		ids[i] = r.id
	}
	// a3 is the third article from s1 and gets dropped.
	assert.Equal(t, []string{"a1", "a2", "a4", "a5"}, ids)
}

func TestUserVectorEmptyHistory(t *testing.T) {
	store := newFakeStore(testCorpus()...)
	e := NewEngine(store)
	require.NoError(t, e.Rebuild(context.Background()))

	vec, err := e.userVector(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, vec)
}
