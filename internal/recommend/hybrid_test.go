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

func newHybridFixture() (*Hybrid, *fakeStore) {
	store := newFakeStore(testCorpus()...)
	engine := NewEngine(store)
	return NewHybrid(engine, store, nil), store
}

func TestPersonalizedFeedBlendsAndDeduplicates(t *testing.T) {
	h, store := newHybridFixture()
	store.interactions["u1"] = []models.Interaction{
		{UserID: "u1", ArticleID: "a1", Action: models.ActionLike, CreatedAt: time.Now()},
	}
	store.viewed["u1"] = []string{"a1"}
	// a2 shows up both as a content match and as trending; it must appear once.
	store.trending[""] = []*models.Article{
		{ID: "a2", Title: "dup", SourceID: "s2", Relevance: 80, PublishedAt: time.Now()},
		{ID: "a5", Title: "trend", SourceID: "s2", Relevance: 40, PublishedAt: time.Now()},
	}

	feed, err := h.PersonalizedFeed(context.Background(), "u1", 10, true)
	require.NoError(t, err)
	require.NotEmpty(t, feed)

	seen := map[string]int{}
	for _, a := range feed {
		seen[a.ID]++
	}
	assert.Equal(t, 1, seen["a2"])
	for _, a := range feed {
		assert.NotEmpty(t, a.Reason)
	}
	// Blended scores are sorted descending before the diversity pass.
	assert.Equal(t, "a2", feed[0].ID)
}

func TestPersonalizedFeedRespectsLimit(t *testing.T) {
	h, store := newHybridFixture()
	store.trending[""] = copyAll(store.articles)

	feed, err := h.PersonalizedFeed(context.Background(), "nobody", 2, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(feed), 2)
}

func TestSetWeightsNormalizes(t *testing.T) {
	h, _ := newHybridFixture()
	h.SetWeights(6, 3, 1)
	assert.InDelta(t, 0.6, h.contentWeight, 1e-9)
	assert.InDelta(t, 0.3, h.trendingWeight, 1e-9)
	assert.InDelta(t, 0.1, h.freshWeight, 1e-9)
}

func TestExploreFeedPutsBreakingFirst(t *testing.T) {
	h, store := newHybridFixture()
	store.breaking = []*models.Article{
		{ID: "b1", Title: "breaking", SourceID: "s1", PublishedAt: time.Now()},
	}
	store.trending[""] = []*models.Article{
		{ID: "b1", Title: "breaking", SourceID: "s1", Relevance: 90, PublishedAt: time.Now()},
		{ID: "t1", Title: "trend", SourceID: "s2", Relevance: 60, PublishedAt: time.Now()},
	}

	feed, err := h.ExploreFeed(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.NotEmpty(t, feed)

	assert.Equal(t, "b1", feed[0].ID)
	assert.Equal(t, "Breaking news", feed[0].Reason)

	seen := map[string]int{}
	for _, a := range feed {
		seen[a.ID]++
	}
	assert.Equal(t, 1, seen["b1"], "breaking article is not repeated by trending")
}

func TestApplyBlendDiversity(t *testing.T) {
	entry := func(id, src, cat string, score float64) *blendEntry {
		return &blendEntry{
			article: &models.Article{
				ID:         id,
				SourceID:   src,
				Categories: dbtypes.StringSlice{cat},
			},
			content: score,
		}
	}
	entries := []*blendEntry{
		entry("a1", "s1", "tech", 0.9),
		entry("a2", "s1", "tech", 0.8),
		entry("a3", "s1", "tech", 0.7),
		entry("a4", "s1", "tech", 0.6), // fourth from s1, capped
		entry("a5", "s2", "tech", 0.5), // fifth tech article, capped
		entry("a6", "s2", "sports", 0.4),
	}

	out := applyBlendDiversity(entries, 5)

	ids := make([]string, len(out))
	for i, e := range out {
		ids[i] = e.article.ID
	}
	// Strict pass takes a1-a3 (source cap), skips a4, takes a5 then a6;
	// limit of 5 is already met, the lenient pass adds nothing.
	assert.Equal(t, []string{"a1", "a2", "a3", "a5", "a6"}, ids)
}

func TestApplyBlendDiversityLenientFill(t *testing.T) {
	entry := func(id string, score float64) *blendEntry {
		return &blendEntry{
			article: &models.Article{ID: id, SourceID: "s1", Categories: dbtypes.StringSlice{"tech"}},
			content: score,
		}
	}
	entries := []*blendEntry{
		entry("a1", 0.9), entry("a2", 0.8), entry("a3", 0.7),
		entry("a4", 0.6), entry("a5", 0.5),
	}

	out := applyBlendDiversity(entries, 5)
	// All five come from one source; the lenient pass fills the quota anyway.
	assert.Len(t, out, 5)
}

func TestNormalizeEngagement(t *testing.T) {
	assert.InDelta(t, 0.5, normalizeEngagement(100, 200), 1e-9)
	assert.InDelta(t, 1.0, normalizeEngagement(500, 200), 1e-9)
}

func TestFormatReasons(t *testing.T) {
	assert.Equal(t, "Recommended for you", formatReasons(nil))
	assert.Equal(t, "Trending now", formatReasons([]string{"Trending now"}))
	assert.Equal(t, "A and B", formatReasons([]string{"A", "B"}))
	assert.Equal(t, "A, B, and more", formatReasons([]string{"A", "B", "C"}))
}
