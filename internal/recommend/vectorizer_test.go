package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitPrunesRareAndUbiquitousTerms(t *testing.T) {
	v := NewVectorizer()
	docs := []string{
		"market economy shares unique1",
		"market economy shares unique2",
		"market economy shares unique3",
	}
	v.Fit(docs)

	// "unique*" appear in one document each and fall under MinDF.
	assert.Empty(t, v.Transform("unique1 unique2 unique3"))

	// "market" appears everywhere but n=3 keeps it under the 0.95 ratio cap
	// only when df <= 2; df=3 > 2 so it is pruned.
	assert.Empty(t, v.Transform("market"))

	// Terms in exactly two documents survive.
	v2 := NewVectorizer()
	v2.Fit([]string{
		"election results counted",
		"election results delayed",
		"weather forecast sunny",
		"weather forecast rainy",
	})
	assert.NotEmpty(t, v2.Transform("election results"))
	assert.NotEmpty(t, v2.Transform("weather forecast"))
}

func TestTransformIsL2Normalized(t *testing.T) {
	v := NewVectorizer()
	docs := []string{
		"quantum processor design quantum",
		"quantum processor milestone",
		"football match report",
		"football match highlights",
	}
	v.Fit(docs)

	vec := v.Transform(docs[0])
	var norm float64
	for _, w := range vec {
		norm += w * w
	}
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestCosine(t *testing.T) {
	v := NewVectorizer()
	docs := []string{
		"quantum processor design",
		"quantum processor milestone",
		"football match report",
		"football match highlights",
	}
	v.Fit(docs)

	tech1 := v.Transform(docs[0])
	tech2 := v.Transform(docs[1])
	sport := v.Transform(docs[2])

	assert.InDelta(t, 1.0, Cosine(tech1, tech1), 1e-9)
	assert.Greater(t, Cosine(tech1, tech2), 0.3)
	assert.Zero(t, Cosine(tech1, sport))
}

func TestBigramsEnterVocabulary(t *testing.T) {
	v := NewVectorizer()
	v.Fit([]string{
		"interest rates rise sharply",
		"interest rates fall sharply",
		"storm warnings issued overnight",
		"storm warnings lifted overnight",
	})
	// The bigram survives MinDF because two documents contain it.
	assert.NotEmpty(t, v.Transform("interest rates"))

	// Stopwords never make it in, alone or inside bigrams.
	assert.Empty(t, v.Transform("the of and"))
}

func TestMaxFeaturesCapIsDeterministic(t *testing.T) {
	docs := []string{
		"alpha beta gamma delta epsilon",
		"alpha beta gamma delta epsilon",
		"zeta eta theta iota kappa",
	}
	a := &Vectorizer{MaxFeatures: 3, MinDF: 2, MaxDFRatio: 0.95}
	b := &Vectorizer{MaxFeatures: 3, MinDF: 2, MaxDFRatio: 0.95}
	a.Fit(docs)
	b.Fit(docs)

	assert.Equal(t, 3, a.VocabSize())
	assert.Equal(t, 3, b.VocabSize())
	va := a.Transform(docs[0])
	vb := b.Transform(docs[0])
	assert.InDelta(t, 1.0, Cosine(va, vb), 1e-9)
}

func TestTransformBeforeFit(t *testing.T) {
	v := NewVectorizer()
	assert.Empty(t, v.Transform("anything"))
}
