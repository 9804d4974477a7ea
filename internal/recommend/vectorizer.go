package recommend

import (
	"math"
	"sort"

	"newsflow/internal/textutil"
)

// Vector is a sparse, L2-normalized term-weight vector keyed by
// vocabulary index.
type Vector map[int]float64

// Cosine returns the cosine similarity of two vectors. Both sides are
// L2-normalized at construction, so this is a plain dot product.
func Cosine(a, b Vector) float64 {
	// iterate the smaller map
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for i, av := range a {
		if bv, ok := b[i]; ok {
			dot += av * bv
		}
	}
	return dot
}

// Vectorizer builds TF-IDF vectors over unigrams and bigrams with
// sublinear tf scaling and smoothed idf. Terms appearing in fewer than
// MinDF documents or in more than MaxDFRatio of them are pruned, and the
// vocabulary is capped at MaxFeatures terms by corpus frequency.
type Vectorizer struct {
	MaxFeatures int
	MinDF       int
	MaxDFRatio  float64

	vocab map[string]int
	idf   []float64
}

// NewVectorizer returns a vectorizer with the production defaults.
func NewVectorizer() *Vectorizer {
	return &Vectorizer{
		MaxFeatures: 5000,
		MinDF:       2,
		MaxDFRatio:  0.95,
	}
}

// terms extracts unigram and bigram terms from one document. Stopwords
// are dropped before bigrams are formed.
func terms(doc string) []string {
	tokens := textutil.Tokenize(textutil.Clean(doc))
	kept := tokens[:0]
	for _, t := range tokens {
		if !textutil.IsStopword(t) {
			kept = append(kept, t)
		}
	}
	out := make([]string, 0, len(kept)*2)
	out = append(out, kept...)
	for i := 0; i+1 < len(kept); i++ {
		out = append(out, kept[i]+" "+kept[i+1])
	}
	return out
}

// Fit learns the vocabulary and idf weights from the document corpus.
func (v *Vectorizer) Fit(docs []string) {
	df := map[string]int{}   // documents containing term
	freq := map[string]int{} // total occurrences, for the vocabulary cap

	for _, doc := range docs {
		seen := map[string]bool{}
		for _, t := range terms(doc) {
			freq[t]++
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	n := len(docs)
	maxDF := int(v.MaxDFRatio * float64(n))
	candidates := make([]string, 0, len(df))
	for t, d := range df {
		if d < v.MinDF {
			continue
		}
		if n > 1 && d > maxDF {
			continue
		}
		candidates = append(candidates, t)
	}

	// Cap vocabulary by corpus frequency, ties broken alphabetically so
	// fits are deterministic.
	sort.Slice(candidates, func(i, j int) bool {
		if freq[candidates[i]] != freq[candidates[j]] {
			return freq[candidates[i]] > freq[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	if v.MaxFeatures > 0 && len(candidates) > v.MaxFeatures {
		candidates = candidates[:v.MaxFeatures]
	}
	sort.Strings(candidates)

	v.vocab = make(map[string]int, len(candidates))
	v.idf = make([]float64, len(candidates))
	for i, t := range candidates {
		v.vocab[t] = i
		// smooth idf: log((1+n)/(1+df)) + 1
		v.idf[i] = math.Log(float64(1+n)/float64(1+df[t])) + 1
	}
}

// Transform vectorizes one document against the fitted vocabulary.
// Unknown terms are ignored.
func (v *Vectorizer) Transform(doc string) Vector {
	if v.vocab == nil {
		return Vector{}
	}
	counts := map[int]int{}
	for _, t := range terms(doc) {
		if idx, ok := v.vocab[t]; ok {
			counts[idx]++
		}
	}

	vec := make(Vector, len(counts))
	var norm float64
	for idx, c := range counts {
		// sublinear tf scaling
		w := (1 + math.Log(float64(c))) * v.idf[idx]
		vec[idx] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

// FitTransform fits the corpus and returns a vector per document.
func (v *Vectorizer) FitTransform(docs []string) []Vector {
	v.Fit(docs)
	out := make([]Vector, len(docs))
	for i, doc := range docs {
		out[i] = v.Transform(doc)
	}
	return out
}

// VocabSize reports the fitted vocabulary size.
func (v *Vectorizer) VocabSize() int { return len(v.vocab) }
