package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newsflow/pkg/models"
)

func TestAnalyzeLabels(t *testing.T) {
	a := New()

	tests := []struct {
		name  string
		text  string
		label string
	}{
		{"positive", "The team celebrated an amazing win and a great breakthrough", models.SentimentPositive},
		{"negative", "The terrible crisis left thousands to suffer", models.SentimentNegative},
		{"neutral", "The committee meets on Tuesday to review the schedule", models.SentimentNeutral},
		{"empty", "", models.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Analyze(tt.text)
			assert.Equal(t, tt.label, res.Label)
			assert.GreaterOrEqual(t, res.Score, -1.0)
			assert.LessOrEqual(t, res.Score, 1.0)
		})
	}
}

func TestAnalyzeNegationFlips(t *testing.T) {
	a := New()

	plain := a.Analyze("the results were good")
	negated := a.Analyze("the results were not good")

	assert.Equal(t, models.SentimentPositive, plain.Label)
	assert.Equal(t, models.SentimentNegative, negated.Label)
}

func TestAnalyzeBoosterAmplifies(t *testing.T) {
	a := New()

	plain := a.Analyze("a good outcome")
	boosted := a.Analyze("a very good outcome")

	assert.Greater(t, boosted.Score, plain.Score)
}

func TestAnalyzeEmptyConfidence(t *testing.T) {
	a := New()
	res := a.Analyze("   ")
	assert.Equal(t, models.SentimentNeutral, res.Label)
	assert.Zero(t, res.Confidence)
}
