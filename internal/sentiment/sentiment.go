// Package sentiment scores article text with a lexicon-and-rules model:
// valenced words are summed, negations flip polarity, boosters scale it,
// and the raw sum is normalized to a compound score in [-1, 1].
package sentiment

import (
	"math"
	"strings"

	"newsflow/internal/textutil"
	"newsflow/pkg/models"
)

// maxSampleLen bounds how much of an article body is scored; lexicon
// scoring converges quickly and long tails add nothing.
const maxSampleLen = 2000

// Normalization constant for the compound score (sum / sqrt(sum^2 + alpha)).
const alpha = 15.0

// Thresholds splitting compound scores into labels.
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// negationScale dampens and flips a valence hit by a preceding negation.
const negationScale = -0.74

// boostIncr is how much one booster word shifts a following valence.
const boostIncr = 0.293

// Result is a single sentiment scoring outcome.
type Result struct {
	Score      float64 `json:"score"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Analyzer scores text against the builtin lexicon. The zero value is usable.
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

// Analyze scores text and classifies it as positive, neutral or negative.
func (a *Analyzer) Analyze(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Score: 0, Label: models.SentimentNeutral, Confidence: 0}
	}
	text = textutil.TruncateBytes(text, maxSampleLen)

	tokens := textutil.Tokenize(text)
	var sum float64
	for i, tok := range tokens {
		valence, ok := lexicon[tok]
		if !ok {
			continue
		}

		// Look back up to three tokens for boosters and negations.
		boost := 0.0
		negated := false
		for j := i - 1; j >= 0 && j >= i-3; j-- {
			prev := tokens[j]
			if _, isBooster := boosters[prev]; isBooster {
				if valence > 0 {
					boost += boostIncr
				} else {
					boost -= boostIncr
				}
			}
			if _, isNegator := negators[prev]; isNegator {
				negated = true
			}
		}

		v := valence + boost
		if negated {
			v *= negationScale
		}
		sum += v
	}

	score := sum / math.Sqrt(sum*sum+alpha)
	return classify(score)
}

func classify(score float64) Result {
	switch {
	case score >= positiveThreshold:
		return Result{
			Score:      score,
			Label:      models.SentimentPositive,
			Confidence: math.Min(score*2, 1.0),
		}
	case score <= negativeThreshold:
		return Result{
			Score:      score,
			Label:      models.SentimentNegative,
			Confidence: math.Min(-score*2, 1.0),
		}
	default:
		return Result{
			Score:      score,
			Label:      models.SentimentNeutral,
			Confidence: math.Max(0, 1.0-math.Abs(score)*2),
		}
	}
}

var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "neither": {}, "nobody": {},
	"none": {}, "nor": {}, "nothing": {}, "nowhere": {}, "without": {},
	"hardly": {}, "barely": {}, "isnt": {}, "wasnt": {}, "wont": {},
	"cant": {}, "cannot": {}, "dont": {}, "didnt": {}, "doesnt": {},
}

var boosters = map[string]struct{}{
	"absolutely": {}, "completely": {}, "considerably": {}, "deeply": {},
	"enormously": {}, "especially": {}, "exceptionally": {}, "extremely": {},
	"greatly": {}, "highly": {}, "hugely": {}, "incredibly": {},
	"intensely": {}, "majorly": {}, "particularly": {}, "purely": {},
	"really": {}, "remarkably": {}, "so": {}, "substantially": {},
	"thoroughly": {}, "totally": {}, "tremendously": {}, "utterly": {},
	"very": {},
}

// lexicon maps words to valences roughly on the VADER scale (-4..4).
var lexicon = map[string]float64{
	// positive
	"achieve": 1.7, "advance": 1.4, "agree": 1.5, "amazing": 2.8,
	"approval": 1.8, "approve": 1.7, "benefit": 1.8, "best": 3.2,
	"better": 1.9, "boom": 1.8, "boost": 1.7, "breakthrough": 2.4,
	"brilliant": 2.8, "calm": 1.3, "celebrate": 2.3, "champion": 2.2,
	"clean": 1.4, "comfort": 1.5, "confidence": 1.9, "confident": 1.9,
	"cure": 2.0, "deal": 1.0, "delight": 2.4, "discovery": 1.6,
	"effective": 1.8, "efficient": 1.7, "encourage": 1.8, "enjoy": 2.0,
	"excellent": 2.7, "exciting": 2.2, "fair": 1.5, "fantastic": 2.6,
	"favorite": 2.0, "free": 1.4, "friendly": 1.9, "gain": 1.6,
	"generous": 2.0, "good": 1.9, "great": 3.1, "greatest": 3.2,
	"grow": 1.4, "growth": 1.6, "happy": 2.7, "heal": 1.8, "help": 1.7,
	"hero": 2.5, "honest": 2.0, "hope": 1.9, "hopeful": 2.0,
	"improve": 1.9, "improvement": 1.8, "innovation": 1.7, "inspire": 2.2,
	"joy": 2.8, "launch": 1.0, "love": 3.2, "lucky": 1.8, "miracle": 2.7,
	"opportunity": 1.7, "optimism": 2.0, "optimistic": 1.9, "peace": 2.5,
	"popular": 1.7, "positive": 2.0, "profit": 1.6, "progress": 1.8,
	"promising": 1.9, "prosperity": 2.2, "protect": 1.5, "proud": 2.1,
	"rally": 1.2, "record": 1.0, "recover": 1.6, "recovery": 1.7,
	"relief": 1.8, "rescue": 1.8, "resolve": 1.4, "reward": 1.9,
	"rise": 1.2, "safe": 1.8, "save": 1.9, "secure": 1.6, "smart": 1.9,
	"soar": 1.8, "strong": 1.9, "succeed": 2.1, "success": 2.4,
	"successful": 2.2, "support": 1.7, "surge": 1.3, "thrive": 2.1,
	"top": 1.5, "triumph": 2.5, "trust": 1.9, "victory": 2.5,
	"welcome": 1.8, "win": 2.6, "winner": 2.4, "wonderful": 2.7,

	// negative
	"abuse": -2.8, "accident": -1.9, "accuse": -1.7, "afraid": -2.0,
	"alarm": -1.6, "anger": -2.2, "angry": -2.3, "attack": -2.1,
	"bad": -2.5, "ban": -1.6, "blame": -1.8, "bomb": -2.8, "breach": -1.8,
	"broken": -1.8, "catastrophe": -3.0, "chaos": -2.4, "cheat": -2.2,
	"collapse": -2.2, "concern": -1.2, "conflict": -1.8, "corrupt": -2.6,
	"corruption": -2.5, "crash": -2.3, "crime": -2.5, "criminal": -2.4,
	"crisis": -2.4, "critic": -1.3, "criticize": -1.6, "cruel": -2.7,
	"cut": -1.1, "damage": -2.0, "danger": -2.2, "dangerous": -2.2,
	"dead": -2.9, "deadly": -2.9, "death": -2.9, "debt": -1.7,
	"decline": -1.5, "defeat": -1.9, "deficit": -1.5, "denied": -1.5,
	"deny": -1.3, "destroy": -2.6, "destruction": -2.6, "die": -2.9,
	"disaster": -3.1, "disease": -2.3, "downturn": -1.7, "drop": -1.1,
	"emergency": -1.9, "evil": -3.0, "fail": -2.3, "failure": -2.4,
	"fake": -1.9, "fall": -1.2, "fear": -2.2, "fight": -1.8, "fire": -1.5,
	"flood": -1.8, "fraud": -2.7, "guilty": -2.2, "harm": -2.1,
	"hate": -2.9, "horrible": -2.7, "hurt": -2.2, "illegal": -2.2,
	"injury": -2.0, "kill": -3.1, "killed": -3.0, "lawsuit": -1.4,
	"layoff": -1.9, "lose": -1.9, "loss": -1.9, "murder": -3.2,
	"negative": -1.8, "outbreak": -2.0, "panic": -2.3, "plunge": -1.8,
	"poor": -1.9, "problem": -1.6, "protest": -1.2, "recession": -2.1,
	"reject": -1.6, "risk": -1.4, "sad": -2.1, "scandal": -2.3,
	"scare": -2.0, "shortage": -1.6, "shutdown": -1.7, "sick": -1.9,
	"slump": -1.6, "steal": -2.3, "storm": -1.4, "strike": -1.3,
	"struggle": -1.7, "suffer": -2.2, "terrible": -2.6, "terror": -2.9,
	"terrorist": -2.9, "threat": -2.0, "toxic": -2.2, "tragedy": -2.8,
	"trouble": -1.8, "ugly": -2.2, "victim": -2.0, "violence": -2.7,
	"violent": -2.6, "war": -2.6, "warn": -1.3, "warning": -1.4,
	"weak": -1.7, "worst": -3.1, "wrong": -1.9,
}
