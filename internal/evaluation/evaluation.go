// Package evaluation scores assistant replies with cheap text heuristics.
// The scores are advisory quality signals stored as message metadata, not a
// gate on delivery; a reply is never withheld because it scored poorly.
package evaluation

import (
	"strings"
)

// Scores holds the per-axis quality heuristics for one reply, each in the
// 0..1 range.
type Scores struct {
	Fluency   float64 `json:"fluency"`
	Relevance float64 `json:"relevance"`
	Sentiment float64 `json:"sentiment"`
	Astrology float64 `json:"astrology"`
	Overall   float64 `json:"overall"`
}

var positiveWords = wordSet(
	"good", "great", "excellent", "wonderful", "positive", "happy",
	"joy", "love", "beautiful", "amazing", "fantastic", "awesome",
	"encouraging", "supportive", "helpful", "beneficial",
)

var negativeWords = wordSet(
	"bad", "terrible", "awful", "negative", "sad", "unhappy",
	"hate", "ugly", "horrible", "disappointing", "problem", "issue",
	"warning", "danger", "avoid",
)

// Terms that mark a reply as actually engaging with the domain.
var astrologyIndicators = []string{
	"planet", "zodiac", "sign", "house", "aspect", "transit",
	"birth chart", "natal chart", "horoscope", "astrology",
	"cosmic", "celestial", "alignment", "energy",
}

// Phrases that present outcomes as choices rather than certainties.
var empoweringPhrases = []string{
	"you can", "you might", "consider", "suggest", "recommend",
	"opportunity", "possibility", "potential", "explore",
}

// Deterministic framing is penalized; readings should not promise fate.
var deterministicPhrases = []string{
	"will happen", "must", "certainly", "definitely", "inevitable",
	"fated", "destined", "cannot change",
}

// Evaluate scores one assistant reply against the user turn it answers.
func Evaluate(userInput, reply string) Scores {
	s := Scores{
		Fluency:   fluency(reply),
		Relevance: relevance(userInput, reply),
		Sentiment: sentiment(reply),
		Astrology: astrologyQuality(reply),
	}
	s.Overall = (s.Fluency + s.Relevance + s.Sentiment + s.Astrology) / 4
	return s
}

// fluency rewards multi-sentence replies with moderate, varied sentence
// length.
func fluency(text string) float64 {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	if len(sentences) < 2 {
		return 0.6
	}

	var lengths []int
	for _, sentence := range sentences {
		if words := strings.Fields(sentence); len(words) > 0 {
			lengths = append(lengths, len(words))
		}
	}
	if len(lengths) == 0 {
		return 0.5
	}

	var sum int
	for _, l := range lengths {
		sum += l
	}
	avg := float64(sum) / float64(len(lengths))

	var variance float64
	for _, l := range lengths {
		d := float64(l) - avg
		variance += d * d
	}
	variance /= float64(len(lengths))

	if avg >= 5 && avg <= 20 && variance < 50 {
		return 0.8 + min(variance/100, 0.2)
	}
	return 0.6
}

// relevance measures word overlap between the user turn and the reply.
func relevance(userInput, reply string) float64 {
	userWords := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(userInput)) {
		userWords[w] = struct{}{}
	}
	if len(userWords) == 0 {
		return 0.5
	}

	replyWords := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(reply)) {
		replyWords[w] = struct{}{}
	}

	var overlap int
	for w := range userWords {
		if _, ok := replyWords[w]; ok {
			overlap++
		}
	}
	return min(float64(overlap)/float64(len(userWords))*1.5, 1.0)
}

// sentiment maps the positive/negative word balance into 0..1, with 0.5 for
// replies carrying no emotional vocabulary.
func sentiment(text string) float64 {
	var pos, neg int
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0.5
	}
	balance := float64(pos-neg) / float64(total)
	return (balance + 1) / 2
}

// astrologyQuality starts from a 0.7 base, rewards domain terminology and
// empowering language, and penalizes deterministic framing.
func astrologyQuality(reply string) float64 {
	lower := strings.ToLower(reply)
	score := 0.7

	var terms int
	for _, t := range astrologyIndicators {
		if strings.Contains(lower, t) {
			terms++
		}
	}
	score += min(float64(terms)*0.05, 0.2)

	var empowering int
	for _, p := range empoweringPhrases {
		if strings.Contains(lower, p) {
			empowering++
		}
	}
	score += min(float64(empowering)*0.03, 0.15)

	var deterministic int
	for _, p := range deterministicPhrases {
		if strings.Contains(lower, p) {
			deterministic++
		}
	}
	score -= min(float64(deterministic)*0.1, 0.2)

	return max(0, min(1, score))
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
