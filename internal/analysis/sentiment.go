// Package analysis provides the text-analysis capabilities used by the
// sentiment, words and wordcloud commands.
package analysis

import (
	"fmt"

	"github.com/jonreiter/govader"
)

// Classification is the result of scoring a piece of text.
type Classification struct {
	Category string // "neutral", "slightly positive", ..., "very negative"
	Compound float64
	Positive float64
	Neutral  float64
	Negative float64
}

// String formats the classification the way replies present it.
func (c Classification) String() string {
	return fmt.Sprintf("%s (compound=%.3f pos=%.3f neu=%.3f neg=%.3f)",
		c.Category, c.Compound, c.Positive, c.Neutral, c.Negative)
}

// TextAnalyzer classifies text into a polarity category with raw scores.
type TextAnalyzer interface {
	Classify(text string) Classification
}

// Vader is a TextAnalyzer backed by the VADER sentiment model.
type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVader builds a ready-to-use analyzer.
func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Classify scores text and bands the compound score into a category.
func (v *Vader) Classify(text string) Classification {
	s := v.analyzer.PolarityScores(text)
	return Classification{
		Category: category(s.Compound),
		Compound: s.Compound,
		Positive: s.Positive,
		Neutral:  s.Neutral,
		Negative: s.Negative,
	}
}

func category(score float64) string {
	switch {
	case score > 0.75:
		return "very positive"
	case score > 0.25:
		return "positive"
	case score > 0:
		return "slightly positive"
	case score < -0.75:
		return "very negative"
	case score < -0.25:
		return "negative"
	case score < 0:
		return "slightly negative"
	default:
		return "neutral"
	}
}
