package model

// Sentiment is the ground-truth direction label for one quiz item.
type Sentiment string

const (
	Bullish Sentiment = "Bullish"
	Bearish Sentiment = "Bearish"
)

// ParseSentiment maps a submitted form value to a Sentiment.
// Anything unrecognized returns ok=false and counts as unanswered.
func ParseSentiment(s string) (Sentiment, bool) {
	switch s {
	case string(Bullish):
		return Bullish, true
	case string(Bearish):
		return Bearish, true
	default:
		return "", false
	}
}
