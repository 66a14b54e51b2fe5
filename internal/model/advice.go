package model

type AdviceType string

const (
	AdviceBuy       AdviceType = "BUY"
	AdviceSell      AdviceType = "SELL"
	AdviceHold      AdviceType = "HOLD"
	AdviceDiversify AdviceType = "DIVERSIFY"
)

type Confidence string

const (
	ConfidenceHigh Confidence = "High"
	ConfidenceMed  Confidence = "Med"
	ConfidenceLow  Confidence = "Low"
)

// Rank orders confidences for sorting: High=3, Med=2, Low=1.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMed:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

type AdviceItem struct {
	Type       AdviceType `json:"type"`
	Ticker     string     `json:"ticker,omitempty"`
	Message    string     `json:"message"`
	Confidence Confidence `json:"confidence"`
	Icon       string     `json:"icon"`
}
