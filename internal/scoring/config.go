// Package scoring implements the deterministic feedback-to-score transform
// (spec.md §4.1). The engine is a pure function: no I/O, no hidden state,
// and its inputs are never mutated.
package scoring

// Config holds every scoring knob, all externally configurable.
type Config struct {
	DecayWindowDays                  int
	RecentFeedbackWeight             float64
	OlderFeedbackWeight              float64
	ConfidenceThresholdFeedbackCount int
	ConfidenceMultiplier             float64
	RecentNegativeWindowDays         int
	NegativeFlagThresholdBps         int64
	FlaggedScoreMultiplier           float64
	MaxScore                         float64
}

// DefaultConfig returns the default scoring configuration from spec.md §3.
func DefaultConfig() Config {
	return Config{
		DecayWindowDays:                  30,
		RecentFeedbackWeight:             2,
		OlderFeedbackWeight:              1,
		ConfidenceThresholdFeedbackCount: 50,
		ConfidenceMultiplier:             1.05,
		RecentNegativeWindowDays:         7,
		NegativeFlagThresholdBps:         2000,
		FlaggedScoreMultiplier:           0.9,
		MaxScore:                         1000,
	}
}
