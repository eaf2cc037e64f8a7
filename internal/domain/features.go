package domain

// Trend is a coarse classification of price movement before entry.
type Trend string

const (
	TrendRising  Trend = "RISING"
	TrendFalling Trend = "FALLING"
	TrendFlat    Trend = "FLAT"
	TrendUnknown Trend = "UNKNOWN"
)

// FeatureWindow holds the derived price movement for one lookback window.
// PriceThen and PctChange are nil when no sample resolved for the window.
type FeatureWindow struct {
	WindowMinutes int      // lookback offset in minutes
	PriceThen     *float64 // price at entry_time - window, nil if unresolved
	PctChange     *float64 // (entry - then) / then * 100, nil if unresolved
}

// FeatureSet holds all pre-entry features computed for a candidate.
// Partial results are valid: unresolved windows stay nil.
type FeatureSet struct {
	AssetID     string
	EntryTimeMs int64
	EntryPrice  float64
	Windows     []*FeatureWindow // ordered by WindowMinutes ASC
	Trend       Trend
}

// Window returns the feature window for the given lookback minutes,
// or nil if that window was not configured.
func (f *FeatureSet) Window(minutes int) *FeatureWindow {
	for _, w := range f.Windows {
		if w.WindowMinutes == minutes {
			return w
		}
	}
	return nil
}

// LongestResolved returns the longest-lookback window that resolved a
// price, or nil if no window resolved.
func (f *FeatureSet) LongestResolved() *FeatureWindow {
	for i := len(f.Windows) - 1; i >= 0; i-- {
		if f.Windows[i].PctChange != nil {
			return f.Windows[i]
		}
	}
	return nil
}
