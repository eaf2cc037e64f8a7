package tracker

import (
	"wallet-follow-engine/internal/domain"
)

// ExitSignal is a monitor's decision to close its position.
type ExitSignal struct {
	Reason string
	Price  float64
	TimeMs int64
}

// Monitor holds the live exit state of one open position: the most
// favorable price seen since entry and the pending exit, if any.
// Monitors are not safe for concurrent use; the Tracker serializes
// access.
type Monitor struct {
	Position *domain.Position
	Logic    domain.SellLogic

	peak float64 // most favorable price since entry
	exit *ExitSignal
}

// NewMonitor starts monitoring at the entry price. For short plays the
// peak is really a trough; favorableGain hides the direction.
func NewMonitor(p *domain.Position, logic domain.SellLogic) *Monitor {
	return &Monitor{
		Position: p,
		Logic:    logic,
		peak:     p.EntryPrice,
	}
}

// Peak returns the most favorable price observed so far.
func (m *Monitor) Peak() float64 {
	return m.peak
}

// PeakGainPct returns the gain at peak relative to entry, in the
// position's favorable direction.
func (m *Monitor) PeakGainPct() float64 {
	return m.favorableGain(m.Position.EntryPrice, m.peak)
}

// favorableGain is the percent move from base to price, signed so that
// positive means favorable for this position's direction.
func (m *Monitor) favorableGain(base, price float64) float64 {
	if base == 0 {
		return 0
	}
	g := (price - base) / base * 100
	if m.Position.ShortPlay {
		g = -g
	}
	return g
}

// Observe feeds one tick through the tolerance bands. It returns a
// non-nil signal once an exit has triggered; after that the same
// signal is returned on every call so an archive retry sells at the
// triggering tick, not at a later one.
//
// Two triggers, both strict comparisons so a move exactly at tolerance
// holds:
//   - below entry beyond the decrease tolerance
//   - above entry, a retrace from peak beyond the tolerance of the
//     tier the peak gain sits in
func (m *Monitor) Observe(price float64, timeMs int64) *ExitSignal {
	if m.exit != nil {
		return m.exit
	}

	if m.favorableGain(m.peak, price) > 0 {
		m.peak = price
	}

	if !m.Logic.Enabled() {
		return nil
	}

	gain := m.favorableGain(m.Position.EntryPrice, price)
	if gain < 0 && m.Logic.DecreaseTolerancePct > 0 && -gain > m.Logic.DecreaseTolerancePct {
		m.exit = &ExitSignal{Reason: domain.ExitReasonDecrease, Price: price, TimeMs: timeMs}
		return m.exit
	}

	peakGain := m.PeakGainPct()
	if peakGain > 0 {
		tier := m.Logic.TierFor(peakGain)
		if tier != nil {
			drop := -m.favorableGain(m.peak, price)
			if drop > tier.TolerancePct {
				m.exit = &ExitSignal{Reason: domain.ExitReasonRetrace, Price: price, TimeMs: timeMs}
				return m.exit
			}
		}
	}

	return nil
}
