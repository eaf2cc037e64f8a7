package admission

import (
	"sync"

	"wallet-follow-engine/internal/domain"
)

// Bundler tracks candidate co-occurrence per play. When a play
// requires N independent candidates within a window, no candidate is
// admitted until the Nth arrives; the one completing the bundle passes.
type Bundler struct {
	mu   sync.Mutex
	seen map[int64][]bundleEntry // keyed by play_id
}

type bundleEntry struct {
	wallet     string
	observedMs int64
}

// NewBundler creates an empty bundler.
func NewBundler() *Bundler {
	return &Bundler{seen: make(map[int64][]bundleEntry)}
}

// Observe records the candidate and reports whether the play's bundle
// requirement is satisfied at its observed time. Plays without
// bundling always satisfy. Repeated signals from the same wallet do
// not count as independent candidates.
func (b *Bundler) Observe(cfg domain.BundleConfig, cand *domain.Candidate) bool {
	if !cfg.Enabled() {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := cand.ObservedTimeMs - int64(cfg.WindowSeconds)*1000

	entries := b.seen[cand.PlayID]
	kept := entries[:0]
	for _, e := range entries {
		if e.observedMs >= cutoff {
			kept = append(kept, e)
		}
	}

	fresh := true
	for _, e := range kept {
		if e.wallet == cand.WalletAddress {
			fresh = false
			break
		}
	}
	if fresh {
		kept = append(kept, bundleEntry{wallet: cand.WalletAddress, observedMs: cand.ObservedTimeMs})
	}
	b.seen[cand.PlayID] = kept

	return len(kept) >= cfg.NumTrades
}
