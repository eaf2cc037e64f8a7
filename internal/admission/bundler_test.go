package admission

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wallet-follow-engine/internal/domain"
)

func bundleCand(wallet string, observedMs int64) *domain.Candidate {
	return &domain.Candidate{
		WalletAddress:  wallet,
		AssetID:        "asset1",
		ObservedTimeMs: observedMs,
		PlayID:         7,
	}
}

func TestBundler_SameWalletNotIndependent(t *testing.T) {
	b := NewBundler()
	cfg := domain.BundleConfig{NumTrades: 2, WindowSeconds: 60}

	require.False(t, b.Observe(cfg, bundleCand("w1", 1000)))
	// Repeated signal from the same wallet does not complete the bundle.
	require.False(t, b.Observe(cfg, bundleCand("w1", 2000)))
	require.True(t, b.Observe(cfg, bundleCand("w2", 3000)))
}

func TestBundler_WindowPruning(t *testing.T) {
	b := NewBundler()
	cfg := domain.BundleConfig{NumTrades: 2, WindowSeconds: 60}

	require.False(t, b.Observe(cfg, bundleCand("w1", 0)))
	// w1 fell out of the 60s window before w2 arrived.
	require.False(t, b.Observe(cfg, bundleCand("w2", 61_000)))
	require.True(t, b.Observe(cfg, bundleCand("w3", 100_000)))
}

func TestBundler_DisabledAlwaysPasses(t *testing.T) {
	b := NewBundler()
	require.True(t, b.Observe(domain.BundleConfig{}, bundleCand("w1", 0)))
}

func TestCycleCounter(t *testing.T) {
	c := NewCycleCounter()

	require.True(t, c.TryAdmit(1, 2))
	require.True(t, c.TryAdmit(1, 2))
	require.False(t, c.TryAdmit(1, 2))
	require.Equal(t, 2, c.Count(1))

	// Unlimited when the cap is zero.
	for i := 0; i < 10; i++ {
		require.True(t, c.TryAdmit(2, 0))
	}

	c.Reset()
	require.True(t, c.TryAdmit(1, 2))
}
