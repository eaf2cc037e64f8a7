package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

func testAudit(auditID, positionID string) *domain.AuditRecord {
	return &domain.AuditRecord{
		AuditID:        auditID,
		PositionID:     positionID,
		PlayID:         1,
		WalletAddress:  "wallet1",
		AssetID:        "asset1",
		ObservedTimeMs: 10_000_000,
		PreEntry: &domain.PreEntryMetrics{
			Windows: []*domain.FeatureWindow{
				{WindowMinutes: 10, PriceThen: ptr(100.0), PctChange: ptr(-0.2)},
			},
			Trend:             domain.TrendFalling,
			GateWindowMinutes: 10,
			GatePctChange:     ptr(-0.2),
			GateThresholdPct:  0.15,
			GatePassed:        false,
		},
		ProjectResults: []*domain.ProjectResult{
			{
				ProjectID:   1,
				ProjectName: "momentum",
				Decision:    domain.DecisionNOGO,
				FilterResults: []*domain.FilterResult{
					{FilterName: "rise-10m", Field: "price_change_pct", Minute: 10, FromValue: ptr(0.5), ActualValue: ptr(-0.2)},
				},
			},
		},
		FinalDecision: domain.DecisionNOGO,
		Reason:        domain.ReasonFallingPrice,
	}
}

func TestAuditStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditStore(pool)
	ctx := context.Background()

	rec := testAudit("a1", "p1")
	require.NoError(t, store.Insert(ctx, rec))
	require.ErrorIs(t, store.Insert(ctx, rec), storage.ErrDuplicateKey)

	got, err := store.GetByPositionID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "a1", got.AuditID)
	require.Equal(t, domain.DecisionNOGO, got.FinalDecision)
	require.Equal(t, domain.ReasonFallingPrice, got.Reason)
	require.NotNil(t, got.PreEntry)
	require.Equal(t, -0.2, *got.PreEntry.GatePctChange)
	require.Len(t, got.ProjectResults, 1)
	require.Len(t, got.ProjectResults[0].FilterResults, 1)

	_, err = store.GetByPositionID(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAuditStore_OneRecordPerPosition(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testAudit("a1", "p1")))
	// A different audit id against the same position violates the
	// unique position index.
	require.ErrorIs(t, store.Insert(ctx, testAudit("a2", "p1")), storage.ErrDuplicateKey)
}
