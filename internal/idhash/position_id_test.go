package idhash

import "testing"

func TestComputePositionID(t *testing.T) {
	id := ComputePositionID(42, "Wallet111", "MintAAA", 1700000000000)

	if len(id) != 64 {
		t.Errorf("expected 64-char hash, got %d chars", len(id))
	}
}

func TestComputePositionID_Deterministic(t *testing.T) {
	id1 := ComputePositionID(42, "Wallet111", "MintAAA", 1700000000000)
	id2 := ComputePositionID(42, "Wallet111", "MintAAA", 1700000000000)

	if id1 != id2 {
		t.Errorf("same inputs produced different ids: %s vs %s", id1, id2)
	}
}

func TestComputePositionID_DifferentInputs(t *testing.T) {
	base := ComputePositionID(42, "Wallet111", "MintAAA", 1700000000000)

	variants := []string{
		ComputePositionID(43, "Wallet111", "MintAAA", 1700000000000),
		ComputePositionID(42, "Wallet222", "MintAAA", 1700000000000),
		ComputePositionID(42, "Wallet111", "MintBBB", 1700000000000),
		ComputePositionID(42, "Wallet111", "MintAAA", 1700000000001),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base id", i)
		}
	}
}

func TestComputeAuditID_Deterministic(t *testing.T) {
	id1 := ComputeAuditID("pos1", "GO")
	id2 := ComputeAuditID("pos1", "GO")

	if id1 != id2 {
		t.Errorf("same inputs produced different ids: %s vs %s", id1, id2)
	}
	if len(id1) != 64 {
		t.Errorf("expected 64-char hash, got %d chars", len(id1))
	}

	other := ComputeAuditID("pos1", "NO_GO")
	if other == id1 {
		t.Error("different decisions produced the same audit id")
	}
}
