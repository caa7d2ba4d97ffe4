package scan

import (
	"context"
	"testing"
	"time"

	"github.com/sentinelml/sentinel/internal/testutil"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	a := &Assessment{
		ID:              "scan_pg_test_1",
		ContractAddress: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		ScamProbability: 0.8542,
		Verdict:         VerdictBlock,
		RiskBand:        BandHigh,
		Reason:          "High risk detected: owner-restricted execution paths",
		ModelVersion:    "calibrated-v2.0",
		EvaluatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.Record(ctx, a); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	recent, err := store.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 assessment, got %d", len(recent))
	}

	got := recent[0]
	if got.ID != a.ID {
		t.Errorf("expected ID %s, got %s", a.ID, got.ID)
	}
	if got.Verdict != VerdictBlock {
		t.Errorf("expected BLOCK, got %s", got.Verdict)
	}
	if got.RiskBand != BandHigh {
		t.Errorf("expected HIGH, got %s", got.RiskBand)
	}
	if got.ScamProbability != 0.8542 {
		t.Errorf("expected 0.8542, got %v", got.ScamProbability)
	}
	if got.Reason != a.Reason {
		t.Errorf("expected reason %q, got %q", a.Reason, got.Reason)
	}
}

func TestPostgresStoreOrderAndLimit(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	ids := []string{"scan_pg_a", "scan_pg_b", "scan_pg_c"}
	for i, id := range ids {
		err := store.Record(ctx, &Assessment{
			ID:              id,
			ScamProbability: 0.1,
			Verdict:         VerdictSafe,
			RiskBand:        BandLow,
			Reason:          "Low risk - no significant issues detected",
			ModelVersion:    "calibrated-v2.0",
			EvaluatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record %s failed: %v", id, err)
		}
	}

	recent, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2, got %d", len(recent))
	}
	if recent[0].ID != "scan_pg_c" || recent[1].ID != "scan_pg_b" {
		t.Errorf("expected newest first, got %s, %s", recent[0].ID, recent[1].ID)
	}
}
