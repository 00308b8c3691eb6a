package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/tests/testutil"
)

func TestConcurrentCharges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	ledgerUC := newLedgerUseCase(testDB)

	t.Run("100 concurrent charges never overdraw", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		// Balance covers exactly 20 charges of 50.
		account := testDB.CreateTestAccount(ctx, 1000)

		numCharges := 100
		var (
			wg           sync.WaitGroup
			successCount atomic.Int32
			rejectCount  atomic.Int32
		)

		wg.Add(numCharges)
		for range numCharges {
			go func() {
				defer wg.Done()

				_, err := ledgerUC.Charge(ctx, account.ID, 50, "generation fal 2K")
				switch {
				case err == nil:
					successCount.Add(1)
				case errors.Is(err, domain.ErrInsufficientCredits):
					rejectCount.Add(1)
				default:
					t.Errorf("unexpected charge error: %v", err)
				}
			}()
		}
		wg.Wait()

		if successCount.Load() != 20 {
			t.Fatalf("expected exactly 20 successful charges, got %d", successCount.Load())
		}
		if rejectCount.Load() != 80 {
			t.Fatalf("expected 80 rejections, got %d", rejectCount.Load())
		}

		got, err := ledgerUC.GetAccount(ctx, account.ID)
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		if got.Balance != 0 {
			t.Fatalf("expected balance 0, got %d", got.Balance)
		}

		entries, err := ledgerUC.History(ctx, account.ID, 200, 0)
		if err != nil {
			t.Fatalf("failed to list history: %v", err)
		}

		var sum int64
		for _, e := range entries {
			sum += e.Delta
		}
		if sum != 0 {
			t.Fatalf("expected ledger sum 0, got %d", sum)
		}
	})

	t.Run("concurrent credits all land", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		account := testDB.CreateTestAccount(ctx, 0)

		numCredits := 50
		var wg sync.WaitGroup
		wg.Add(numCredits)
		for range numCredits {
			go func() {
				defer wg.Done()
				if _, err := ledgerUC.Credit(ctx, account.ID, 10, "500 credit pack", domain.EntryKindDeposit); err != nil {
					t.Errorf("unexpected credit error: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := ledgerUC.GetAccount(ctx, account.ID)
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		if got.Balance != 500 {
			t.Fatalf("expected balance 500, got %d", got.Balance)
		}
	})
}
