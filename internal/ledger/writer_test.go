package ledger

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/perpfolio/reconciler-backend/internal/models"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeStore keeps rows in memory and mirrors the dedup semantics of the
// real trades repository.
type fakeStore struct {
	rows      []models.PortfolioTrade
	failOn    string // symbol whose inserts fail
	existsErr error
}

func (s *fakeStore) Exists(_ context.Context, userID int64, symbol string, openedAt, closedAt time.Time, tolerance time.Duration) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	for _, r := range s.rows {
		if r.UserID != userID || r.Symbol != symbol {
			continue
		}
		dOpen := r.OpenedAt.Sub(openedAt).Abs()
		dClose := r.ClosedAt.Sub(closedAt).Abs()
		if dOpen < tolerance && dClose < tolerance {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Insert(_ context.Context, t *models.PortfolioTrade) (*models.PortfolioTrade, error) {
	if t.Symbol == s.failOn {
		return nil, errors.New("constraint violation")
	}
	row := *t
	row.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, row)
	return &row, nil
}

var testTiers = map[string]float64{"standard": 0.10, "pro": 0.05}

func roundTrip(symbol string, pnl float64) models.RoundTrip {
	return models.RoundTrip{
		Symbol:     symbol,
		Side:       "long",
		EntryPrice: 100,
		ExitPrice:  110,
		Quantity:   2,
		PnLUSD:     pnl,
		PnLPercent: 10,
		EntryTime:  t0,
		ExitTime:   t0.Add(time.Hour),
	}
}

func TestBackfill_FeeOnWinningTradesOnly(t *testing.T) {
	store := &fakeStore{}
	w := NewWriter(store, testTiers, 60*time.Second)

	rts := []models.RoundTrip{
		roundTrip("ETH", 20),  // win
		roundTrip("BTC", -15), // loss
		roundTrip("SOL", 0),   // break-even
	}

	sum := w.Backfill(context.Background(), 1, rts, "standard")
	if sum.Inserted != 3 {
		t.Fatalf("inserted: got %d", sum.Inserted)
	}

	// qty 2 * exit 110 * rate 0.10 = 22 on the win, zero otherwise
	if math.Abs(store.rows[0].FeeUSD-22) > 1e-9 {
		t.Fatalf("win fee: got %f", store.rows[0].FeeUSD)
	}
	if store.rows[1].FeeUSD != 0 {
		t.Fatalf("loss fee should be zero, got %f", store.rows[1].FeeUSD)
	}
	if store.rows[2].FeeUSD != 0 {
		t.Fatalf("break-even fee should be zero, got %f", store.rows[2].FeeUSD)
	}
	if math.Abs(sum.TotalFees-22) > 1e-9 {
		t.Fatalf("total fees: got %f", sum.TotalFees)
	}
	if math.Abs(sum.TotalPnL-5) > 1e-9 {
		t.Fatalf("total pnl: got %f", sum.TotalPnL)
	}
}

func TestBackfill_Idempotent(t *testing.T) {
	store := &fakeStore{}
	w := NewWriter(store, testTiers, 60*time.Second)
	rts := []models.RoundTrip{roundTrip("ETH", 20), roundTrip("BTC", -5)}

	first := w.Backfill(context.Background(), 7, rts, "standard")
	if first.Inserted != 2 {
		t.Fatalf("first run inserted: got %d", first.Inserted)
	}

	// Reversed order on the second run; dedup must still catch both.
	second := w.Backfill(context.Background(), 7, []models.RoundTrip{rts[1], rts[0]}, "standard")
	if second.Inserted != 0 {
		t.Fatalf("second run inserted: got %d", second.Inserted)
	}
	if second.Duplicates != 2 {
		t.Fatalf("second run duplicates: got %d", second.Duplicates)
	}
	if len(store.rows) != 2 {
		t.Fatalf("store rows: got %d", len(store.rows))
	}
}

func TestBackfill_ToleranceWindow(t *testing.T) {
	store := &fakeStore{}
	w := NewWriter(store, testTiers, 60*time.Second)

	w.Backfill(context.Background(), 1, []models.RoundTrip{roundTrip("ETH", 20)}, "standard")

	// Same trade reported 30s off (venue clock drift): a duplicate.
	near := roundTrip("ETH", 20)
	near.EntryTime = near.EntryTime.Add(30 * time.Second)
	near.ExitTime = near.ExitTime.Add(30 * time.Second)
	sum := w.Backfill(context.Background(), 1, []models.RoundTrip{near}, "standard")
	if sum.Duplicates != 1 || sum.Inserted != 0 {
		t.Fatalf("30s drift should dedup: %+v", sum)
	}

	// A genuinely different trade 5 minutes later is not.
	far := roundTrip("ETH", 20)
	far.EntryTime = far.EntryTime.Add(5 * time.Minute)
	far.ExitTime = far.ExitTime.Add(5 * time.Minute)
	sum = w.Backfill(context.Background(), 1, []models.RoundTrip{far}, "standard")
	if sum.Inserted != 1 {
		t.Fatalf("5m apart should insert: %+v", sum)
	}
}

func TestBackfill_BadRowNeverAbortsBatch(t *testing.T) {
	store := &fakeStore{failOn: "BTC"}
	w := NewWriter(store, testTiers, 60*time.Second)

	rts := []models.RoundTrip{roundTrip("ETH", 10), roundTrip("BTC", 10), roundTrip("SOL", 10)}
	sum := w.Backfill(context.Background(), 1, rts, "standard")

	if sum.Inserted != 2 {
		t.Fatalf("inserted: got %d", sum.Inserted)
	}
	if sum.Failed != 1 {
		t.Fatalf("failed: got %d", sum.Failed)
	}
	// Totals only count persisted rows.
	if math.Abs(sum.TotalPnL-20) > 1e-9 {
		t.Fatalf("total pnl: got %f", sum.TotalPnL)
	}
}

func TestBackfill_DedupCheckFailureCountsAsFailed(t *testing.T) {
	store := &fakeStore{existsErr: errors.New("connection reset")}
	w := NewWriter(store, testTiers, 60*time.Second)

	sum := w.Backfill(context.Background(), 1, []models.RoundTrip{roundTrip("ETH", 10)}, "standard")
	if sum.Failed != 1 || sum.Inserted != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestBackfill_RowShape(t *testing.T) {
	store := &fakeStore{}
	w := NewWriter(store, testTiers, 60*time.Second)

	w.Backfill(context.Background(), 42, []models.RoundTrip{roundTrip("ETH", 20)}, "pro")

	row := store.rows[0]
	if row.UserID != 42 || row.HLCoin != "ETH" || row.Leverage != 1 || row.Source != Source {
		t.Fatalf("row shape: %+v", row)
	}
	// pro tier: 2 * 110 * 0.05 = 11
	if math.Abs(row.FeeUSD-11) > 1e-9 {
		t.Fatalf("pro fee: got %f", row.FeeUSD)
	}
}

func TestFeeRate_FallsBackToStandard(t *testing.T) {
	w := NewWriter(&fakeStore{}, testTiers, 0)

	if got := w.FeeRate("pro"); got != 0.05 {
		t.Fatalf("pro: got %f", got)
	}
	if got := w.FeeRate(""); got != 0.10 {
		t.Fatalf("empty tier: got %f", got)
	}
	if got := w.FeeRate("platinum"); got != 0.10 {
		t.Fatalf("unknown tier: got %f", got)
	}
}
