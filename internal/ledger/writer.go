package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/perpfolio/reconciler-backend/internal/models"
)

// Source tag stamped on every backfilled row so reconciled trades are
// distinguishable from live-recorded ones.
const Source = "reconciliation"

// DefaultTier is used when a user's fee tier is empty or unknown.
const DefaultTier = "standard"

// Store abstracts the persistence dependency so the Writer can be
// tested without a real database.
type Store interface {
	// Exists reports whether a trade for the same user and symbol is
	// already persisted with opened/closed times each within tolerance
	// of the candidate's.
	Exists(ctx context.Context, userID int64, symbol string, openedAt, closedAt time.Time, tolerance time.Duration) (bool, error)
	Insert(ctx context.Context, t *models.PortfolioTrade) (*models.PortfolioTrade, error)
}

// Writer persists round-trip trades exactly once, charging a
// performance fee on profitable closes. Fee rates come from an explicit
// tier table passed at construction.
type Writer struct {
	store     Store
	feeTiers  map[string]float64
	tolerance time.Duration
}

func NewWriter(store Store, feeTiers map[string]float64, tolerance time.Duration) *Writer {
	if tolerance <= 0 {
		tolerance = 60 * time.Second
	}
	return &Writer{store: store, feeTiers: feeTiers, tolerance: tolerance}
}

// FeeRate resolves a tier name to its rate, falling back to the
// standard tier for empty or unrecognized names.
func (w *Writer) FeeRate(tier string) float64 {
	if rate, ok := w.feeTiers[tier]; ok {
		return rate
	}
	return w.feeTiers[DefaultTier]
}

// Backfill inserts a user's round trips into the ledger. Duplicates
// within the dedup tolerance are skipped, as are rows that fail to
// insert; a single bad row never aborts the batch.
func (w *Writer) Backfill(ctx context.Context, userID int64, roundTrips []models.RoundTrip, feeTier string) models.BackfillSummary {
	rate := w.FeeRate(feeTier)

	var sum models.BackfillSummary
	for _, rt := range roundTrips {
		// Performance fee on profitable closes only; losing and
		// break-even trades are charged nothing.
		var feeAmount float64
		if rt.PnLUSD > 0 {
			feeAmount = rt.Quantity * rt.ExitPrice * rate
		}

		exists, err := w.store.Exists(ctx, userID, rt.Symbol, rt.EntryTime, rt.ExitTime, w.tolerance)
		if err != nil {
			fmt.Printf("[LEDGER] Dedup check failed for %s: %v\n", rt.Symbol, err)
			sum.Failed++
			continue
		}
		if exists {
			sum.Duplicates++
			continue
		}

		_, err = w.store.Insert(ctx, &models.PortfolioTrade{
			UserID:        userID,
			Symbol:        rt.Symbol,
			HLCoin:        rt.Symbol,
			Side:          rt.Side,
			EntryPrice:    rt.EntryPrice,
			ExitPrice:     rt.ExitPrice,
			Quantity:      rt.Quantity,
			Leverage:      1,
			ProfitUSD:     rt.PnLUSD,
			ProfitPercent: rt.PnLPercent,
			FeeUSD:        feeAmount,
			OpenedAt:      rt.EntryTime,
			ClosedAt:      rt.ExitTime,
			Source:        Source,
		})
		if err != nil {
			fmt.Printf("[LEDGER] Insert failed for %s (%s): %v\n", rt.Symbol, rt.Side, err)
			sum.Failed++
			continue
		}

		sum.Inserted++
		sum.TotalPnL += rt.PnLUSD
		sum.TotalFees += feeAmount
	}

	return sum
}
