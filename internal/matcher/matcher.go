package matcher

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/perpfolio/reconciler-backend/internal/models"
)

const (
	SideLong  = "long"
	SideShort = "short"
)

// ErrUndefinedPercent is returned by PnLPercent when the reference price
// is zero and the percentage has no defined value.
var ErrUndefinedPercent = errors.New("percentage P&L undefined: reference price is zero")

// Options configures a Matcher.
type Options struct {
	// CarryReversals would roll the unmatched remainder of an oversized
	// closing fill into a new opposite-direction position instead of
	// dropping it. Not implemented: changing it would alter realized-P&L
	// accounting for every existing user, so it stays an explicit opt-in
	// that is rejected until the accounting policy is confirmed.
	CarryReversals bool

	// Quiet suppresses per-fill console output (used by tests).
	Quiet bool
}

// Matcher reconstructs per-coin positions from a fill stream and emits
// round-trip trades with realized P&L. It is pure and deterministic:
// no I/O, no retries, no shared state between calls.
type Matcher struct {
	opts Options
}

func New(opts Options) (*Matcher, error) {
	if opts.CarryReversals {
		return nil, fmt.Errorf("carry-reversals mode is not supported")
	}
	return &Matcher{opts: opts}, nil
}

// position is the transient per-coin state during one matching pass.
// avgEntry is meaningful only while qty > 0; returning to flat resets
// everything including the contributing entries.
type position struct {
	side     string // SideLong or SideShort, "" while flat
	qty      float64
	avgEntry float64
	entries  []models.Fill
}

// Match transforms a fill stream for one account into round-trip trades.
// Fills older than since are excluded before matching; the rest are
// processed in ascending timestamp order regardless of input order.
// Emitted trades follow closing-fill order, which is timestamp order.
func (m *Matcher) Match(fills []models.Fill, since time.Time) []models.RoundTrip {
	recent := make([]models.Fill, 0, len(fills))
	for _, f := range fills {
		if f.Time.Before(since) {
			continue
		}
		recent = append(recent, f)
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Time.Before(recent[j].Time)
	})

	var roundTrips []models.RoundTrip
	positions := make(map[string]*position)

	for _, f := range recent {
		if f.Coin == "" || f.Quantity == 0 {
			continue
		}

		pos, ok := positions[f.Coin]
		if !ok {
			pos = &position{}
			positions[f.Coin] = pos
		}

		// Same-sign accumulation opens or grows the position; anything
		// else reduces it.
		isOpening := pos.qty == 0 ||
			(pos.side == SideLong && f.Side == models.SideBuy) ||
			(pos.side == SideShort && f.Side == models.SideSell)

		if isOpening {
			if pos.qty == 0 {
				pos.side = SideLong
				if f.Side == models.SideSell {
					pos.side = SideShort
				}
			}
			totalCost := pos.avgEntry*pos.qty + f.Price*f.Quantity
			pos.qty += f.Quantity
			pos.avgEntry = totalCost / pos.qty
			pos.entries = append(pos.entries, f)
			m.logf("[MATCH] OPEN %s %s: %.6f @ $%.5f\n", pos.side, f.Coin, f.Quantity, f.Price)
			continue
		}

		closeQty := min(f.Quantity, pos.qty)
		entryPrice := pos.avgEntry
		exitPrice := f.Price

		pnl := (exitPrice - entryPrice) * closeQty
		if pos.side == SideShort {
			pnl = (entryPrice - exitPrice) * closeQty
		}

		pnlPct, err := PnLPercent(pos.side, entryPrice, exitPrice)
		if err != nil {
			// Per-trade skip, never fatal: the exposure reduction still
			// applies so the rest of the stream matches correctly.
			m.logf("[MATCH] SKIP CLOSE %s %s: %v\n", pos.side, f.Coin, err)
		} else {
			entryTime := f.Time
			if len(pos.entries) > 0 {
				entryTime = pos.entries[0].Time
			}
			roundTrips = append(roundTrips, models.RoundTrip{
				Symbol:     f.Coin,
				Side:       pos.side,
				EntryPrice: entryPrice,
				ExitPrice:  exitPrice,
				Quantity:   closeQty,
				PnLUSD:     pnl,
				PnLPercent: pnlPct,
				EntryTime:  entryTime,
				ExitTime:   f.Time,
				Fee:        f.Fee,
			})

			status := "WIN"
			if pnl <= 0 {
				status = "LOSS"
			}
			m.logf("[MATCH] %s CLOSE %s %s: %.6f @ $%.5f | P&L: $%.2f (%.2f%%)\n",
				status, pos.side, f.Coin, closeQty, exitPrice, pnl, pnlPct)
		}

		// An oversized close is capped at the open exposure; the excess
		// is dropped, not carried into a reversed position (Options.
		// CarryReversals is the extension point for that).
		pos.qty -= closeQty
		if pos.qty <= 0 {
			positions[f.Coin] = &position{}
		}
	}

	return roundTrips
}

// PnLPercent computes percentage P&L for a closed position. For longs
// the reference is the entry price, for shorts the exit price; a zero
// reference makes the percentage undefined.
func PnLPercent(side string, entryPrice, exitPrice float64) (float64, error) {
	if side == SideShort {
		if exitPrice == 0 {
			return 0, ErrUndefinedPercent
		}
		return (entryPrice/exitPrice - 1) * 100, nil
	}
	if entryPrice == 0 {
		return 0, ErrUndefinedPercent
	}
	return (exitPrice/entryPrice - 1) * 100, nil
}

func (m *Matcher) logf(format string, args ...any) {
	if m.opts.Quiet {
		return
	}
	fmt.Printf(format, args...)
}
