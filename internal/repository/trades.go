package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perpfolio/reconciler-backend/internal/models"
)

type PortfolioTradeRepo struct {
	pool *pgxpool.Pool
}

func NewPortfolioTradeRepo(pool *pgxpool.Pool) *PortfolioTradeRepo {
	return &PortfolioTradeRepo{pool: pool}
}

// Exists reports whether a trade for the same user and symbol is
// already persisted with opened/closed times each inside the tolerance
// band. This is the dedup check that makes repeated reconciliation runs
// over overlapping windows safe.
func (r *PortfolioTradeRepo) Exists(ctx context.Context, userID int64, symbol string, openedAt, closedAt time.Time, tolerance time.Duration) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trades
		 WHERE user_id = $1 AND symbol = $2
		   AND ABS(EXTRACT(EPOCH FROM (opened_at - $3::timestamptz))) < $5
		   AND ABS(EXTRACT(EPOCH FROM (closed_at - $4::timestamptz))) < $5`,
		userID, symbol, openedAt, closedAt, tolerance.Seconds(),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PortfolioTradeRepo) Insert(ctx context.Context, t *models.PortfolioTrade) (*models.PortfolioTrade, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO trades
		 (user_id, symbol, hl_coin, side, entry_price, exit_price, quantity,
		  leverage, profit_usd, profit_percent, fee_usd, opened_at, closed_at, source)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 RETURNING *`,
		t.UserID, t.Symbol, t.HLCoin, t.Side, t.EntryPrice, t.ExitPrice, t.Quantity,
		t.Leverage, t.ProfitUSD, t.ProfitPercent, t.FeeUSD, t.OpenedAt, t.ClosedAt, t.Source,
	)
	return scanPortfolioTrade(row)
}

// GetByUser returns a user's most recent ledger rows.
func (r *PortfolioTradeRepo) GetByUser(ctx context.Context, userID int64, limit int) ([]models.PortfolioTrade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM trades WHERE user_id = $1 ORDER BY closed_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPortfolioTrades(rows)
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPortfolioTrade(row scannable) (*models.PortfolioTrade, error) {
	var t models.PortfolioTrade
	err := row.Scan(
		&t.ID, &t.UserID, &t.Symbol, &t.HLCoin, &t.Side,
		&t.EntryPrice, &t.ExitPrice, &t.Quantity, &t.Leverage,
		&t.ProfitUSD, &t.ProfitPercent, &t.FeeUSD,
		&t.OpenedAt, &t.ClosedAt, &t.Source, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectPortfolioTrades(rows rowsIter) ([]models.PortfolioTrade, error) {
	var out []models.PortfolioTrade
	for rows.Next() {
		var t models.PortfolioTrade
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Symbol, &t.HLCoin, &t.Side,
			&t.EntryPrice, &t.ExitPrice, &t.Quantity, &t.Leverage,
			&t.ProfitUSD, &t.ProfitPercent, &t.FeeUSD,
			&t.OpenedAt, &t.ClosedAt, &t.Source, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
