package models

import "time"

// RoundTrip is a matched open+close pair reduced to one realized-P&L
// record. Immutable once produced by the matcher.
type RoundTrip struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // "long" or "short"
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"`
	Quantity   float64   `json:"quantity"`
	PnLUSD     float64   `json:"pnlUsd"`
	PnLPercent float64   `json:"pnlPct"`
	EntryTime  time.Time `json:"entryTime"` // earliest contributing entry fill
	ExitTime   time.Time `json:"exitTime"`  // closing fill's timestamp
	Fee        float64   `json:"fee"`       // absolute fee on the closing fill
}

// PortfolioTrade is one durable ledger row in the trades table.
type PortfolioTrade struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Symbol        string    `json:"symbol"`
	HLCoin        string    `json:"hlCoin"`
	Side          string    `json:"side"`
	EntryPrice    float64   `json:"entryPrice"`
	ExitPrice     float64   `json:"exitPrice"`
	Quantity      float64   `json:"quantity"`
	Leverage      int       `json:"leverage"`
	ProfitUSD     float64   `json:"profitUsd"`
	ProfitPercent float64   `json:"profitPercent"`
	FeeUSD        float64   `json:"feeUsd"`
	OpenedAt      time.Time `json:"openedAt"`
	ClosedAt      time.Time `json:"closedAt"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"createdAt"`
}

// BackfillSummary aggregates one writer pass over a user's round trips.
type BackfillSummary struct {
	Inserted   int     `json:"inserted"`
	Duplicates int     `json:"duplicates"`
	Failed     int     `json:"failed"`
	TotalPnL   float64 `json:"totalPnl"`
	TotalFees  float64 `json:"totalFees"`
}
