package models

import "time"

// Side is a fill side after vocabulary normalization.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TimeUnit declares how a venue encodes fill timestamps. The fetch
// boundary states the unit explicitly; it is never inferred from the
// magnitude of the value.
type TimeUnit int

const (
	UnitSeconds TimeUnit = iota
	UnitMilliseconds
)

// Fill is a single executed trade leg, normalized from the venue's
// native field names and vocabulary.
type Fill struct {
	Coin     string    `json:"coin"`
	Side     Side      `json:"side"`
	Quantity float64   `json:"quantity"`
	Price    float64   `json:"price"`
	Time     time.Time `json:"time"`
	Fee      float64   `json:"fee"` // absolute value of the venue-reported fee
}
