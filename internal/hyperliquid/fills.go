package hyperliquid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/perpfolio/reconciler-backend/internal/models"
)

// RawFill is the venue-native fill shape. Hyperliquid quotes numeric
// fields as decimal strings and timestamps as epoch milliseconds.
type RawFill struct {
	Coin  string `json:"coin"`
	Side  string `json:"side"`
	Size  string `json:"sz"`
	Price string `json:"px"`
	Time  int64  `json:"time"`
	Fee   string `json:"fee"`
}

// ParseError marks a fill that could not be normalized. Parsing is
// strict: unrecognized side tokens and malformed numerics are surfaced,
// never silently defaulted.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed fill field %q: %q", e.Field, e.Value)
}

// NormalizeSide maps venue side vocabulary onto buy/sell.
func NormalizeSide(token string) (models.Side, error) {
	switch strings.ToLower(token) {
	case "b", "buy", "long":
		return models.SideBuy, nil
	case "a", "sell", "short":
		return models.SideSell, nil
	default:
		return "", &ParseError{Field: "side", Value: token}
	}
}

// ParseFill validates and converts one raw fill. The timestamp unit is
// declared by the caller, never inferred from the value's magnitude.
func ParseFill(raw RawFill, unit models.TimeUnit) (models.Fill, error) {
	side, err := NormalizeSide(raw.Side)
	if err != nil {
		return models.Fill{}, err
	}

	size, err := strconv.ParseFloat(raw.Size, 64)
	if err != nil {
		return models.Fill{}, &ParseError{Field: "sz", Value: raw.Size}
	}
	price, err := strconv.ParseFloat(raw.Price, 64)
	if err != nil {
		return models.Fill{}, &ParseError{Field: "px", Value: raw.Price}
	}

	// An absent fee is zero; a present but unparseable one is malformed.
	var fee float64
	if raw.Fee != "" {
		fee, err = strconv.ParseFloat(raw.Fee, 64)
		if err != nil {
			return models.Fill{}, &ParseError{Field: "fee", Value: raw.Fee}
		}
	}

	ts := time.Unix(raw.Time, 0).UTC()
	if unit == models.UnitMilliseconds {
		ts = time.UnixMilli(raw.Time).UTC()
	}

	return models.Fill{
		Coin:     raw.Coin,
		Side:     side,
		Quantity: size,
		Price:    price,
		Time:     ts,
		Fee:      math.Abs(fee),
	}, nil
}

// NormalizeFills converts a raw fill batch, logging and dropping the
// malformed ones. Returns the clean fills and the dropped count.
func NormalizeFills(raw []RawFill, unit models.TimeUnit) ([]models.Fill, int) {
	fills := make([]models.Fill, 0, len(raw))
	bad := 0
	for _, r := range raw {
		f, err := ParseFill(r, unit)
		if err != nil {
			fmt.Printf("[HL] Dropping fill for %s: %v\n", r.Coin, err)
			bad++
			continue
		}
		fills = append(fills, f)
	}
	return fills, bad
}
