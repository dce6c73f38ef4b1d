package hyperliquid

import (
	"errors"
	"testing"
	"time"

	"github.com/perpfolio/reconciler-backend/internal/models"
)

func TestNormalizeSide(t *testing.T) {
	buys := []string{"b", "B", "buy", "BUY", "long", "Long"}
	for _, tok := range buys {
		side, err := NormalizeSide(tok)
		if err != nil {
			t.Fatalf("%q: %v", tok, err)
		}
		if side != models.SideBuy {
			t.Fatalf("%q: got %s", tok, side)
		}
	}

	sells := []string{"a", "A", "sell", "SELL", "short"}
	for _, tok := range sells {
		side, err := NormalizeSide(tok)
		if err != nil {
			t.Fatalf("%q: %v", tok, err)
		}
		if side != models.SideSell {
			t.Fatalf("%q: got %s", tok, side)
		}
	}

	for _, tok := range []string{"", "hold", "x"} {
		if _, err := NormalizeSide(tok); err == nil {
			t.Fatalf("%q: expected error", tok)
		}
	}
}

func TestParseFill(t *testing.T) {
	raw := RawFill{
		Coin:  "ETH",
		Side:  "B",
		Size:  "0.0385",
		Price: "2600.5",
		Time:  1709294400000, // ms
		Fee:   "-0.45",       // venue reports rebates as negative
	}

	f, err := ParseFill(raw, models.UnitMilliseconds)
	if err != nil {
		t.Fatal(err)
	}
	if f.Coin != "ETH" || f.Side != models.SideBuy {
		t.Fatalf("coin/side: %+v", f)
	}
	if f.Quantity != 0.0385 || f.Price != 2600.5 {
		t.Fatalf("numerics: %+v", f)
	}
	if f.Fee != 0.45 {
		t.Fatalf("fee should be absolute: got %f", f.Fee)
	}
	want := time.UnixMilli(1709294400000).UTC()
	if !f.Time.Equal(want) {
		t.Fatalf("time: got %s want %s", f.Time, want)
	}
}

func TestParseFill_TimestampUnitIsExplicit(t *testing.T) {
	raw := RawFill{Coin: "ETH", Side: "A", Size: "1", Price: "100", Time: 1709294400}

	f, err := ParseFill(raw, models.UnitSeconds)
	if err != nil {
		t.Fatal(err)
	}
	if !f.Time.Equal(time.Unix(1709294400, 0).UTC()) {
		t.Fatalf("seconds unit: got %s", f.Time)
	}

	// The same value interpreted as milliseconds lands decades apart;
	// the unit must come from the caller, not the magnitude.
	f, err = ParseFill(raw, models.UnitMilliseconds)
	if err != nil {
		t.Fatal(err)
	}
	if !f.Time.Equal(time.UnixMilli(1709294400).UTC()) {
		t.Fatalf("milliseconds unit: got %s", f.Time)
	}
}

func TestParseFill_MissingFeeIsZero(t *testing.T) {
	raw := RawFill{Coin: "ETH", Side: "b", Size: "1", Price: "100", Time: 1}
	f, err := ParseFill(raw, models.UnitMilliseconds)
	if err != nil {
		t.Fatal(err)
	}
	if f.Fee != 0 {
		t.Fatalf("fee: got %f", f.Fee)
	}
}

func TestParseFill_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		raw   RawFill
		field string
	}{
		{"bad side", RawFill{Coin: "ETH", Side: "hodl", Size: "1", Price: "100"}, "side"},
		{"bad size", RawFill{Coin: "ETH", Side: "b", Size: "lots", Price: "100"}, "sz"},
		{"empty size", RawFill{Coin: "ETH", Side: "b", Size: "", Price: "100"}, "sz"},
		{"bad price", RawFill{Coin: "ETH", Side: "b", Size: "1", Price: "1,000"}, "px"},
		{"bad fee", RawFill{Coin: "ETH", Side: "b", Size: "1", Price: "100", Fee: "free"}, "fee"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFill(tc.raw, models.UnitMilliseconds)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if perr.Field != tc.field {
				t.Fatalf("field: got %q want %q", perr.Field, tc.field)
			}
		})
	}
}

func TestNormalizeFills_DropsMalformed(t *testing.T) {
	raw := []RawFill{
		{Coin: "ETH", Side: "b", Size: "1", Price: "100", Time: 1000},
		{Coin: "ETH", Side: "??", Size: "1", Price: "100", Time: 2000},
		{Coin: "BTC", Side: "a", Size: "0.5", Price: "50000", Time: 3000},
	}

	fills, bad := NormalizeFills(raw, models.UnitMilliseconds)
	if len(fills) != 2 {
		t.Fatalf("fills: got %d", len(fills))
	}
	if bad != 1 {
		t.Fatalf("bad count: got %d", bad)
	}
}
