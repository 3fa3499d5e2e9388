package model

import (
	"fmt"
	"time"
)

// ValidationError reports a malformed OHLC point at construction time.
type ValidationError struct {
	Symbol string
	Date   time.Time
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("invalid price point for %s at %s: %s", e.Symbol, e.Date.Format("2006-01-02"), e.Reason)
	}
	return fmt.Sprintf("invalid price point at %s: %s", e.Date.Format("2006-01-02"), e.Reason)
}

// PricePoint is a single OHLCV observation. Volume is 0 when the source
// did not report it.
type PricePoint struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// NewPricePoint validates the OHLC ordering invariants and returns the point.
// A point whose high is below its low, or whose open/close fall outside the
// [low, high] range, is rejected with a ValidationError.
func NewPricePoint(date time.Time, open, high, low, close float64, volume int64) (PricePoint, error) {
	p := PricePoint{Date: date, Open: open, High: high, Low: low, Close: close, Volume: volume}
	if high < low {
		return PricePoint{}, &ValidationError{Date: date, Reason: "high price cannot be lower than low price"}
	}
	if open < low || open > high {
		return PricePoint{}, &ValidationError{Date: date, Reason: "open price must be between low and high"}
	}
	if close < low || close > high {
		return PricePoint{}, &ValidationError{Date: date, Reason: "close price must be between low and high"}
	}
	return p, nil
}

// DateKey returns the calendar-day key used for duplicate detection and
// cross-series date joins.
func (p PricePoint) DateKey() string {
	return p.Date.Format("2006-01-02")
}
