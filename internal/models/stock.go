// Package models defines data structures for the paper trader.
package models

import "fmt"

// Stock is a point-in-time quote snapshot for one symbol.
// Constructed fresh on every successful quote fetch, never mutated.
type Stock struct {
	Symbol        string  `json:"symbol"`
	CompanyName   string  `json:"company_name"`
	CurrentPrice  float64 `json:"current_price"`
	PriceChange   float64 `json:"price_change"`
	PercentChange float64 `json:"percent_change"`
}

// IsPositive reports whether the stock is flat or up on the day.
func (s Stock) IsPositive() bool {
	return s.PriceChange >= 0
}

// FormattedPrice returns the current price as a display string.
func (s Stock) FormattedPrice() string {
	return fmt.Sprintf("$%.2f", s.CurrentPrice)
}

// FormattedChange returns the signed absolute change as a display string.
func (s Stock) FormattedChange() string {
	if s.IsPositive() {
		return fmt.Sprintf("+$%.2f", s.PriceChange)
	}
	return fmt.Sprintf("$%.2f", s.PriceChange)
}

// FormattedPercentChange returns the signed percent change as a display string.
func (s Stock) FormattedPercentChange() string {
	if s.IsPositive() {
		return fmt.Sprintf("+%.2f%%", s.PercentChange)
	}
	return fmt.Sprintf("%.2f%%", s.PercentChange)
}

// SearchMatch is one instrument returned by a symbol search.
type SearchMatch struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Region     string `json:"region"`
	Currency   string `json:"currency"`
	MatchScore string `json:"match_score"`
}
