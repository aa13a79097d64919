package alphavantage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"229.8700", 229.87},
		{"1,234.56", 1234.56},
		{"$12.00", 12.0},
		{"0.5996%", 0.5996},
		{" 42 ", 42},
		{"-1.37", -1.37},
		{"", 0},
		{"n/a", 0},
		{"--", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ParseDecimal(tt.in), 1e-9, "input %q", tt.in)
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"44,923,941", 44923941},
		{"100", 100},
		{" 7 ", 7},
		{"-3", -3},
		{"1.5", 0},
		{"", 0},
		{"none", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseInteger(tt.in), "input %q", tt.in)
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0.5996%", 0.5996},
		{"-2.41%", -2.41},
		{"10", 10},
		{"", 0},
		{"N/A", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ParsePercent(tt.in), 1e-9, "input %q", tt.in)
	}
}
