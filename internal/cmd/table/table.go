// Package table converts fillmap values to rows for CLI table output.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/fillmap/pkg/grid"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data is a table: headers, rows and optional per-column alignment.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align
}

// Dash returns s, or "-" when s is empty.
func Dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Percent formats a 0..1 confidence as a whole percentage.
func Percent(confidence float64) string {
	return fmt.Sprintf("%.0f%%", confidence*100)
}

// Tier renders a confidence tier with its percentage, e.g. "high (92%)".
func Tier(confidence float64) string {
	return fmt.Sprintf("%s (%s)", grid.TierFor(confidence), Percent(confidence))
}

// Truncate shortens s to n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// FormatCount formats n with thousands separators.
func FormatCount(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
