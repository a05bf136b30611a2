// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatPrice formats a price with two decimals and comma separators.
func FormatPrice(value float64) string {
	negative := value < 0
	if negative {
		value = -value
	}

	str := fmt.Sprintf("%.2f", value)
	parts := strings.Split(str, ".")

	result := groupThousands(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	rem := n % 3
	if rem > 0 {
		b.WriteString(s[:rem])
	}
	for i := rem; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatVolume formats share volume in compact form (K/M/B).
func FormatVolume(volume float64) string {
	abs := volume
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", volume/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", volume/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", volume/1e3)
	}
	return fmt.Sprintf("%.0f", volume)
}

// FormatQuantity formats an integer count with comma separators.
func FormatQuantity(qty int64) string {
	negative := qty < 0
	if negative {
		qty = -qty
	}
	result := groupThousands(fmt.Sprintf("%d", qty))
	if negative {
		result = "-" + result
	}
	return result
}
