package logic

import "fmt"

// FormatMeters renders a centimeter distance as meters with one decimal,
// e.g. 150 -> "1.5".
func FormatMeters(cm float64) string {
	return fmt.Sprintf("%.1f", cm/100)
}
