package controller

import (
	"strconv"
	"strings"
)

var speedLabels = [MaxSpeed]string{
	"Very Slow", "Slow", "Slow", "Medium", "Medium",
	"Medium", "Fast", "Fast", "Very Fast", "Ultra Fast",
}

// SpeedLabel returns the human-readable name of a speed level.
func SpeedLabel(level int) string {
	return speedLabels[clampSpeed(level)-1]
}

// FormatLearningRate renders a rate with precision matched to its
// magnitude: 2, 3 or 4 decimals with trailing zeros trimmed, and
// exponent notation below 0.001.
func FormatLearningRate(v float64) string {
	var digits int
	switch {
	case v >= 0.1:
		digits = 2
	case v >= 0.01:
		digits = 3
	case v >= 0.001:
		digits = 4
	default:
		return strconv.FormatFloat(v, 'e', 2, 64)
	}
	s := strconv.FormatFloat(v, 'f', digits, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
