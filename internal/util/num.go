package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SnapStep clamps value into [min, max] and rounds it to the nearest
// multiple of step. Clamping runs first so an out-of-range entry lands
// on the boundary rather than being rejected.
func SnapStep(value, min, max, step float64) float64 {
	if value < min {
		value = min
	}
	if value > max {
		value = max
	}
	if step <= 0 {
		return value
	}
	return math.Round(value/step) * step
}

// CommitMagnitude turns a blur-committed free-text magnitude into its
// canonical unsigned two-decimal form, clamped to [min, max] and
// snapped to 0.25 steps. Unparsable input yields the empty string.
func CommitMagnitude(text string, min, max float64) string {
	t := strings.TrimSpace(text)
	t = strings.TrimLeft(t, "+-")
	if t == "" {
		return ""
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%.2f", SnapStep(v, min, max, 0.25))
}

// FormatVision renders a visual-acuity value with one decimal place
// when the hundredths digit is zero and two otherwise (1.20 -> "1.2",
// 0.05 -> "0.05").
func FormatVision(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	if strings.HasSuffix(s, "0") {
		return fmt.Sprintf("%.1f", v)
	}
	return s
}

// FormatDecimal renders a float without trailing zeros, for fields
// like pupillary distance where entered precision varies.
func FormatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }
