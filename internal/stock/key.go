package stock

import (
	"regexp"
	"strings"

	"optika/internal"
)

// NoVariantKey is the placeholder degree key for products that are not
// variant-differentiated, and for rows entered without a degree.
const NoVariantKey = "—"

var (
	reEyeLabelLead = regexp.MustCompile(`^[左右]眼?[：:]\s*`)
	reAddSuffix    = regexp.MustCompile(`\s*\|\s*ADD[:：][^|]*`)
	reAddInline    = regexp.MustCompile(`ADD[:：]\s*[+-]?\d+(?:\.\d+)?`)
	reAxisSuffix   = regexp.MustCompile(`\s*[×xX]\s*\d+\s*°\s*$`)
	rePrismClause  = regexp.MustCompile(`\b(?:BI|BD|BU)\s*\d+(?:\.\d+)?\s*△`)
)

// Zero-cylinder spellings: clinical entry writes -0.00, purchase stock
// tends to write +0.00.
const (
	zeroMinusSuffix = "/-0.00"
	zeroPlusSuffix  = "/+0.00"
)

// DegreeKey derives the canonical inventory lookup key for a product's
// spec text. Each category has its own rule: lens keys strip the eye
// label and any add-power clause (stock is not partitioned by add
// power), frame keys are the trimmed variant string, everything else
// collapses to the no-variant placeholder.
func DegreeKey(category internal.Category, spec string) string {
	switch category {
	case internal.CategoryLens:
		k := reEyeLabelLead.ReplaceAllString(strings.TrimSpace(spec), "")
		k = reAddSuffix.ReplaceAllString(k, "")
		k = reAddInline.ReplaceAllString(k, "")
		return strings.TrimSpace(k)
	case internal.CategoryFrame:
		k := strings.TrimSpace(spec)
		if k == "" || k == NoVariantKey {
			return NoVariantKey
		}
		return k
	default:
		return NoVariantKey
	}
}

// IsCustomSpec reports whether a lens spec names an add-power or prism
// clause. Such lenses are made to order and never matched against
// stock.
func IsCustomSpec(spec string) bool {
	return reAddInline.MatchString(spec) || rePrismClause.MatchString(spec)
}

// CandidateKeys returns the ordered lookup candidates for a lens
// degree key: the exact key, the key without its trailing axis clause
// (axis does not affect stock), the ±0.00 cylinder sign twins
// (purchase stock records zero cylinder as "+0.00", clinical entry as
// "-0.00"), and for a pure-sphere key the synthesized zero-cylinder
// spellings.
func CandidateKeys(key string) []string {
	key = strings.TrimSpace(key)
	out := make([]string, 0, 6)
	seen := map[string]struct{}{}
	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	add(key)
	axisless := strings.TrimSpace(reAxisSuffix.ReplaceAllString(key, ""))
	add(axisless)

	for _, k := range []string{key, axisless} {
		switch {
		case strings.HasSuffix(k, zeroMinusSuffix):
			add(strings.TrimSuffix(k, zeroMinusSuffix) + zeroPlusSuffix)
		case strings.HasSuffix(k, zeroPlusSuffix):
			add(strings.TrimSuffix(k, zeroPlusSuffix) + zeroMinusSuffix)
		}
	}

	if axisless != "" && !strings.Contains(axisless, "/") {
		add(axisless + zeroMinusSuffix)
		add(axisless + zeroPlusSuffix)
	}

	return out
}

// Match finds the first candidate with positive quantity in a stock
// index entry. An empty matched key means zero available stock.
func Match(entry map[string]int, key string) (matched string, qty int) {
	for _, cand := range CandidateKeys(key) {
		if q := entry[cand]; q > 0 {
			return cand, q
		}
	}
	return "", 0
}
