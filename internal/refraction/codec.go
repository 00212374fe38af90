package refraction

import (
	"regexp"
	"strings"

	"optika/internal"
	"optika/internal/util"
)

// The one-line clinical notation, per eye:
//
//	{sphere}/{-cylinder}×{axis}° | ADD：+{add} | {BI|BD} {mag}△ | {BU|BD} {mag}△
//
// with every fragment optional. The binocular form joins both eyes as
// 右：… ；左：…. Format and Parse are paired pure functions; parsing a
// fragment that does not match its grammar leaves the field empty.
var (
	reRightLabel     = regexp.MustCompile(`右眼?[：:]`)
	reLeftLabel      = regexp.MustCompile(`左眼?[：:]`)
	reRightLabelLead = regexp.MustCompile(`^右眼?[：:]`)
	reLeftLabelLead  = regexp.MustCompile(`^左眼?[：:]`)
	reEyeLabelLead   = regexp.MustCompile(`^[右左]眼?[：:]\s*`)
	reSegSplit       = regexp.MustCompile(`[；;]`)
	reSignedLead     = regexp.MustCompile(`^[+-]\d+(?:\.\d+)?`)
	reDecimalLead    = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?`)
	reCylinder       = regexp.MustCompile(`/\s*([+-]?\d+(?:\.\d+)?)`)
	reAxis           = regexp.MustCompile(`[×xX]\s*(\d+)\s*°`)
	reAddPower       = regexp.MustCompile(`ADD[:：]\s*([+-]?\d+(?:\.\d+)?)`)
	rePrism          = regexp.MustCompile(`\b(BI|BD|BU)\s*(\d+(?:\.\d+)?)\s*△`)
)

// FormatEye renders one eye's row. The stored unsigned cylinder is
// emitted negative-signed; the stored unsigned add power positive.
func FormatEye(row internal.RefractionRow) string {
	parts := make([]string, 0, 4)

	if row.Sphere != "" || row.Cylinder != "" || row.Axis != "" {
		var b strings.Builder
		b.WriteString(row.Sphere)
		if row.Cylinder != "" {
			b.WriteString("/-")
			b.WriteString(row.Cylinder)
		}
		if row.Axis != "" {
			b.WriteString("×")
			b.WriteString(row.Axis)
			b.WriteString("°")
		}
		parts = append(parts, b.String())
	}
	if row.AddPower != "" {
		parts = append(parts, "ADD：+"+row.AddPower)
	}
	if row.PrismHorizontal != "" && row.PrismHorizontalMag != "" {
		parts = append(parts, row.PrismHorizontal+" "+row.PrismHorizontalMag+"△")
	}
	if row.PrismVertical != "" && row.PrismVerticalMag != "" {
		parts = append(parts, row.PrismVertical+" "+row.PrismVerticalMag+"△")
	}

	return strings.Join(parts, " | ")
}

// Format renders the binocular text stored as a lens product spec.
// An eye with no rendered text is omitted entirely.
func Format(right, left internal.RefractionRow) string {
	segs := make([]string, 0, 2)
	if r := FormatEye(right); r != "" {
		segs = append(segs, "右："+r)
	}
	if l := FormatEye(left); l != "" {
		segs = append(segs, "左："+l)
	}
	return strings.Join(segs, " ；")
}

// IsRefractionText reports whether the text carries both eye labels,
// the only hard gate in the grammar. Everything past the gate is
// best-effort field extraction.
func IsRefractionText(s string) bool {
	return reRightLabel.MatchString(s) && reLeftLabel.MatchString(s)
}

// Parse extracts both eyes from binocular refraction text. ok is
// false when the eye-label gate fails; per-field parse misses are
// absorbed and leave the field empty.
func Parse(s string) (right, left internal.RefractionRow, ok bool) {
	right = internal.RefractionRow{Eye: internal.EyeRight}
	left = internal.RefractionRow{Eye: internal.EyeLeft}
	if !IsRefractionText(s) {
		return right, left, false
	}

	for _, seg := range reSegSplit.Split(s, -1) {
		seg = strings.TrimSpace(seg)
		switch {
		case reRightLabelLead.MatchString(seg):
			right = parseEye(internal.EyeRight, seg)
		case reLeftLabelLead.MatchString(seg):
			left = parseEye(internal.EyeLeft, seg)
		}
	}
	return right, left, true
}

func parseEye(eye internal.Eye, seg string) internal.RefractionRow {
	row := internal.RefractionRow{Eye: eye}
	seg = strings.TrimSpace(reEyeLabelLead.ReplaceAllString(strings.TrimSpace(seg), ""))

	if m := reCylinder.FindStringSubmatch(seg); m != nil {
		row.Cylinder = strings.TrimLeft(m[1], "+-")
	}

	// A leading signed decimal is a sphere; an unsigned one only when a
	// cylinder follows it. A lone leading decimal with nothing behind
	// the slash convention is corrected visual acuity.
	if m := reSignedLead.FindString(seg); m != "" {
		row.Sphere = m
	} else if m := reDecimalLead.FindString(seg); m != "" && strings.HasPrefix(seg[len(m):], "/") {
		row.Sphere = m
	}
	if row.Sphere == "" && row.Cylinder == "" {
		if m := reDecimalLead.FindString(seg); m != "" && !strings.HasPrefix(seg[len(m):], "/") {
			row.CorrectedVA = m
		}
	}

	if m := reAxis.FindStringSubmatch(seg); m != nil {
		row.Axis = m[1]
	}
	if m := reAddPower.FindStringSubmatch(seg); m != nil {
		row.AddPower = strings.TrimPrefix(m[1], "+")
	}

	// BD is legal in both prism positions; the horizontal fragment
	// renders first, so the first unclaimed BD is horizontal.
	for _, m := range rePrism.FindAllStringSubmatch(seg, -1) {
		switch m[1] {
		case "BI":
			row.PrismHorizontal, row.PrismHorizontalMag = "BI", m[2]
		case "BU":
			row.PrismVertical, row.PrismVerticalMag = "BU", m[2]
		case "BD":
			if row.PrismHorizontal == "" {
				row.PrismHorizontal, row.PrismHorizontalMag = "BD", m[2]
			} else {
				row.PrismVertical, row.PrismVerticalMag = "BD", m[2]
			}
		}
	}

	return row
}

// CommitCylinder canonicalizes a blur-committed cylinder entry:
// unsigned, clamped to [0,6], 0.25 steps.
func CommitCylinder(text string) string {
	return util.CommitMagnitude(text, 0, 6)
}

// CommitAddPower canonicalizes a blur-committed add-power entry:
// unsigned, clamped to [0.5,4], 0.25 steps.
func CommitAddPower(text string) string {
	return util.CommitMagnitude(text, 0.5, 4)
}

// Commit applies the blur-commit canonicalization to the fields that
// carry unsigned stepped magnitudes, leaving everything else as typed.
func Commit(row internal.RefractionRow) internal.RefractionRow {
	if row.Cylinder != "" {
		row.Cylinder = CommitCylinder(row.Cylinder)
	}
	if row.AddPower != "" {
		row.AddPower = CommitAddPower(row.AddPower)
	}
	return row
}
