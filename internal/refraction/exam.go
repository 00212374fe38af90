package refraction

import (
	"fmt"
	"math"
	"strconv"

	"optika/internal"
	"optika/internal/util"
)

// FromExam maps a registry subjective-refraction exam into a local
// refraction record. Powers are forced to two-decimal text; cylinder
// and add power are stored unsigned, so any sign the registry sends is
// dropped. The registry has no prism fields.
func FromExam(exam internal.SubjectiveExam) internal.RefractionRecord {
	rec := internal.RefractionRecord{
		CustomerID: exam.CustomerID,
		Right:      eyeFromExam(internal.EyeRight, exam.Right),
		Left:       eyeFromExam(internal.EyeLeft, exam.Left),
	}
	if exam.UID != "" {
		rec.ExamUID = util.StringPtr(exam.UID)
	}
	if exam.PDBinocular != nil {
		rec.PDBinocular = util.FormatDecimal(*exam.PDBinocular)
	}
	if exam.PDRight != nil {
		rec.PDRight = util.FormatDecimal(*exam.PDRight)
	}
	if exam.PDLeft != nil {
		rec.PDLeft = util.FormatDecimal(*exam.PDLeft)
	}
	return rec
}

func eyeFromExam(eye internal.Eye, src internal.SubjectiveEye) internal.RefractionRow {
	row := internal.RefractionRow{Eye: eye}

	if src.Sphere != nil {
		row.Sphere = fmt.Sprintf("%.2f", *src.Sphere)
	}
	if src.Cylinder != nil {
		row.Cylinder = fmt.Sprintf("%.2f", math.Abs(*src.Cylinder))
	}
	if src.Axis != nil {
		row.Axis = strconv.Itoa(*src.Axis)
	}
	if src.AddPower != nil {
		row.AddPower = fmt.Sprintf("%.2f", math.Abs(*src.AddPower))
	}
	if src.Vision != nil {
		va := util.FormatVision(*src.Vision)
		if src.VisionSign != nil {
			va += *src.VisionSign
		}
		if src.VisionLevel != nil {
			va += *src.VisionLevel
		}
		row.CorrectedVA = va
	}

	return row
}
