package refraction

import (
	"testing"

	"optika/internal"
	"optika/internal/util"
)

func TestFromExam(t *testing.T) {
	exam := internal.SubjectiveExam{
		UID:        "exam-1",
		CustomerID: "c-1",
		Right: internal.SubjectiveEye{
			Sphere:      util.FloatPtr(-1),
			Cylinder:    util.FloatPtr(-0.5),
			Axis:        util.IntPtr(10),
			AddPower:    util.FloatPtr(2),
			Vision:      util.FloatPtr(1.2),
			VisionSign:  util.StringPtr("⁺"),
			VisionLevel: util.StringPtr("²"),
		},
		Left: internal.SubjectiveEye{
			Sphere: util.FloatPtr(0.75),
			Vision: util.FloatPtr(0.05),
		},
		PDBinocular: util.FloatPtr(64.5),
		PDRight:     util.FloatPtr(32),
	}

	rec := FromExam(exam)

	if rec.CustomerID != "c-1" {
		t.Fatalf("customer = %q", rec.CustomerID)
	}
	if rec.ExamUID == nil || *rec.ExamUID != "exam-1" {
		t.Fatalf("exam uid = %v", rec.ExamUID)
	}
	if rec.PDBinocular != "64.5" || rec.PDRight != "32" || rec.PDLeft != "" {
		t.Fatalf("pd = %q %q %q", rec.PDBinocular, rec.PDRight, rec.PDLeft)
	}

	r := rec.Right
	if r.Sphere != "-1.00" || r.Cylinder != "0.50" || r.Axis != "10" || r.AddPower != "2.00" {
		t.Fatalf("right powers = %+v", r)
	}
	if r.CorrectedVA != "1.2⁺²" {
		t.Fatalf("right va = %q", r.CorrectedVA)
	}

	l := rec.Left
	if l.Sphere != "0.75" || l.Cylinder != "" || l.Axis != "" {
		t.Fatalf("left powers = %+v", l)
	}
	if l.CorrectedVA != "0.05" {
		t.Fatalf("left va = %q", l.CorrectedVA)
	}
}

func TestFromExamEmpty(t *testing.T) {
	rec := FromExam(internal.SubjectiveExam{CustomerID: "c-2"})
	if rec.ExamUID != nil {
		t.Fatalf("exam uid should be nil")
	}
	if FormatEye(rec.Right) != "" || FormatEye(rec.Left) != "" {
		t.Fatalf("empty exam must render nothing")
	}
}
