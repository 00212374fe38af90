package sales

import (
	"optika/internal/refraction"
)

// ImportCandidate is one piece of refraction text a new sale line can
// copy: a stored refraction record rendered through the codec, or a
// historical sale line whose spec is recognized as refraction text.
type ImportCandidate struct {
	Source    string `json:"source"` // record | sale
	RecordID  int64  `json:"recordId,omitempty"`
	Spec      string `json:"spec"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func (s *Service) RefractionImportCandidates(customerID string) ([]ImportCandidate, error) {
	out := []ImportCandidate{}
	seen := map[string]struct{}{}

	records, err := s.db.ListRefractionRecords(customerID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		spec := refraction.Format(rec.Right, rec.Left)
		if spec == "" {
			continue
		}
		if _, ok := seen[spec]; ok {
			continue
		}
		seen[spec] = struct{}{}
		out = append(out, ImportCandidate{Source: "record", RecordID: rec.ID, Spec: spec, CreatedAt: rec.CreatedAt})
	}

	specs, err := s.db.ListCustomerSaleSpecs(customerID)
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		if !refraction.IsRefractionText(spec) {
			continue
		}
		if _, ok := seen[spec]; ok {
			continue
		}
		seen[spec] = struct{}{}
		out = append(out, ImportCandidate{Source: "sale", Spec: spec})
	}

	return out, nil
}
