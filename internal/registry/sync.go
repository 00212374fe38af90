package registry

import (
	"context"
	"time"

	"optika/internal/config"
	"optika/internal/refraction"
	"optika/internal/storage"
)

// SyncService pulls a customer's subjective-refraction exams from the
// registry and stores them as local refraction records. Exams already
// imported are skipped by their exam uid.
type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg}
}

func (s *SyncService) SyncCustomer(ctx context.Context, customerID string) (int, error) {
	exams, err := s.client.GetExamsScrollAll(ctx, customerID)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, exam := range exams {
		rec := refraction.FromExam(exam)
		id, err := s.db.InsertRefractionRecord(rec)
		if err != nil {
			return imported, err
		}
		if id != 0 {
			imported++
		}
	}

	_ = s.db.SetMetadata("registry.last_sync."+customerID, time.Now().UTC().Format(time.RFC3339))
	return imported, nil
}
