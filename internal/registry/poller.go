package registry

import (
	"context"
	"fmt"
	"time"

	"optika/internal/config"
	"optika/internal/storage"
)

// Poller resyncs known customers from the registry on an interval so
// fresh exams are available as import candidates without an explicit
// sync per customer.
type Poller struct {
	db  *storage.DB
	cfg config.Config
}

func NewPoller(db *storage.DB, cfg config.Config) *Poller {
	return &Poller{db: db, cfg: cfg}
}

func (p *Poller) Run(ctx context.Context) error {
	for {
		if err := p.runCycle(ctx); err != nil {
			fmt.Printf("registry poll cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(p.cfg.RegistryPollIntervalSec) * time.Second):
		}
	}
}

func (p *Poller) runCycle(ctx context.Context) error {
	customers, err := p.db.ListCustomerIDs(p.cfg.RegistryPollBatch)
	if err != nil {
		return err
	}

	svc := NewSyncService(p.db, p.cfg)
	imported := 0
	for _, id := range customers {
		n, err := svc.SyncCustomer(ctx, id)
		if err != nil {
			return err
		}
		imported += n
	}

	fmt.Printf("registry poll cycle done customers=%d imported=%d\n", len(customers), imported)
	return nil
}
