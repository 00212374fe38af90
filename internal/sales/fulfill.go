package sales

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"optika/internal"
	"optika/internal/config"
	"optika/internal/stock"
	"optika/internal/storage"
)

// Service resolves each line of a submitted sale into an outbound
// record (stock fulfilled, lots deducted) or a custom-order record.
type Service struct {
	db  *storage.DB
	cfg config.Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg, locks: map[string]*sync.Mutex{}}
}

type SubmitResult struct {
	Order    internal.SalesOrder
	Outbound []internal.FulfillmentRecord
	Custom   []internal.FulfillmentRecord
}

// SubmitOrder finalizes a sale. The order record is created first so
// its id and number exist for the per-line records, and it is never
// rolled back: a stock inconsistency detected mid-pass is returned as
// the error of the whole submission for manual reconciliation, with
// the lines processed so far already committed.
func (s *Service) SubmitOrder(customerID, customerName string, items []internal.SaleItem) (SubmitResult, error) {
	if len(items) == 0 {
		return SubmitResult{}, errors.New("sale has no items")
	}

	now := time.Now().UTC()
	order := internal.SalesOrder{
		ID:           uuid.NewString(),
		OrderNo:      s.orderNo(now),
		OrderDate:    now.Format("2006-01-02"),
		CustomerID:   customerID,
		CustomerName: customerName,
		CreatedAt:    now.Format(time.RFC3339),
	}
	for _, item := range items {
		order.Items = append(order.Items, internal.SalesOrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SpecDisplay: item.SpecDisplay,
			Quantity:    item.Quantity,
			SalesPrice:  item.SalesPrice,
		})
		order.TotalAmount += item.SalesPrice
	}

	if err := s.db.InsertSalesOrder(order); err != nil {
		return SubmitResult{}, err
	}

	result := SubmitResult{Order: order}
	for _, item := range items {
		rec := internal.FulfillmentRecord{
			SalesOrderID: order.ID,
			OrderNo:      order.OrderNo,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			SpecDisplay:  item.SpecDisplay,
			Quantity:     item.Quantity,
			SalesPrice:   item.SalesPrice,
			CreatedAt:    now.Format(time.RFC3339),
		}

		kind, err := s.resolveLine(item)
		if err != nil {
			return result, fmt.Errorf("order %s line %s: %w", order.OrderNo, item.ProductID, err)
		}

		id, err := s.db.InsertFulfillment(kind, rec)
		if err != nil {
			return result, err
		}
		rec.ID = id
		if kind == internal.FulfillOutbound {
			result.Outbound = append(result.Outbound, rec)
		} else {
			result.Custom = append(result.Custom, rec)
		}
	}

	return result, nil
}

// resolveLine decides outbound vs custom for one line and commits the
// deduction on the outbound path. Fulfillment is all-or-nothing per
// line: a quantity the stock cannot cover in full routes the whole
// line to custom and touches no lot.
func (s *Service) resolveLine(item internal.SaleItem) (internal.FulfillmentKind, error) {
	product, err := s.db.GetProduct(item.ProductID)
	if err != nil {
		return "", err
	}
	if product == nil {
		return internal.FulfillCustom, nil
	}

	category := internal.ClassifyCategory(product.CategoryName)
	if category == internal.CategoryLens && stock.IsCustomSpec(item.SpecDisplay) {
		return internal.FulfillCustom, nil
	}

	key := stock.DegreeKey(category, item.SpecDisplay)

	// Serialize match+deduct per product so two submissions cannot both
	// confirm the same units against one snapshot.
	lock := s.lockFor(item.ProductID)
	lock.Lock()
	defer lock.Unlock()

	lots, err := s.db.ListReceivedLots(item.ProductID)
	if err != nil {
		return "", err
	}

	matched, available := stock.Match(stock.EntryFromLots(lots), key)
	if available < item.Quantity {
		return internal.FulfillCustom, nil
	}

	changed, err := stock.Deduct(item.ProductID, lots, matched, item.Quantity)
	if err != nil {
		return "", err
	}
	for _, lot := range changed {
		if err := s.db.ReplaceLotRows(lot.ID, lot.Rows); err != nil {
			return "", err
		}
	}
	return internal.FulfillOutbound, nil
}

// Availability reports the matched key and quantity a spec could be
// fulfilled with right now.
func (s *Service) Availability(productID, spec string) (string, int, error) {
	product, err := s.db.GetProduct(productID)
	if err != nil {
		return "", 0, err
	}
	if product == nil {
		return "", 0, nil
	}
	category := internal.ClassifyCategory(product.CategoryName)
	if category == internal.CategoryLens && stock.IsCustomSpec(spec) {
		return "", 0, nil
	}

	lots, err := s.db.ListReceivedLots(productID)
	if err != nil {
		return "", 0, err
	}
	matched, qty := stock.Match(stock.EntryFromLots(lots), stock.DegreeKey(category, spec))
	return matched, qty, nil
}

func (s *Service) lockFor(productID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[productID] = lock
	}
	return lock
}

func (s *Service) orderNo(now time.Time) string {
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return s.cfg.OrderNoPrefix + now.Format("20060102") + "-" + strings.ToUpper(short)
}
