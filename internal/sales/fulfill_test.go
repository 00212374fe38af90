package sales

import (
	"path/filepath"
	"strings"
	"testing"

	"optika/internal"
	"optika/internal/config"
	"optika/internal/storage"
	"optika/internal/util"
)

func newTestStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "optika.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.UpsertCategories([]internal.ProductCategory{
		{ID: "c-lens", Name: "镜片"},
		{ID: "c-frame", Name: "镜架"},
	}); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	if err := db.UpsertProducts([]internal.Product{
		{ID: "P-lens", Name: "1.60防蓝光", CategoryID: "c-lens", RetailPrice: 100},
		{ID: "P-frame", Name: "合金全框", CategoryID: "c-frame", RetailPrice: 280},
	}); err != nil {
		t.Fatalf("seed products: %v", err)
	}
	return db
}

func seedLot(t *testing.T, db *storage.DB, productID, stockInAt string, rows ...internal.LensPurchaseRow) int64 {
	t.Helper()
	id, err := db.InsertPurchaseOrder(internal.PurchaseListOrder{
		ProductID: productID,
		Rows:      rows,
		StockInAt: util.StringPtr(stockInAt),
	})
	if err != nil {
		t.Fatalf("seed lot: %v", err)
	}
	return id
}

func lensQty(t *testing.T, db *storage.DB, productID string) int {
	t.Helper()
	lots, err := db.ListReceivedLots(productID)
	if err != nil {
		t.Fatalf("list lots: %v", err)
	}
	total := 0
	for _, lot := range lots {
		for _, row := range lot.Rows {
			total += row.Quantity
		}
	}
	return total
}

func TestSubmitOrderOutbound(t *testing.T) {
	db := newTestStore(t)
	seedLot(t, db, "P-lens", "2026-01-01T08:00:00Z",
		internal.LensPurchaseRow{Degree: "-1.00/+0.00", Quantity: 3, UnitPrice: 20})

	svc := NewService(db, config.Config{OrderNoPrefix: "XS"})

	product, err := db.GetProduct("P-lens")
	if err != nil || product == nil {
		t.Fatalf("get product: %v %v", product, err)
	}
	item := NewSaleItem(*product, "右：-1.00/-0.00", 2)

	result, err := svc.SubmitOrder("cust-1", "张三", []internal.SaleItem{item})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.HasPrefix(result.Order.OrderNo, "XS") {
		t.Fatalf("order no = %q", result.Order.OrderNo)
	}
	if len(result.Outbound) != 1 || len(result.Custom) != 0 {
		t.Fatalf("outbound=%d custom=%d", len(result.Outbound), len(result.Custom))
	}
	if qty := lensQty(t, db, "P-lens"); qty != 1 {
		t.Fatalf("remaining stock = %d", qty)
	}

	outbound, err := db.ListFulfillments(internal.FulfillOutbound, result.Order.ID)
	if err != nil {
		t.Fatalf("list fulfillments: %v", err)
	}
	if len(outbound) != 1 || outbound[0].Quantity != 2 || outbound[0].SalesPrice != item.SalesPrice {
		t.Fatalf("stored outbound = %+v", outbound)
	}
}

// A quantity the stock cannot cover in full routes the whole line to a
// custom order and no lot is touched.
func TestSubmitOrderInsufficientStock(t *testing.T) {
	db := newTestStore(t)
	seedLot(t, db, "P-lens", "2026-01-01T08:00:00Z",
		internal.LensPurchaseRow{Degree: "-1.00/+0.00", Quantity: 3, UnitPrice: 20})

	svc := NewService(db, config.Config{OrderNoPrefix: "XS"})
	product, _ := db.GetProduct("P-lens")
	item := NewSaleItem(*product, "右：-1.00/-0.00", 4)

	result, err := svc.SubmitOrder("cust-1", "张三", []internal.SaleItem{item})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(result.Custom) != 1 || len(result.Outbound) != 0 {
		t.Fatalf("outbound=%d custom=%d", len(result.Outbound), len(result.Custom))
	}
	if result.Custom[0].Quantity != 4 {
		t.Fatalf("custom quantity = %d", result.Custom[0].Quantity)
	}
	if qty := lensQty(t, db, "P-lens"); qty != 3 {
		t.Fatalf("stock must be untouched, got %d", qty)
	}
}

// An add-power or prism clause marks the lens made-to-order, even when
// a stock row happens to carry the base degree.
func TestSubmitOrderCustomSpec(t *testing.T) {
	db := newTestStore(t)
	seedLot(t, db, "P-lens", "2026-01-01T08:00:00Z",
		internal.LensPurchaseRow{Degree: "-1.00/-0.50×10°", Quantity: 5, UnitPrice: 20})

	svc := NewService(db, config.Config{OrderNoPrefix: "XS"})
	product, _ := db.GetProduct("P-lens")
	item := NewSaleItem(*product, "右：-1.00/-0.50×10° | ADD：+2.00", 1)

	result, err := svc.SubmitOrder("cust-1", "张三", []internal.SaleItem{item})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(result.Custom) != 1 || len(result.Outbound) != 0 {
		t.Fatalf("outbound=%d custom=%d", len(result.Outbound), len(result.Custom))
	}
	if qty := lensQty(t, db, "P-lens"); qty != 5 {
		t.Fatalf("stock must be untouched, got %d", qty)
	}
}

func TestSubmitOrderUnknownProduct(t *testing.T) {
	db := newTestStore(t)
	svc := NewService(db, config.Config{OrderNoPrefix: "XS"})

	item := internal.SaleItem{
		ProductID:   "no-such-product",
		ProductName: "手写商品",
		SpecDisplay: "自备镜架",
		Quantity:    1,
		Discount:    1,
		SalesPrice:  50,
	}
	result, err := svc.SubmitOrder("cust-2", "李四", []internal.SaleItem{item})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(result.Custom) != 1 {
		t.Fatalf("custom=%d", len(result.Custom))
	}
}

func TestSubmitOrderFrameVariant(t *testing.T) {
	db := newTestStore(t)
	seedLot(t, db, "P-frame", "2026-01-01T08:00:00Z",
		internal.LensPurchaseRow{Degree: "BK-102 黑色", Quantity: 2, UnitPrice: 90})

	svc := NewService(db, config.Config{OrderNoPrefix: "XS"})
	product, _ := db.GetProduct("P-frame")
	item := NewSaleItem(*product, "BK-102 黑色", 1)

	result, err := svc.SubmitOrder("cust-1", "张三", []internal.SaleItem{item})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(result.Outbound) != 1 {
		t.Fatalf("outbound=%d custom=%d", len(result.Outbound), len(result.Custom))
	}
	if qty := lensQty(t, db, "P-frame"); qty != 1 {
		t.Fatalf("remaining stock = %d", qty)
	}
}

func TestSubmitOrderMixedLines(t *testing.T) {
	db := newTestStore(t)
	seedLot(t, db, "P-lens", "2026-01-01T08:00:00Z",
		internal.LensPurchaseRow{Degree: "-1.00/+0.00", Quantity: 2, UnitPrice: 20})

	svc := NewService(db, config.Config{OrderNoPrefix: "XS"})
	product, _ := db.GetProduct("P-lens")

	stocked := NewSaleItem(*product, "右：-1.00/-0.00", 2)
	made := NewSaleItem(*product, "左：-6.50/-1.00×45°", 2)

	result, err := svc.SubmitOrder("cust-1", "张三", []internal.SaleItem{stocked, made})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(result.Outbound) != 1 || len(result.Custom) != 1 {
		t.Fatalf("outbound=%d custom=%d", len(result.Outbound), len(result.Custom))
	}
	if qty := lensQty(t, db, "P-lens"); qty != 0 {
		t.Fatalf("remaining stock = %d", qty)
	}

	orders, err := db.ListSalesOrders()
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 || len(orders[0].Items) != 2 {
		t.Fatalf("orders = %+v", orders)
	}
	wantTotal := stocked.SalesPrice + made.SalesPrice
	if orders[0].TotalAmount != wantTotal {
		t.Fatalf("total = %v want %v", orders[0].TotalAmount, wantTotal)
	}

	// Same product and quantity on both lines: the export must carry
	// one row per fulfillment with that line's own amount.
	exportRows, err := db.GetSalesExportRows("", "")
	if err != nil {
		t.Fatalf("export rows: %v", err)
	}
	if len(exportRows) != 2 {
		t.Fatalf("export rows = %+v", exportRows)
	}
	total := exportRows[0].SalesPrice + exportRows[1].SalesPrice
	if total != wantTotal {
		t.Fatalf("export amounts = %v want %v", total, wantTotal)
	}
}

func TestSubmitOrderEmpty(t *testing.T) {
	db := newTestStore(t)
	svc := NewService(db, config.Config{OrderNoPrefix: "XS"})
	if _, err := svc.SubmitOrder("cust-1", "张三", nil); err == nil {
		t.Fatalf("want error for empty sale")
	}
}

func TestAvailability(t *testing.T) {
	db := newTestStore(t)
	seedLot(t, db, "P-lens", "2026-01-01T08:00:00Z",
		internal.LensPurchaseRow{Degree: "-1.00/+0.00", Quantity: 3, UnitPrice: 20})

	svc := NewService(db, config.Config{OrderNoPrefix: "XS"})

	matched, qty, err := svc.Availability("P-lens", "右：-1.00/-0.00")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if matched != "-1.00/+0.00" || qty != 3 {
		t.Fatalf("matched=%q qty=%d", matched, qty)
	}

	matched, qty, err = svc.Availability("P-lens", "右：-1.00 | ADD：+2.00")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if matched != "" || qty != 0 {
		t.Fatalf("custom spec should report no stock: %q %d", matched, qty)
	}

	if _, qty, _ := svc.Availability("missing", "-1.00"); qty != 0 {
		t.Fatalf("missing product qty = %d", qty)
	}
}
