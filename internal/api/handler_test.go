package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"optika/internal"
	"optika/internal/config"
	"optika/internal/storage"
	"optika/internal/util"
)

func newTestHandler(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "optika.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.UpsertCategories([]internal.ProductCategory{{ID: "c-lens", Name: "镜片"}}); err != nil {
		t.Fatalf("categories: %v", err)
	}
	if err := db.UpsertProducts([]internal.Product{
		{ID: "P-lens", Name: "1.60防蓝光", CategoryID: "c-lens", RetailPrice: 100},
	}); err != nil {
		t.Fatalf("products: %v", err)
	}

	h := New(db, config.Config{OrderNoPrefix: "XS"})
	return h, h.Router()
}

func seedStock(t *testing.T, h *Handler, degree string, qty int) {
	t.Helper()
	if _, err := h.db.InsertPurchaseOrder(internal.PurchaseListOrder{
		ProductID: "P-lens",
		Rows:      []internal.LensPurchaseRow{{Degree: degree, Quantity: qty, UnitPrice: 20}},
		StockInAt: util.StringPtr("2026-01-01T08:00:00Z"),
	}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func TestHealth(t *testing.T) {
	_, router := newTestHandler(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListProducts(t *testing.T) {
	_, router := newTestHandler(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0]["category"] != "lens" || out[0]["retailPrice"] != 100.0 {
		t.Fatalf("products = %+v", out)
	}
}

func TestProductStock(t *testing.T) {
	h, router := newTestHandler(t)
	seedStock(t, h, "-1.00/+0.00", 3)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/P-lens/stock?spec="+
		url.QueryEscape("右：-1.00/-0.00"), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["key"] != "-1.00/+0.00" || out["available"] != 3.0 {
		t.Fatalf("stock = %+v", out)
	}
}

func TestSubmitOrderEndpoint(t *testing.T) {
	h, router := newTestHandler(t)
	seedStock(t, h, "-1.00/+0.00", 3)

	body := `{
		"customerId": "cust-1",
		"customerName": "张三",
		"items": [
			{"productId": "P-lens", "spec": "右：-1.00/-0.00", "quantity": 2, "discount": 0.8},
			{"productId": "unknown", "productName": "手写商品", "spec": "自备镜架", "quantity": 1, "salesPrice": 50}
		]
	}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["outbound"] != 1.0 || out["custom"] != 1.0 {
		t.Fatalf("result = %+v", out)
	}
	// 100 * 2 * 0.8 for the stocked line, plus the handwritten 50.
	if out["totalAmount"] != 210.0 {
		t.Fatalf("total = %v", out["totalAmount"])
	}
	if no, _ := out["orderNo"].(string); !strings.HasPrefix(no, "XS") {
		t.Fatalf("order no = %v", out["orderNo"])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var orders []internal.SalesOrder
	if err := json.Unmarshal(rec.Body.Bytes(), &orders); err != nil {
		t.Fatalf("decode orders: %v", err)
	}
	if len(orders) != 1 || len(orders[0].Items) != 2 {
		t.Fatalf("orders = %+v", orders)
	}
}

func TestSubmitOrderRejectsEmpty(t *testing.T) {
	_, router := newTestHandler(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRefractionEndpoints(t *testing.T) {
	_, router := newTestHandler(t)

	body := `{
		"right": {"sphere": "-1.00", "cylinder": "3.1", "axis": "10"},
		"left": {"sphere": "-1.25"},
		"pdBinocular": "64.5"
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers/cust-1/refractions", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Cylinder entry snaps on commit.
	if created["spec"] != "右：-1.00/-3.00×10° ；左：-1.25" {
		t.Fatalf("spec = %v", created["spec"])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/cust-1/refractions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var records []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0]["pdBinocular"] != "64.5" {
		t.Fatalf("records = %+v", records)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/cust-1/refraction-imports", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("imports status = %d", rec.Code)
	}
	var candidates []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &candidates); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(candidates) != 1 || candidates[0]["source"] != "record" {
		t.Fatalf("candidates = %+v", candidates)
	}
}
