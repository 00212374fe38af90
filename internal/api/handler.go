package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"optika/internal"
	"optika/internal/config"
	"optika/internal/refraction"
	"optika/internal/registry"
	"optika/internal/sales"
	"optika/internal/storage"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db      *storage.DB
	cfg     config.Config
	fulfill *sales.Service
	sync    *registry.SyncService
}

// New constructs a Handler.
func New(db *storage.DB, cfg config.Config) *Handler {
	return &Handler{
		db:      db,
		cfg:     cfg,
		fulfill: sales.NewService(db, cfg),
		sync:    registry.NewSyncService(db, cfg),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Get("/products", h.listProducts)
	r.Get("/products/{id}/stock", h.productStock)

	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.submitOrder)

	r.Route("/customers/{id}", func(cr chi.Router) {
		cr.Get("/refractions", h.listRefractions)
		cr.Post("/refractions", h.createRefraction)
		cr.Get("/refraction-imports", h.listImportCandidates)
		cr.Post("/registry-sync", h.syncRegistry)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listProducts(w http.ResponseWriter, _ *http.Request) {
	products, err := h.db.ListProducts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type productOut struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Category    string  `json:"category"`
		RetailPrice float64 `json:"retailPrice"`
	}
	out := make([]productOut, 0, len(products))
	for _, p := range products {
		out = append(out, productOut{
			ID:          p.ID,
			Name:        p.Name,
			Category:    string(internal.ClassifyCategory(p.CategoryName)),
			RetailPrice: p.RetailPrice,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) productStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	spec := r.URL.Query().Get("spec")

	key, qty, err := h.fulfill.Availability(productID, spec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "available": qty})
}

type submitItemRequest struct {
	ProductID   string   `json:"productId"`
	ProductName string   `json:"productName"`
	Spec        string   `json:"spec"`
	Quantity    int      `json:"quantity"`
	Discount    *float64 `json:"discount"`
	SalesPrice  *float64 `json:"salesPrice"`
}

type submitOrderRequest struct {
	CustomerID   string              `json:"customerId"`
	CustomerName string              `json:"customerName"`
	Items        []submitItemRequest `json:"items"`
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "order has no items")
		return
	}

	items := make([]internal.SaleItem, 0, len(req.Items))
	for _, in := range req.Items {
		product, err := h.db.GetProduct(in.ProductID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		var item internal.SaleItem
		if product != nil {
			item = sales.NewSaleItem(*product, in.Spec, in.Quantity)
		} else {
			// Unresolved products still submit; fulfillment routes them
			// to the custom path.
			qty := in.Quantity
			if qty < 1 {
				qty = 1
			}
			item = internal.SaleItem{
				ProductID:   in.ProductID,
				ProductName: in.ProductName,
				SpecDisplay: in.Spec,
				Quantity:    qty,
				Discount:    1,
			}
		}
		if in.Discount != nil {
			sales.SetDiscount(&item, *in.Discount)
		}
		if in.SalesPrice != nil {
			sales.SetSalesPrice(&item, *in.SalesPrice)
		}
		items = append(items, item)
	}

	result, err := h.fulfill.SubmitOrder(req.CustomerID, req.CustomerName, items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"orderNo":     result.Order.OrderNo,
		"orderId":     result.Order.ID,
		"totalAmount": result.Order.TotalAmount,
		"outbound":    len(result.Outbound),
		"custom":      len(result.Custom),
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, _ *http.Request) {
	orders, err := h.db.ListSalesOrders()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type refractionRequest struct {
	Right       internal.RefractionRow `json:"right"`
	Left        internal.RefractionRow `json:"left"`
	PDBinocular string                 `json:"pdBinocular"`
	PDRight     string                 `json:"pdRight"`
	PDLeft      string                 `json:"pdLeft"`
}

func (h *Handler) createRefraction(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")

	var req refractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	req.Right.Eye = internal.EyeRight
	req.Left.Eye = internal.EyeLeft
	rec := internal.RefractionRecord{
		CustomerID:  customerID,
		Right:       refraction.Commit(req.Right),
		Left:        refraction.Commit(req.Left),
		PDBinocular: req.PDBinocular,
		PDRight:     req.PDRight,
		PDLeft:      req.PDLeft,
	}

	id, err := h.db.InsertRefractionRecord(rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":   id,
		"spec": refraction.Format(rec.Right, rec.Left),
	})
}

func (h *Handler) listRefractions(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	records, err := h.db.ListRefractionRecords(customerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type recordOut struct {
		ID          int64                  `json:"id"`
		Right       internal.RefractionRow `json:"right"`
		Left        internal.RefractionRow `json:"left"`
		PDBinocular string                 `json:"pdBinocular,omitempty"`
		PDRight     string                 `json:"pdRight,omitempty"`
		PDLeft      string                 `json:"pdLeft,omitempty"`
		Spec        string                 `json:"spec"`
		CreatedAt   string                 `json:"createdAt"`
	}
	out := make([]recordOut, 0, len(records))
	for _, rec := range records {
		out = append(out, recordOut{
			ID:          rec.ID,
			Right:       rec.Right,
			Left:        rec.Left,
			PDBinocular: rec.PDBinocular,
			PDRight:     rec.PDRight,
			PDLeft:      rec.PDLeft,
			Spec:        refraction.Format(rec.Right, rec.Left),
			CreatedAt:   rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listImportCandidates(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	candidates, err := h.fulfill.RefractionImportCandidates(customerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *Handler) syncRegistry(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	imported, err := h.sync.SyncCustomer(r.Context(), customerID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
