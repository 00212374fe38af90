package internal

import "strings"

type Eye string

const (
	EyeRight Eye = "right"
	EyeLeft  Eye = "left"
)

type Category string

const (
	CategoryLens  Category = "lens"
	CategoryFrame Category = "frame"
	CategoryOther Category = "other"
)

// ClassifyCategory maps a product directory category name onto the
// three classes the sales core distinguishes.
func ClassifyCategory(name string) Category {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.Contains(n, "镜片") || strings.Contains(n, "lens"):
		return CategoryLens
	case strings.Contains(n, "镜架") || strings.Contains(n, "镜框") || strings.Contains(n, "frame"):
		return CategoryFrame
	default:
		return CategoryOther
	}
}

// RefractionRow holds one eye's prescription. All value fields are kept
// as entered text so precision and an explicit sign survive storage.
// Cylinder and AddPower are unsigned magnitudes; the clinical sign
// (minus for cylinder, plus for add power) is applied by the codec.
type RefractionRow struct {
	Eye                Eye    `json:"eye"`
	Sphere             string `json:"sphere"`
	Cylinder           string `json:"cylinder"`
	Axis               string `json:"axis"`
	CorrectedVA        string `json:"correctedVA"`
	AddPower           string `json:"addPower"`
	PrismHorizontal    string `json:"prismHorizontal"` // BI | BD
	PrismHorizontalMag string `json:"prismHorizontalMag"`
	PrismVertical      string `json:"prismVertical"` // BU | BD
	PrismVerticalMag   string `json:"prismVerticalMag"`
}

// RefractionRecord is a persisted refraction snapshot for one customer.
// Records are immutable once created; a correction is a new record.
type RefractionRecord struct {
	ID          int64
	CustomerID  string
	ExamUID     *string // registry exam id when imported from the clinical source
	Right       RefractionRow
	Left        RefractionRow
	PDBinocular string
	PDRight     string
	PDLeft      string
	CreatedAt   string
}

type ProductCategory struct {
	ID   string
	Name string
}

type Product struct {
	ID           string
	Name         string
	CategoryID   string
	CategoryName string
	RetailPrice  float64
}

// SaleItem is one line of an in-progress sale. SalesPrice and Discount
// stay mutually derivable from Quantity and RetailPrice; the field the
// operator last edited is authoritative.
type SaleItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	SpecDisplay string  `json:"spec"`
	Quantity    int     `json:"quantity"`
	RetailPrice float64 `json:"retailPrice"`
	Discount    float64 `json:"discount"`
	SalesPrice  float64 `json:"salesPrice"`
}

type LensPurchaseRow struct {
	Degree    string  `json:"degree"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// PurchaseListOrder is one purchase lot of a single product. Only lots
// with a non-nil StockInAt participate in sellable stock. Timestamps
// are RFC3339 UTC, so string order is stock-in order.
type PurchaseListOrder struct {
	ID        int64
	ProductID string
	Rows      []LensPurchaseRow
	StockInAt *string
	CreatedAt string
}

type SalesOrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	SpecDisplay string  `json:"spec"`
	Quantity    int     `json:"quantity"`
	SalesPrice  float64 `json:"salesPrice"`
}

// SalesOrder is a finalized sale; never mutated after creation.
type SalesOrder struct {
	ID           string
	OrderNo      string
	OrderDate    string
	CustomerID   string
	CustomerName string
	Items        []SalesOrderItem
	TotalAmount  float64
	CreatedAt    string
}

type FulfillmentKind string

const (
	FulfillOutbound FulfillmentKind = "outbound"
	FulfillCustom   FulfillmentKind = "custom"
)

// FulfillmentRecord is the per-line side effect of order submission.
// Outbound and custom records share this shape and differ only in the
// list they are appended to. SalesPrice snapshots the line's charged
// amount so reporting never has to re-join the order items.
type FulfillmentRecord struct {
	ID           int64
	SalesOrderID string
	OrderNo      string
	ProductID    string
	ProductName  string
	SpecDisplay  string
	Quantity     int
	SalesPrice   float64
	CreatedAt    string
}

// SubjectiveEye carries one eye of a third-party subjective-refraction
// exam. The registry omits fields it did not measure.
type SubjectiveEye struct {
	Sphere      *float64
	Cylinder    *float64
	Axis        *int
	AddPower    *float64
	Vision      *float64
	VisionSign  *string
	VisionLevel *string
}

type SubjectiveExam struct {
	UID         string
	CustomerID  string
	Right       SubjectiveEye
	Left        SubjectiveEye
	PDBinocular *float64
	PDRight     *float64
	PDLeft      *float64
	ExamAt      string
}

type SalesExportRow struct {
	OrderNo      string
	OrderDate    string
	CustomerName string
	Kind         string
	ProductID    string
	ProductName  string
	Spec         string
	Quantity     int
	SalesPrice   float64
	CreatedAt    string
}
