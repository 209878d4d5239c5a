package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/pricing"
	"github.com/bookexpress/cotizador/internal/shared"
)

var (
	// ErrInvalidTransition indicates a lifecycle change the current status does not allow.
	ErrInvalidTransition = fmt.Errorf("sales: invalid status transition: %w", shared.ErrConflict)
	// ErrQuotationNotFound indicates a missing quotation.
	ErrQuotationNotFound = fmt.Errorf("sales: quotation %w", shared.ErrNotFound)
	// ErrAdoptionNotFound indicates a missing adoption.
	ErrAdoptionNotFound = fmt.Errorf("sales: adoption %w", shared.ErrNotFound)
	// ErrOrderNotFound indicates a missing purchase order.
	ErrOrderNotFound = fmt.Errorf("sales: purchase order %w", shared.ErrNotFound)
	// ErrAdoptionExists indicates the quotation already has an adoption.
	ErrAdoptionExists = fmt.Errorf("sales: quotation already adopted: %w", shared.ErrConflict)
	// ErrOrderExists indicates the adoption already has a purchase order.
	ErrOrderExists = fmt.Errorf("sales: adoption already has a purchase order: %w", shared.ErrConflict)
	// ErrNumberExhausted is returned when numbering keeps colliding.
	ErrNumberExhausted = fmt.Errorf("sales: could not assign a unique quotation number: %w", shared.ErrConflict)
)

// ============================================================================
// QUOTATION
// ============================================================================

// QuotationStatus is the lifecycle state of a quotation.
type QuotationStatus string

const (
	QuotationPending  QuotationStatus = "PENDING"
	QuotationSent     QuotationStatus = "SENT"
	QuotationApproved QuotationStatus = "APPROVED"
	QuotationRejected QuotationStatus = "REJECTED"
	QuotationAdopted  QuotationStatus = "ADOPTED"
)

var quotationTransitions = map[QuotationStatus][]QuotationStatus{
	QuotationPending:  {QuotationSent, QuotationApproved, QuotationRejected},
	QuotationSent:     {QuotationApproved, QuotationRejected},
	QuotationApproved: {QuotationAdopted},
}

// CanTransition reports whether a quotation may move from s to next.
func (s QuotationStatus) CanTransition(next QuotationStatus) bool {
	for _, allowed := range quotationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Editable reports whether lines may still be replaced.
func (s QuotationStatus) Editable() bool {
	return s == QuotationPending || s == QuotationSent
}

// Quotation is a priced offer to a school.
type Quotation struct {
	ID              int64            `json:"id"`
	Number          string           `json:"number"`
	InstitutionID   int64            `json:"institution_id"`
	InstitutionName string           `json:"institution_name,omitempty"`
	AdvisorID       int64            `json:"advisor_id"`
	AdvisorName     string           `json:"advisor_name,omitempty"`
	SaleType        pricing.SaleType `json:"sale_type"`
	Status          QuotationStatus  `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Total           decimal.Decimal  `json:"total"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Lines           []QuotationLine  `json:"lines,omitempty"`
}

// QuotationLine is one priced product on a quotation.
type QuotationLine struct {
	ID          int64           `json:"id"`
	QuotationID int64           `json:"quotation_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	Inputs      pricing.Inputs  `json:"inputs"`
	Derived     pricing.Derived `json:"derived"`
}

// LineTotal is net price times quantity.
func (l QuotationLine) LineTotal() decimal.Decimal {
	return pricing.Round2(l.Derived.NetPrice().Mul(decimal.NewFromInt(int64(l.Quantity))))
}

// QuotationLineRequest carries raw pricing inputs for one line.
// Absent base price and provider discount fall back to the catalog values.
type QuotationLineRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
	SaleType  string `json:"sale_type,omitempty"`
	pricing.RawInputs
}

// CreateQuotationRequest is the payload for a new quotation.
type CreateQuotationRequest struct {
	InstitutionID int64                  `json:"institution_id" validate:"required,gt=0"`
	AdvisorID     int64                  `json:"advisor_id" validate:"required,gt=0"`
	SaleType      string                 `json:"sale_type,omitempty"`
	Notes         string                 `json:"notes,omitempty" validate:"max=2000"`
	Lines         []QuotationLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ReplaceLinesRequest replaces every quotation line.
type ReplaceLinesRequest struct {
	Lines []QuotationLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ChangeStatusRequest moves a quotation through its lifecycle.
type ChangeStatusRequest struct {
	Status    QuotationStatus `json:"status" validate:"required,oneof=SENT APPROVED REJECTED"`
	Reason    string          `json:"reason,omitempty" validate:"max=1000"`
	AutoAdopt bool            `json:"auto_adopt,omitempty"`
}

// QuotationFilter narrows quotation listings.
type QuotationFilter struct {
	Status        QuotationStatus
	InstitutionID int64
	AdvisorID     int64
	Number        string
	Page          shared.PageRequest
}

// ============================================================================
// ADOPTION
// ============================================================================

// ReadingMonth is the month a school plans to start using a book.
type ReadingMonth string

const (
	MonthJanuary   ReadingMonth = "ENERO"
	MonthFebruary  ReadingMonth = "FEBRERO"
	MonthMarch     ReadingMonth = "MARZO"
	MonthApril     ReadingMonth = "ABRIL"
	MonthMay       ReadingMonth = "MAYO"
	MonthJune      ReadingMonth = "JUNIO"
	MonthJuly      ReadingMonth = "JULIO"
	MonthAugust    ReadingMonth = "AGOSTO"
	MonthSeptember ReadingMonth = "SETIEMBRE"
	MonthOctober   ReadingMonth = "OCTUBRE"
	MonthNovember  ReadingMonth = "NOVIEMBRE"
	MonthDecember  ReadingMonth = "DICIEMBRE"
)

var readingMonths = map[string]ReadingMonth{
	"ENERO":      MonthJanuary,
	"FEBRERO":    MonthFebruary,
	"MARZO":      MonthMarch,
	"ABRIL":      MonthApril,
	"MAYO":       MonthMay,
	"JUNIO":      MonthJune,
	"JULIO":      MonthJuly,
	"AGOSTO":     MonthAugust,
	"SETIEMBRE":  MonthSeptember,
	"SEPTIEMBRE": MonthSeptember,
	"OCTUBRE":    MonthOctober,
	"NOVIEMBRE":  MonthNovember,
	"DICIEMBRE":  MonthDecember,
}

// ParseReadingMonth normalises a month name; blank means no month.
func ParseReadingMonth(raw string) (ReadingMonth, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	if m, ok := readingMonths[shared.FoldKey(raw)]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown reading month %q", shared.ErrInvalidInput, raw)
}

// Adoption is a school's committed selection for an approved quotation.
type Adoption struct {
	ID              int64          `json:"id"`
	QuotationID     int64          `json:"quotation_id"`
	QuotationNumber string         `json:"quotation_number,omitempty"`
	InstitutionName string         `json:"institution_name,omitempty"`
	AdvisorName     string         `json:"advisor_name,omitempty"`
	Modality        string         `json:"modality,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	DirectorSigned  bool           `json:"director_signed"`
	AdvisorSigned   bool           `json:"advisor_signed"`
	TotalQuantity   int            `json:"total_quantity"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Lines           []AdoptionLine `json:"lines,omitempty"`
}

// AdoptionLine is the adopted quantity of one product.
type AdoptionLine struct {
	ID              int64        `json:"id"`
	AdoptionID      int64        `json:"adoption_id"`
	QuotationLineID int64        `json:"quotation_line_id,omitempty"`
	ProductID       int64        `json:"product_id"`
	ProductName     string       `json:"product_name,omitempty"`
	Quantity        int          `json:"quantity"`
	ReadingMonth    ReadingMonth `json:"reading_month,omitempty"`
}

// AdoptionItemRequest sets the adopted quantity for one quotation line.
type AdoptionItemRequest struct {
	QuotationLineID int64  `json:"quotation_line_id" validate:"required,gt=0"`
	Quantity        int    `json:"quantity" validate:"gt=0"`
	ReadingMonth    string `json:"reading_month,omitempty"`
}

// CreateAdoptionRequest adopts a quotation. Without items every quotation line
// is copied with a zero quantity.
type CreateAdoptionRequest struct {
	QuotationID    int64                 `json:"quotation_id" validate:"required,gt=0"`
	Modality       string                `json:"modality,omitempty" validate:"max=64"`
	Notes          string                `json:"notes,omitempty" validate:"max=2000"`
	DirectorSigned bool                  `json:"director_signed"`
	AdvisorSigned  bool                  `json:"advisor_signed"`
	Items          []AdoptionItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
}

// ReplaceAdoptionLinesRequest replaces every adoption line.
type ReplaceAdoptionLinesRequest struct {
	Items []AdoptionItemRequest `json:"items" validate:"required,min=1,dive"`
}

// AdoptionFilter narrows adoption listings.
type AdoptionFilter struct {
	QuotationID int64
	Page        shared.PageRequest
}

// ============================================================================
// PURCHASE ORDER
// ============================================================================

// OrderStatus is the lifecycle state of a purchase order.
type OrderStatus string

const (
	OrderDraft     OrderStatus = "DRAFT"
	OrderIssued    OrderStatus = "ISSUED"
	OrderSent      OrderStatus = "SENT"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderCancelled OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderDraft:  {OrderIssued, OrderCancelled},
	OrderIssued: {OrderSent, OrderCancelled},
	OrderSent:   {OrderConfirmed, OrderCancelled},
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PurchaseOrder is the supplier order generated from an adoption.
type PurchaseOrder struct {
	ID         int64           `json:"id"`
	AdoptionID int64           `json:"adoption_id"`
	Supplier   string          `json:"supplier"`
	Notes      string          `json:"notes,omitempty"`
	Status     OrderStatus     `json:"status"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Lines      []OrderLine     `json:"lines,omitempty"`
}

// OrderLine snapshots the provider price at order creation.
type OrderLine struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	Quantity      int             `json:"quantity"`
	ProviderPrice decimal.Decimal `json:"provider_price"`
}

// CreateOrderRequest generates a purchase order from an adoption.
type CreateOrderRequest struct {
	AdoptionID int64  `json:"adoption_id" validate:"required,gt=0"`
	Supplier   string `json:"supplier" validate:"max=200"`
	Notes      string `json:"notes,omitempty" validate:"max=2000"`
}

// ChangeOrderStatusRequest moves an order through its lifecycle.
type ChangeOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=ISSUED SENT CONFIRMED CANCELLED"`
}

// OrderFilter narrows purchase order listings.
type OrderFilter struct {
	Status OrderStatus
	Page   shared.PageRequest
}
