package store

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/oraclelc/backend/core"
)

// LowStockThreshold flags items for the dashboard alert.
const LowStockThreshold = 5

// RequestStatus is the closed set of store request states.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestReceived RequestStatus = "received"
)

// CanTransitionTo reports whether to is a legal next state.
// A request only ever moves forward: pending -> approved|rejected -> received.
func (s RequestStatus) CanTransitionTo(to RequestStatus) bool {
	switch s {
	case RequestPending:
		return to == RequestApproved || to == RequestRejected
	case RequestApproved:
		return to == RequestReceived
	default:
		return false
	}
}

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestReceived:
		return true
	}
	return false
}

// PaymentStatus is the closed set of supplier payment states.
type PaymentStatus string

const (
	PaymentPaid      PaymentStatus = "paid"
	PaymentConfirmed PaymentStatus = "confirmed"
)

// PaymentMethod determines the payment reference format.
type PaymentMethod string

const (
	MethodMpesa PaymentMethod = "mpesa"
	MethodBank  PaymentMethod = "bank"
)

var (
	mpesaRefRegex = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)
	bankRefRegex  = regexp.MustCompile(`^[A-Za-z0-9]{14}$`)
)

// ValidReference reports whether ref matches the method's reference format.
func (m PaymentMethod) ValidReference(ref string) bool {
	switch m {
	case MethodMpesa:
		return mpesaRefRegex.MatchString(ref)
	case MethodBank:
		return bankRefRegex.MatchString(ref)
	}
	return false
}

type StoreItem struct {
	ID          string          `json:"id"`
	ItemName    string          `json:"item_name"`
	Category    string          `json:"category"`
	Cost        decimal.Decimal `json:"cost"`
	Quantity    int             `json:"quantity"`
	Description string          `json:"description"`
}

// LowStock reports whether the item should be flagged on the dashboard.
func (i StoreItem) LowStock() bool {
	return i.Quantity <= LowStockThreshold
}

type StoreRequest struct {
	ID                string          `json:"id"`
	StorekeeperID     string          `json:"storekeeper_id"`
	ItemID            string          `json:"item_id"`
	SupplierID        string          `json:"supplier_id"`
	QuantityRequested int             `json:"quantity_requested"`
	TotalCost         decimal.Decimal `json:"total_cost"` // frozen at request time
	Status            RequestStatus   `json:"status"`
	RequestedAt       time.Time       `json:"requested_at"` // UTC
}

type SupplierPayment struct {
	ID               string          `json:"id"`
	RequestID        string          `json:"request_id"`
	SupplierID       string          `json:"supplier_id"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentReference string          `json:"payment_reference"`
	Status           PaymentStatus   `json:"status"`
	PaidAt           time.Time       `json:"paid_at"`      // UTC
	ConfirmedAt      null.Time       `json:"confirmed_at"` // UTC
}

// NewItem contains information needed to register a new StoreItem.
type NewItem struct {
	ItemName    string          `json:"item_name" validate:"required"`
	Category    string          `json:"category" validate:"required"`
	Cost        decimal.Decimal `json:"cost"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Description string          `json:"description"`
}

func (ni *NewItem) Validate() error {
	ni.ItemName = core.CleanString(ni.ItemName)
	ni.Category = core.CleanString(ni.Category)
	ni.Description = core.CleanString(ni.Description)

	if err := core.Validate.Struct(ni); err != nil {
		return err
	}
	if !ni.Cost.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{Field: "cost", Error: "cost must be greater than zero"})
	}
	return nil
}

// NewRequest contains information needed to create a new StoreRequest.
// StorekeeperID comes from the caller's token, not the request body.
type NewRequest struct {
	StorekeeperID     string `json:"storekeeper_id" validate:"required"`
	ItemID            string `json:"item_id" validate:"required"`
	SupplierID        string `json:"supplier_id" validate:"required"`
	QuantityRequested int    `json:"quantity_requested" validate:"required,gt=0"`
}

func (nr *NewRequest) Validate() error {
	return core.Validate.Struct(nr)
}

// RequestDecision is a supplier's verdict on a pending request.
type RequestDecision struct {
	Status RequestStatus `json:"status" validate:"required,oneof=approved rejected"`
}

func (rd *RequestDecision) Validate() error {
	return core.Validate.Struct(rd)
}

// NewPayment contains information needed to record a SupplierPayment.
type NewPayment struct {
	RequestID        string          `json:"request_id" validate:"required"`
	SupplierID       string          `json:"supplier_id" validate:"required"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	PaymentMethod    PaymentMethod   `json:"payment_method" validate:"required,oneof=mpesa bank"`
	PaymentReference string          `json:"payment_reference" validate:"required"`
}

func (np *NewPayment) Validate() error {
	np.PaymentReference = core.CleanString(np.PaymentReference)

	if err := core.Validate.Struct(np); err != nil {
		return err
	}
	if !np.PaymentMethod.ValidReference(np.PaymentReference) {
		length := 10
		if np.PaymentMethod == MethodBank {
			length = 14
		}
		return core.NewValidationError(nil, core.FieldError{
			Field: "payment_reference",
			Error: string(np.PaymentMethod) + " reference must be exactly " + strconv.Itoa(length) + " letters and numbers",
		})
	}
	// references are stored upper-cased
	np.PaymentReference = strings.ToUpper(np.PaymentReference)
	return nil
}

// RequestFilter applies AND on available fields when querying requests.
type RequestFilter struct {
	SupplierID string
	Statuses   []RequestStatus
}

// RequestInfo is a request row joined with item and supplier names for listings.
type RequestInfo struct {
	StoreRequest
	ItemName     string          `json:"item_name"`
	CostPerItem  decimal.Decimal `json:"cost_per_item"`
	SupplierName string          `json:"supplier_name"`
}

// ReceivedRequest is a received request joined with its (optional) payment.
type ReceivedRequest struct {
	RequestInfo
	PaymentStatus    null.String `json:"payment_status"`
	PaymentMethod    null.String `json:"payment_method"`
	PaymentReference null.String `json:"payment_reference"`
}

// PaymentOverview joins suppliers, requests, items and payments for the admin console.
type PaymentOverview struct {
	SupplierName      string          `json:"supplier_name"`
	ItemName          string          `json:"item_name"`
	QuantityRequested int             `json:"quantity_requested"`
	RequestStatus     RequestStatus   `json:"request_status"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
}

// Dashboard holds the storekeeper dashboard counters.
type Dashboard struct {
	TotalCategories int `json:"total_categories"`
	TotalItems      int `json:"total_items"`
	LowStockAlerts  int `json:"low_stock_alerts"`
	PendingRequests int `json:"pending_requests"`
}

// CategoryItem is an item projection for the per-category grouping.
type CategoryItem struct {
	ItemName    string `json:"item_name"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
}
