package store

import (
	"os"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/oraclelc/backend/core"
)

func TestMain(m *testing.M) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validator.New(), translator)
	os.Exit(m.Run())
}

func TestRequestStatus_CanTransitionTo(t *testing.T) {
	all := []RequestStatus{RequestPending, RequestApproved, RequestRejected, RequestReceived}

	allowed := map[RequestStatus]map[RequestStatus]bool{
		RequestPending:  {RequestApproved: true, RequestRejected: true},
		RequestApproved: {RequestReceived: true},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s.CanTransitionTo(%s) = %v; want %v", from, to, got, want)
			}
		}
	}
}

func TestRequestStatus_IsValid(t *testing.T) {
	for _, s := range []RequestStatus{RequestPending, RequestApproved, RequestRejected, RequestReceived} {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false; want true", s)
		}
	}
	for _, s := range []RequestStatus{"", "shipped", "Pending"} {
		if s.IsValid() {
			t.Errorf("%q.IsValid() = true; want false", s)
		}
	}
}

func TestPaymentMethod_ValidReference(t *testing.T) {
	tests := []struct {
		name   string
		method PaymentMethod
		ref    string
		want   bool
	}{
		{"mpesa ok", MethodMpesa, "QDF7RT61WX", true},
		{"mpesa lowercase ok", MethodMpesa, "qdf7rt61wx", true},
		{"mpesa too short", MethodMpesa, "QDF7RT61W", false},
		{"mpesa too long", MethodMpesa, "QDF7RT61WX1", false},
		{"mpesa symbols", MethodMpesa, "QDF7RT61W-", false},
		{"bank ok", MethodBank, "AB12CD34EF56GH", true},
		{"bank too short", MethodBank, "AB12CD34EF", false},
		{"bank spaces", MethodBank, "AB12 D34EF56GH", false},
		{"unknown method", PaymentMethod("cash"), "QDF7RT61WX", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.method.ValidReference(tt.ref); got != tt.want {
				t.Errorf("ValidReference(%q) = %v; want %v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestNewPayment_Validate(t *testing.T) {
	np := NewPayment{
		RequestID:        "req1",
		SupplierID:       "sup1",
		PaymentMethod:    MethodMpesa,
		PaymentReference: " qdf7rt61wx ",
	}
	if err := np.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if np.PaymentReference != "QDF7RT61WX" {
		t.Errorf("PaymentReference = %q; want trimmed and upper-cased \"QDF7RT61WX\"", np.PaymentReference)
	}

	np.PaymentReference = "nope"
	if err := np.Validate(); err == nil {
		t.Error("Validate() accepted a malformed reference")
	}
}

func TestNewItem_Validate(t *testing.T) {
	ni := NewItem{ItemName: "Stapler", Category: "Stationery", Cost: decimal.NewFromInt(250), Quantity: 3}
	if err := ni.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	ni.Cost = decimal.Zero
	if err := ni.Validate(); err == nil {
		t.Error("Validate() accepted a zero cost")
	}
	ni.Cost = decimal.NewFromInt(-5)
	if err := ni.Validate(); err == nil {
		t.Error("Validate() accepted a negative cost")
	}
}

func TestStoreItem_LowStock(t *testing.T) {
	tests := []struct {
		qty  int
		want bool
	}{
		{0, true},
		{LowStockThreshold, true},
		{LowStockThreshold + 1, false},
		{100, false},
	}
	for _, tt := range tests {
		item := StoreItem{Quantity: tt.qty}
		if got := item.LowStock(); got != tt.want {
			t.Errorf("LowStock() with quantity %d = %v; want %v", tt.qty, got, tt.want)
		}
	}
}
