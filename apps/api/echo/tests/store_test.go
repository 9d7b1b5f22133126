package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/oraclelc/backend/core/store"
	"github.com/oraclelc/backend/core/user"
)

// Test_storeApi_procurement runs the full procurement workflow:
// request -> approve -> receive -> pay -> confirm.
func Test_storeApi_procurement(t *testing.T) {
	server := setup(t)
	ctx := context.Background()

	storekeeper := createUser(t, "Keeper", "keeper", "keeper@test.cd", []string{user.RoleStorekeeper}, true, true)
	supplier := createUser(t, "Supplies Ltd", "supplies", "supplies@test.cd", []string{user.RoleSupplier}, true, true)
	otherSupplier := createUser(t, "Other Ltd", "otherltd", "other@test.cd", []string{user.RoleSupplier}, true, true)
	finance := createUser(t, "Money Bags", "moneybags", "money@test.cd", []string{user.RoleFinance}, true, true)
	student := createUser(t, "Student", "studento", "student@test.cd", []string{user.RoleStudent}, true, true)

	keeperToken := getToken(t, storekeeper)
	supplierToken := getToken(t, supplier)
	otherSupplierToken := getToken(t, otherSupplier)
	financeToken := getToken(t, finance)
	studentToken := getToken(t, student)

	item := createItem(t, "Printer Paper", "Stationery", "100", 3)

	newReqBody := marchallObj(t, store.NewRequest{
		ItemID:            item.ID,
		SupplierID:        supplier.ID,
		QuantityRequested: 5,
	})

	var request store.StoreRequest

	t.Run("request requires auth", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/store/requests", newReqBody)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("request requires storekeeper", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/store/requests", studentToken, newReqBody)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("request freezes total cost", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/store/requests", keeperToken, newReqBody)
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &request); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if !request.TotalCost.Equal(decimal.NewFromInt(500)) {
			t.Errorf("TotalCost = %s; want 500", request.TotalCost)
		}
		if request.Status != store.RequestPending {
			t.Errorf("Status = %s; want %s", request.Status, store.RequestPending)
		}
		if request.StorekeeperID != storekeeper.ID {
			t.Errorf("StorekeeperID = %s; want token subject %s", request.StorekeeperID, storekeeper.ID)
		}
	})

	t.Run("unknown item rejected", func(t *testing.T) {
		body := marchallObj(t, store.NewRequest{ItemID: "cc0b9661-9da1-44a5-b741-f07bb261a0c5", SupplierID: supplier.ID, QuantityRequested: 1})
		req, rec := newAuthRequest(http.MethodPost, "/v1/store/requests", keeperToken, body)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: store.ErrItemNotFound.Error()})}, rec)
	})

	decisionPath := func(id string) string { return fmt.Sprintf("/v1/supplier/requests/%s", id) }
	approveBody := marchallObj(t, store.RequestDecision{Status: store.RequestApproved})

	t.Run("foreign supplier cannot decide", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, decisionPath(request.ID), otherSupplierToken, approveBody)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: store.ErrRequestNotFoundOrUnauthorized.Error()})}, rec)
	})

	t.Run("invalid decision rejected", func(t *testing.T) {
		body := marchallObj(t, store.RequestDecision{Status: "shipped"})
		req, rec := newAuthRequest(http.MethodPut, decisionPath(request.ID), supplierToken, body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("receive before approval rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/store/requests/%s/receive", request.ID), keeperToken)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: store.ErrRequestNotApproved.Error()})}, rec)
	})

	t.Run("pay before receipt rejected", func(t *testing.T) {
		body := marchallObj(t, store.NewPayment{
			RequestID:        request.ID,
			SupplierID:       supplier.ID,
			PaymentMethod:    store.MethodMpesa,
			PaymentReference: "ab12345678",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/payments", financeToken, body)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: store.ErrRequestNotReceived.Error()})}, rec)
	})

	t.Run("owner supplier approves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, decisionPath(request.ID), supplierToken, approveBody)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("decision is final", func(t *testing.T) {
		body := marchallObj(t, store.RequestDecision{Status: store.RequestRejected})
		req, rec := newAuthRequest(http.MethodPut, decisionPath(request.ID), supplierToken, body)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: store.ErrRequestNotFoundOrUnauthorized.Error()})}, rec)
	})

	t.Run("receive credits stock", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/store/requests/%s/receive", request.ID), keeperToken)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		got, err := storeRepo.GetItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetItem() failed: %v", err)
		}
		if got.Quantity != 8 {
			t.Errorf("Quantity = %d; want 8 (3 on hand + 5 received)", got.Quantity)
		}
	})

	t.Run("receive is not repeatable", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/store/requests/%s/receive", request.ID), keeperToken)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: store.ErrRequestNotApproved.Error()})}, rec)

		got, err := storeRepo.GetItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetItem() failed: %v", err)
		}
		if got.Quantity != 8 {
			t.Errorf("Quantity = %d; want stock unchanged at 8", got.Quantity)
		}
	})

	t.Run("payment to wrong supplier rejected", func(t *testing.T) {
		body := marchallObj(t, store.NewPayment{
			RequestID:        request.ID,
			SupplierID:       otherSupplier.ID,
			PaymentMethod:    store.MethodMpesa,
			PaymentReference: "ab12345678",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/payments", financeToken, body)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: store.ErrSupplierMismatch.Error()})}, rec)
	})

	t.Run("bad payment reference rejected", func(t *testing.T) {
		body := marchallObj(t, store.NewPayment{
			RequestID:        request.ID,
			SupplierID:       supplier.ID,
			PaymentMethod:    store.MethodMpesa,
			PaymentReference: "too-short",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/payments", financeToken, body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("wrong posted total rejected", func(t *testing.T) {
		body := marchallObj(t, store.NewPayment{
			RequestID:        request.ID,
			SupplierID:       supplier.ID,
			TotalCost:        decimal.NewFromInt(450),
			PaymentMethod:    store.MethodMpesa,
			PaymentReference: "ab12345678",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/payments", financeToken, body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	var payment store.SupplierPayment

	t.Run("payment stores upper-cased reference", func(t *testing.T) {
		body := marchallObj(t, store.NewPayment{
			RequestID:        request.ID,
			SupplierID:       supplier.ID,
			PaymentMethod:    store.MethodMpesa,
			PaymentReference: "ab12345678",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/payments", financeToken, body)
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payment); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if payment.PaymentReference != "AB12345678" {
			t.Errorf("PaymentReference = %q; want \"AB12345678\"", payment.PaymentReference)
		}
		if !payment.TotalCost.Equal(request.TotalCost) {
			t.Errorf("TotalCost = %s; want the request's frozen total %s", payment.TotalCost, request.TotalCost)
		}
		if payment.Status != store.PaymentPaid {
			t.Errorf("Status = %s; want %s", payment.Status, store.PaymentPaid)
		}
	})

	t.Run("duplicate payment rejected", func(t *testing.T) {
		body := marchallObj(t, store.NewPayment{
			RequestID:        request.ID,
			SupplierID:       supplier.ID,
			PaymentMethod:    store.MethodBank,
			PaymentReference: "ab123456789012",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/finance/payments", financeToken, body)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: store.ErrDuplicatePayment.Error()})}, rec)
	})

	t.Run("supplier sees their payments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/supplier/payments", supplierToken)
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var payments []store.SupplierPayment
		if err := json.Unmarshal(rec.Body.Bytes(), &payments); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(payments) != 1 || payments[0].ID != payment.ID {
			t.Errorf("payments = %+v; want the single recorded payment", payments)
		}
	})

	t.Run("supplier confirms payment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/supplier/payments/%s/confirm", payment.ID), supplierToken)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("confirming twice is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/supplier/payments/%s/confirm", payment.ID), supplierToken)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: store.ErrPaymentNotFoundOrConfirmed.Error()})}, rec)
	})

	t.Run("admin payment overview", func(t *testing.T) {
		admin := createUser(t, "Admin", "admin01", "admin@test.cd", []string{user.RoleAdmin}, true, true)
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/store/payments", getToken(t, admin))
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var overview []store.PaymentOverview
		if err := json.Unmarshal(rec.Body.Bytes(), &overview); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(overview) != 1 {
			t.Fatalf("overview length = %d; want 1", len(overview))
		}
		if overview[0].SupplierName != supplier.Name || overview[0].PaymentStatus != store.PaymentConfirmed {
			t.Errorf("overview = %+v; want confirmed payment to %q", overview[0], supplier.Name)
		}
	})
}

func Test_storeApi_rejectWorkflow(t *testing.T) {
	server := setup(t)

	storekeeper := createUser(t, "Keeper", "keeper", "keeper@test.cd", []string{user.RoleStorekeeper}, true, true)
	supplier := createUser(t, "Supplies Ltd", "supplies", "supplies@test.cd", []string{user.RoleSupplier}, true, true)
	item := createItem(t, "Whiteboard Marker", "Stationery", "50", 10)

	keeperToken := getToken(t, storekeeper)
	supplierToken := getToken(t, supplier)

	body := marchallObj(t, store.NewRequest{ItemID: item.ID, SupplierID: supplier.ID, QuantityRequested: 2})
	req, rec := newAuthRequest(http.MethodPost, "/v1/store/requests", keeperToken, body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating request failed: %s", rec.Body.String())
	}
	var request store.StoreRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &request); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}

	rejectBody := marchallObj(t, store.RequestDecision{Status: store.RequestRejected})
	req, rec = newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/supplier/requests/%s", request.ID), supplierToken, rejectBody)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("rejecting request failed: %s", rec.Body.String())
	}

	// a rejected request can never be received
	req, rec = newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/store/requests/%s/receive", request.ID), keeperToken)
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: store.ErrRequestNotApproved.Error()})}, rec)

	got, err := storeRepo.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetItem() failed: %v", err)
	}
	if got.Quantity != 10 {
		t.Errorf("Quantity = %d; want stock unchanged at 10", got.Quantity)
	}
}

func Test_storeApi_dashboard(t *testing.T) {
	server := setup(t)

	storekeeper := createUser(t, "Keeper", "keeper", "keeper@test.cd", []string{user.RoleStorekeeper}, true, true)
	supplier := createUser(t, "Supplies Ltd", "supplies", "supplies@test.cd", []string{user.RoleSupplier}, true, true)
	keeperToken := getToken(t, storekeeper)

	lowStock := createItem(t, "Stapler", "Stationery", "250", 2)
	createItem(t, "Projector", "Electronics", "30000", 6)

	body := marchallObj(t, store.NewRequest{ItemID: lowStock.ID, SupplierID: supplier.ID, QuantityRequested: 4})
	req, rec := newAuthRequest(http.MethodPost, "/v1/store/requests", keeperToken, body)
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating request failed: %s", rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/store/dashboard", keeperToken)
	server.ServeHTTP(rec, req)

	want := store.Dashboard{TotalCategories: 2, TotalItems: 2, LowStockAlerts: 1, PendingRequests: 1}
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}, rec)
}

func Test_storeApi_supplierRequests(t *testing.T) {
	server := setup(t)

	storekeeper := createUser(t, "Keeper", "keeper", "keeper@test.cd", []string{user.RoleStorekeeper}, true, true)
	supplier := createUser(t, "Supplies Ltd", "supplies", "supplies@test.cd", []string{user.RoleSupplier}, true, true)
	otherSupplier := createUser(t, "Other Ltd", "otherltd", "other@test.cd", []string{user.RoleSupplier}, true, true)
	item := createItem(t, "Printer Paper", "Stationery", "100", 3)

	keeperToken := getToken(t, storekeeper)

	for _, supplierID := range []string{supplier.ID, supplier.ID, otherSupplier.ID} {
		body := marchallObj(t, store.NewRequest{ItemID: item.ID, SupplierID: supplierID, QuantityRequested: 1})
		req, rec := newAuthRequest(http.MethodPost, "/v1/store/requests", keeperToken, body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("creating request failed: %s", rec.Body.String())
		}
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/supplier/requests?status=pending", getToken(t, supplier))
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var reqs []store.RequestInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &reqs); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("requests length = %d; want only the supplier's own 2", len(reqs))
	}
	for _, r := range reqs {
		if r.SupplierID != supplier.ID {
			t.Errorf("SupplierID = %s; want %s", r.SupplierID, supplier.ID)
		}
		if r.ItemName != item.ItemName {
			t.Errorf("ItemName = %q; want %q", r.ItemName, item.ItemName)
		}
	}
}
