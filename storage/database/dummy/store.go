package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/oraclelc/backend/core"
	"github.com/oraclelc/backend/core/store"
)

type storeRepository struct {
	items    *itemTable
	requests *requestTable
	payments *paymentTable
	users    *userTable
}

var _ store.Repository = (*storeRepository)(nil) // interface compliance check

func NewStoreRepository(db *DB) store.Repository {
	return &storeRepository{
		items:    db.item,
		requests: db.request,
		payments: db.payment,
		users:    db.user,
	}
}

func (repo *storeRepository) CreateItem(ctx context.Context, item store.StoreItem, exec ...core.DBExecutor) (store.StoreItem, error) {
	repo.items.Lock()
	defer repo.items.Unlock()

	item.ID = uuid.New().String()
	repo.items.table[item.ID] = &item
	return item, nil
}

func (repo *storeRepository) GetItem(ctx context.Context, id string, exec ...core.DBExecutor) (store.StoreItem, error) {
	repo.items.RLock()
	defer repo.items.RUnlock()

	if item, ok := repo.items.table[id]; ok {
		return *item, nil
	}
	return store.StoreItem{}, store.ErrItemNotFound
}

func (repo *storeRepository) QueryItems(ctx context.Context, exec ...core.DBExecutor) ([]store.StoreItem, error) {
	repo.items.RLock()
	defer repo.items.RUnlock()

	items := make([]store.StoreItem, 0, len(repo.items.table))
	for _, item := range repo.items.table {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].ItemName < items[j].ItemName
	})
	return items, nil
}

func (repo *storeRepository) IncrementItemQuantity(ctx context.Context, itemID string, by int, exec ...core.DBExecutor) error {
	repo.items.Lock()
	defer repo.items.Unlock()

	item, ok := repo.items.table[itemID]
	if !ok {
		return store.ErrItemNotFound
	}
	item.Quantity += by
	return nil
}

func (repo *storeRepository) CreateRequest(ctx context.Context, req store.StoreRequest, exec ...core.DBExecutor) (store.StoreRequest, error) {
	repo.requests.Lock()
	defer repo.requests.Unlock()

	req.ID = uuid.New().String()
	repo.requests.table[req.ID] = &req
	return req, nil
}

func (repo *storeRepository) GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (store.StoreRequest, error) {
	repo.requests.RLock()
	defer repo.requests.RUnlock()

	if req, ok := repo.requests.table[id]; ok {
		return *req, nil
	}
	return store.StoreRequest{}, store.ErrRequestNotFound
}

func (repo *storeRepository) info(req store.StoreRequest) store.RequestInfo {
	info := store.RequestInfo{StoreRequest: req}
	if item, ok := repo.items.table[req.ItemID]; ok {
		info.ItemName = item.ItemName
		info.CostPerItem = item.Cost
	}
	if supplier, ok := repo.users.table[req.SupplierID]; ok {
		info.SupplierName = supplier.Name
	}
	return info
}

func (repo *storeRepository) queryRequests(filter store.RequestFilter) []store.RequestInfo {
	infos := make([]store.RequestInfo, 0, len(repo.requests.table))
	for _, req := range repo.requests.table {
		if filter.SupplierID != "" && req.SupplierID != filter.SupplierID {
			continue
		}
		if len(filter.Statuses) > 0 {
			var match bool
			for _, s := range filter.Statuses {
				if req.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		infos = append(infos, repo.info(*req))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].RequestedAt.After(infos[j].RequestedAt) })
	return infos
}

func (repo *storeRepository) QueryRequests(ctx context.Context, filter store.RequestFilter, exec ...core.DBExecutor) ([]store.RequestInfo, error) {
	repo.requests.RLock()
	defer repo.requests.RUnlock()
	repo.items.RLock()
	defer repo.items.RUnlock()
	repo.users.RLock()
	defer repo.users.RUnlock()

	return repo.queryRequests(filter), nil
}

func (repo *storeRepository) QueryReceivedRequests(ctx context.Context, exec ...core.DBExecutor) ([]store.ReceivedRequest, error) {
	repo.requests.RLock()
	defer repo.requests.RUnlock()
	repo.items.RLock()
	defer repo.items.RUnlock()
	repo.users.RLock()
	defer repo.users.RUnlock()
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	infos := repo.queryRequests(store.RequestFilter{Statuses: []store.RequestStatus{store.RequestReceived}})

	received := make([]store.ReceivedRequest, 0, len(infos))
	for _, info := range infos {
		rr := store.ReceivedRequest{RequestInfo: info}
		for _, p := range repo.payments.table {
			if p.RequestID == info.ID {
				rr.PaymentStatus = null.StringFrom(string(p.Status))
				rr.PaymentMethod = null.StringFrom(string(p.PaymentMethod))
				rr.PaymentReference = null.StringFrom(p.PaymentReference)
				break
			}
		}
		received = append(received, rr)
	}
	return received, nil
}

func (repo *storeRepository) TransitionRequest(ctx context.Context, id string, from, to store.RequestStatus, supplierID string, exec ...core.DBExecutor) (int64, error) {
	repo.requests.Lock()
	defer repo.requests.Unlock()

	req, ok := repo.requests.table[id]
	if !ok || req.Status != from {
		return 0, nil
	}
	if supplierID != "" && req.SupplierID != supplierID {
		return 0, nil
	}
	req.Status = to
	return 1, nil
}

func (repo *storeRepository) CreatePayment(ctx context.Context, p store.SupplierPayment, exec ...core.DBExecutor) (store.SupplierPayment, error) {
	repo.payments.Lock()
	defer repo.payments.Unlock()

	// request_id is unique
	for _, existing := range repo.payments.table {
		if existing.RequestID == p.RequestID {
			return store.SupplierPayment{}, store.ErrDuplicatePayment
		}
	}

	p.ID = uuid.New().String()
	repo.payments.table[p.ID] = &p
	return p, nil
}

func (repo *storeRepository) QueryPaymentsBySupplier(ctx context.Context, supplierID string, exec ...core.DBExecutor) ([]store.SupplierPayment, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	payments := make([]store.SupplierPayment, 0)
	for _, p := range repo.payments.table {
		if p.SupplierID == supplierID {
			payments = append(payments, *p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].PaidAt.After(payments[j].PaidAt) })
	return payments, nil
}

func (repo *storeRepository) ConfirmPayment(ctx context.Context, paymentID string, confirmedAt time.Time, exec ...core.DBExecutor) (int64, error) {
	repo.payments.Lock()
	defer repo.payments.Unlock()

	p, ok := repo.payments.table[paymentID]
	if !ok || p.Status != store.PaymentPaid {
		return 0, nil
	}
	p.Status = store.PaymentConfirmed
	p.ConfirmedAt = null.TimeFrom(confirmedAt.UTC())
	return 1, nil
}

func (repo *storeRepository) QueryPaymentOverview(ctx context.Context, exec ...core.DBExecutor) ([]store.PaymentOverview, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()
	repo.requests.RLock()
	defer repo.requests.RUnlock()
	repo.items.RLock()
	defer repo.items.RUnlock()
	repo.users.RLock()
	defer repo.users.RUnlock()

	type entry struct {
		overview store.PaymentOverview
		paidAt   time.Time
	}
	entries := make([]entry, 0, len(repo.payments.table))
	for _, p := range repo.payments.table {
		req, ok := repo.requests.table[p.RequestID]
		if !ok {
			continue
		}
		ov := store.PaymentOverview{
			QuantityRequested: req.QuantityRequested,
			RequestStatus:     req.Status,
			TotalCost:         p.TotalCost,
			PaymentMethod:     p.PaymentMethod,
			PaymentStatus:     p.Status,
		}
		if item, ok := repo.items.table[req.ItemID]; ok {
			ov.ItemName = item.ItemName
		}
		if supplier, ok := repo.users.table[req.SupplierID]; ok {
			ov.SupplierName = supplier.Name
		}
		entries = append(entries, entry{overview: ov, paidAt: p.PaidAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].paidAt.After(entries[j].paidAt) })

	overview := make([]store.PaymentOverview, 0, len(entries))
	for _, e := range entries {
		overview = append(overview, e.overview)
	}
	return overview, nil
}

func (repo *storeRepository) GetDashboard(ctx context.Context, exec ...core.DBExecutor) (store.Dashboard, error) {
	repo.items.RLock()
	defer repo.items.RUnlock()
	repo.requests.RLock()
	defer repo.requests.RUnlock()

	var dash store.Dashboard
	categories := make(map[string]bool)
	for _, item := range repo.items.table {
		categories[item.Category] = true
		dash.TotalItems++
		if item.LowStock() {
			dash.LowStockAlerts++
		}
	}
	dash.TotalCategories = len(categories)
	for _, req := range repo.requests.table {
		if req.Status == store.RequestPending {
			dash.PendingRequests++
		}
	}
	return dash, nil
}
