package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/oraclelc/backend/core"
	"github.com/oraclelc/backend/core/store"
)

// pqUniqueViolation is the postgres error code for unique constraint violations.
const pqUniqueViolation = "23505"

type StoreRepository struct {
	db *sqlx.DB
}

var _ store.Repository = (*StoreRepository)(nil) // interface compliance check

func NewStoreRepository(db *sqlx.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (repo StoreRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo StoreRepository) queryer(svcExec []core.DBExecutor) sqlx.QueryerContext {
	if len(svcExec) > 0 {
		if tx, ok := svcExec[0].(*sql.Tx); ok {
			return &sqlx.Tx{Tx: tx, Mapper: repo.db.Mapper}
		}
	}
	return repo.db
}

// Items

type itemRow struct {
	ID          string          `db:"id"`
	ItemName    string          `db:"item_name"`
	Category    string          `db:"category"`
	Cost        decimal.Decimal `db:"cost"`
	Quantity    int             `db:"quantity"`
	Description null.String     `db:"description"`
}

func (r itemRow) unpack() store.StoreItem {
	return store.StoreItem{
		ID:          r.ID,
		ItemName:    r.ItemName,
		Category:    r.Category,
		Cost:        r.Cost,
		Quantity:    r.Quantity,
		Description: r.Description.String,
	}
}

func (repo StoreRepository) CreateItem(ctx context.Context, item store.StoreItem, exec ...core.DBExecutor) (store.StoreItem, error) {
	item.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx, `
		INSERT INTO store_item (id, item_name, category, cost, quantity, description)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.ItemName, item.Category, item.Cost, item.Quantity, null.NewString(item.Description, item.Description != ""))
	if err != nil {
		return store.StoreItem{}, errors.Wrap(err, "inserting store item")
	}
	return item, nil
}

func (repo StoreRepository) GetItem(ctx context.Context, id string, exec ...core.DBExecutor) (store.StoreItem, error) {
	var row itemRow
	err := sqlx.GetContext(ctx, repo.queryer(exec), &row,
		`SELECT id, item_name, category, cost, quantity, description FROM store_item WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return store.StoreItem{}, store.ErrItemNotFound
		}
		return store.StoreItem{}, errors.Wrap(err, "getting store item")
	}
	return row.unpack(), nil
}

func (repo StoreRepository) QueryItems(ctx context.Context, exec ...core.DBExecutor) ([]store.StoreItem, error) {
	var rows []itemRow
	err := sqlx.SelectContext(ctx, repo.queryer(exec), &rows,
		`SELECT id, item_name, category, cost, quantity, description FROM store_item ORDER BY category, item_name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying store items")
	}
	items := make([]store.StoreItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.unpack())
	}
	return items, nil
}

func (repo StoreRepository) IncrementItemQuantity(ctx context.Context, itemID string, by int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE store_item SET quantity = quantity + $1 WHERE id = $2`, by, itemID)
	if err != nil {
		return errors.Wrap(err, "incrementing item quantity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

// Requests

type requestRow struct {
	ID                string          `db:"id"`
	StorekeeperID     string          `db:"storekeeper_id"`
	ItemID            string          `db:"item_id"`
	SupplierID        string          `db:"supplier_id"`
	QuantityRequested int             `db:"quantity_requested"`
	TotalCost         decimal.Decimal `db:"total_cost"`
	Status            string          `db:"status"`
	RequestedAt       time.Time       `db:"requested_at"`
}

func (r requestRow) unpack() store.StoreRequest {
	return store.StoreRequest{
		ID:                r.ID,
		StorekeeperID:     r.StorekeeperID,
		ItemID:            r.ItemID,
		SupplierID:        r.SupplierID,
		QuantityRequested: r.QuantityRequested,
		TotalCost:         r.TotalCost,
		Status:            store.RequestStatus(r.Status),
		RequestedAt:       r.RequestedAt,
	}
}

func (repo StoreRepository) CreateRequest(ctx context.Context, req store.StoreRequest, exec ...core.DBExecutor) (store.StoreRequest, error) {
	req.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx, `
		INSERT INTO store_request (id, storekeeper_id, item_id, supplier_id, quantity_requested, total_cost, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.StorekeeperID, req.ItemID, req.SupplierID,
		req.QuantityRequested, req.TotalCost, string(req.Status), req.RequestedAt.UTC())
	if err != nil {
		return store.StoreRequest{}, errors.Wrap(err, "inserting store request")
	}
	return req, nil
}

func (repo StoreRepository) GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (store.StoreRequest, error) {
	var row requestRow
	err := sqlx.GetContext(ctx, repo.queryer(exec), &row, `
		SELECT id, storekeeper_id, item_id, supplier_id, quantity_requested, total_cost, status, requested_at
		FROM store_request WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return store.StoreRequest{}, store.ErrRequestNotFound
		}
		return store.StoreRequest{}, errors.Wrap(err, "getting store request")
	}
	return row.unpack(), nil
}

type requestInfoRow struct {
	requestRow
	ItemName     string          `db:"item_name"`
	CostPerItem  decimal.Decimal `db:"cost_per_item"`
	SupplierName null.String     `db:"supplier_name"`
}

func (r requestInfoRow) unpack() store.RequestInfo {
	return store.RequestInfo{
		StoreRequest: r.requestRow.unpack(),
		ItemName:     r.ItemName,
		CostPerItem:  r.CostPerItem,
		SupplierName: r.SupplierName.String,
	}
}

func (repo StoreRepository) QueryRequests(ctx context.Context, filter store.RequestFilter, exec ...core.DBExecutor) ([]store.RequestInfo, error) {
	query := `
		SELECT sr.id, sr.storekeeper_id, sr.item_id, sr.supplier_id, sr.quantity_requested,
		       sr.total_cost, sr.status, sr.requested_at,
		       si.item_name, si.cost AS cost_per_item, u.name AS supplier_name
		FROM store_request sr
		JOIN store_item si ON sr.item_id = si.id
		JOIN "user" u ON sr.supplier_id = u.id
		WHERE TRUE`
	var args []interface{}

	if filter.SupplierID != "" {
		args = append(args, filter.SupplierID)
		query += " AND sr.supplier_id = $1"
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, pq.Array(statuses))
		query += " AND sr.status = ANY($" + strconv.Itoa(len(args)) + ")"
	}
	query += " ORDER BY sr.requested_at DESC"

	var rows []requestInfoRow
	if err := sqlx.SelectContext(ctx, repo.queryer(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying store requests")
	}
	infos := make([]store.RequestInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, row.unpack())
	}
	return infos, nil
}

func (repo StoreRepository) QueryReceivedRequests(ctx context.Context, exec ...core.DBExecutor) ([]store.ReceivedRequest, error) {
	type receivedRow struct {
		requestInfoRow
		PaymentStatus    null.String `db:"payment_status"`
		PaymentMethod    null.String `db:"payment_method"`
		PaymentReference null.String `db:"payment_reference"`
	}

	var rows []receivedRow
	err := sqlx.SelectContext(ctx, repo.queryer(exec), &rows, `
		SELECT sr.id, sr.storekeeper_id, sr.item_id, sr.supplier_id, sr.quantity_requested,
		       sr.total_cost, sr.status, sr.requested_at,
		       si.item_name, si.cost AS cost_per_item, u.name AS supplier_name,
		       sp.status AS payment_status, sp.payment_method, sp.payment_reference
		FROM store_request sr
		JOIN store_item si ON sr.item_id = si.id
		JOIN "user" u ON sr.supplier_id = u.id
		LEFT JOIN supplier_payment sp ON sr.id = sp.request_id
		WHERE sr.status = $1
		ORDER BY sr.requested_at DESC`, string(store.RequestReceived))
	if err != nil {
		return nil, errors.Wrap(err, "querying received requests")
	}

	received := make([]store.ReceivedRequest, 0, len(rows))
	for _, row := range rows {
		received = append(received, store.ReceivedRequest{
			RequestInfo:      row.requestInfoRow.unpack(),
			PaymentStatus:    row.PaymentStatus,
			PaymentMethod:    row.PaymentMethod,
			PaymentReference: row.PaymentReference,
		})
	}
	return received, nil
}

func (repo StoreRepository) TransitionRequest(ctx context.Context, id string, from, to store.RequestStatus, supplierID string, exec ...core.DBExecutor) (int64, error) {
	query := `UPDATE store_request SET status = $1 WHERE id = $2 AND status = $3`
	args := []interface{}{string(to), id, string(from)}
	if supplierID != "" {
		args = append(args, supplierID)
		query += " AND supplier_id = $4"
	}

	res, err := repo.getExec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "transitioning store request")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "transitioning store request")
	}
	return affected, nil
}

// Payments

type paymentRow struct {
	ID               string          `db:"id"`
	RequestID        string          `db:"request_id"`
	SupplierID       string          `db:"supplier_id"`
	TotalCost        decimal.Decimal `db:"total_cost"`
	PaymentMethod    string          `db:"payment_method"`
	PaymentReference string          `db:"payment_reference"`
	Status           string          `db:"status"`
	PaidAt           time.Time       `db:"paid_at"`
	ConfirmedAt      null.Time       `db:"confirmed_at"`
}

func (r paymentRow) unpack() store.SupplierPayment {
	return store.SupplierPayment{
		ID:               r.ID,
		RequestID:        r.RequestID,
		SupplierID:       r.SupplierID,
		TotalCost:        r.TotalCost,
		PaymentMethod:    store.PaymentMethod(r.PaymentMethod),
		PaymentReference: r.PaymentReference,
		Status:           store.PaymentStatus(r.Status),
		PaidAt:           r.PaidAt,
		ConfirmedAt:      r.ConfirmedAt,
	}
}

func (repo StoreRepository) CreatePayment(ctx context.Context, p store.SupplierPayment, exec ...core.DBExecutor) (store.SupplierPayment, error) {
	p.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx, `
		INSERT INTO supplier_payment (id, request_id, supplier_id, total_cost, payment_method, payment_reference, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.RequestID, p.SupplierID, p.TotalCost,
		string(p.PaymentMethod), p.PaymentReference, string(p.Status), p.PaidAt.UTC())
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
			return store.SupplierPayment{}, store.ErrDuplicatePayment
		}
		return store.SupplierPayment{}, errors.Wrap(err, "inserting supplier payment")
	}
	return p, nil
}

func (repo StoreRepository) QueryPaymentsBySupplier(ctx context.Context, supplierID string, exec ...core.DBExecutor) ([]store.SupplierPayment, error) {
	var rows []paymentRow
	err := sqlx.SelectContext(ctx, repo.queryer(exec), &rows, `
		SELECT id, request_id, supplier_id, total_cost, payment_method, payment_reference, status, paid_at, confirmed_at
		FROM supplier_payment WHERE supplier_id = $1
		ORDER BY paid_at DESC`, supplierID)
	if err != nil {
		return nil, errors.Wrap(err, "querying supplier payments")
	}
	payments := make([]store.SupplierPayment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.unpack())
	}
	return payments, nil
}

func (repo StoreRepository) ConfirmPayment(ctx context.Context, paymentID string, confirmedAt time.Time, exec ...core.DBExecutor) (int64, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `
		UPDATE supplier_payment SET status = $1, confirmed_at = $2 WHERE id = $3 AND status = $4`,
		string(store.PaymentConfirmed), confirmedAt.UTC(), paymentID, string(store.PaymentPaid))
	if err != nil {
		return 0, errors.Wrap(err, "confirming payment")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "confirming payment")
	}
	return affected, nil
}

func (repo StoreRepository) QueryPaymentOverview(ctx context.Context, exec ...core.DBExecutor) ([]store.PaymentOverview, error) {
	type overviewRow struct {
		SupplierName      null.String     `db:"supplier_name"`
		ItemName          string          `db:"item_name"`
		QuantityRequested int             `db:"quantity_requested"`
		RequestStatus     string          `db:"request_status"`
		TotalCost         decimal.Decimal `db:"total_cost"`
		PaymentMethod     string          `db:"payment_method"`
		PaymentStatus     string          `db:"payment_status"`
	}

	var rows []overviewRow
	err := sqlx.SelectContext(ctx, repo.queryer(exec), &rows, `
		SELECT u.name AS supplier_name, si.item_name, sr.quantity_requested, sr.status AS request_status,
		       sp.total_cost, sp.payment_method, sp.status AS payment_status
		FROM "user" u
		JOIN store_request sr ON u.id = sr.supplier_id
		JOIN store_item si ON sr.item_id = si.id
		JOIN supplier_payment sp ON sr.id = sp.request_id
		ORDER BY sp.paid_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying payment overview")
	}

	overview := make([]store.PaymentOverview, 0, len(rows))
	for _, row := range rows {
		overview = append(overview, store.PaymentOverview{
			SupplierName:      row.SupplierName.String,
			ItemName:          row.ItemName,
			QuantityRequested: row.QuantityRequested,
			RequestStatus:     store.RequestStatus(row.RequestStatus),
			TotalCost:         row.TotalCost,
			PaymentMethod:     store.PaymentMethod(row.PaymentMethod),
			PaymentStatus:     store.PaymentStatus(row.PaymentStatus),
		})
	}
	return overview, nil
}

func (repo StoreRepository) GetDashboard(ctx context.Context, exec ...core.DBExecutor) (store.Dashboard, error) {
	var dash store.Dashboard
	err := repo.getExec(exec).QueryRowContext(ctx, `
		SELECT (SELECT COUNT(DISTINCT category) FROM store_item),
		       (SELECT COUNT(*) FROM store_item),
		       (SELECT COUNT(*) FROM store_item WHERE quantity <= $1),
		       (SELECT COUNT(*) FROM store_request WHERE status = $2)`,
		store.LowStockThreshold, string(store.RequestPending),
	).Scan(&dash.TotalCategories, &dash.TotalItems, &dash.LowStockAlerts, &dash.PendingRequests)
	if err != nil {
		return store.Dashboard{}, errors.Wrap(err, "querying dashboard")
	}
	return dash, nil
}
