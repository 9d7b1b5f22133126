package store

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/oraclelc/backend/core"
	"github.com/oraclelc/backend/core/user"
)

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrRequestNotFound = errors.New("request not found")
	// ErrRequestNotFoundOrUnauthorized deliberately conflates the two cases:
	// a supplier must not learn whether a foreign request id exists.
	ErrRequestNotFoundOrUnauthorized = errors.New("request not found or not authorized to update")
	ErrRequestNotApproved            = errors.New("only approved requests can be received")
	ErrRequestNotReceived            = errors.New("only received requests can be paid for")
	ErrDuplicatePayment              = errors.New("payment for this request has already been made")
	// ErrPaymentNotFoundOrConfirmed keeps "missing" and "already confirmed" merged;
	// confirming twice is a no-op, never a second state change.
	ErrPaymentNotFoundOrConfirmed = errors.New("payment not found or already confirmed")
	ErrSupplierMismatch           = errors.New("supplier does not match the request")
)

type (
	Repository interface {
		CreateItem(ctx context.Context, item StoreItem, exec ...core.DBExecutor) (StoreItem, error)
		GetItem(ctx context.Context, id string, exec ...core.DBExecutor) (StoreItem, error)
		QueryItems(ctx context.Context, exec ...core.DBExecutor) ([]StoreItem, error)
		// IncrementItemQuantity adds by to the item's on-hand quantity.
		// by is always positive; nothing in the workflow decrements stock.
		IncrementItemQuantity(ctx context.Context, itemID string, by int, exec ...core.DBExecutor) error

		CreateRequest(ctx context.Context, req StoreRequest, exec ...core.DBExecutor) (StoreRequest, error)
		GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (StoreRequest, error)
		QueryRequests(ctx context.Context, filter RequestFilter, exec ...core.DBExecutor) ([]RequestInfo, error)
		QueryReceivedRequests(ctx context.Context, exec ...core.DBExecutor) ([]ReceivedRequest, error)
		// TransitionRequest conditionally moves a request from one status to another.
		// supplierID, when non-empty, additionally scopes the update to that supplier's
		// rows. Returns the number of rows affected; 0 means no row matched the
		// id+status(+supplier) condition and no state was changed.
		TransitionRequest(ctx context.Context, id string, from, to RequestStatus, supplierID string, exec ...core.DBExecutor) (int64, error)

		// CreatePayment inserts a payment row; a unique violation on request_id
		// surfaces as ErrDuplicatePayment.
		CreatePayment(ctx context.Context, p SupplierPayment, exec ...core.DBExecutor) (SupplierPayment, error)
		QueryPaymentsBySupplier(ctx context.Context, supplierID string, exec ...core.DBExecutor) ([]SupplierPayment, error)
		// ConfirmPayment moves a payment from paid to confirmed. Returns the number
		// of rows affected; 0 means not found or already confirmed.
		ConfirmPayment(ctx context.Context, paymentID string, confirmedAt time.Time, exec ...core.DBExecutor) (int64, error)
		QueryPaymentOverview(ctx context.Context, exec ...core.DBExecutor) ([]PaymentOverview, error)

		GetDashboard(ctx context.Context, exec ...core.DBExecutor) (Dashboard, error)
	}

	// UserDirectory resolves users for notifications; satisfied by user.Service.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		db      core.DB
		repo    Repository
		users   UserDirectory
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(db core.DB, repo Repository, users UserDirectory, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		users:   users,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *Service) CreateItem(ctx context.Context, ni NewItem) (StoreItem, error) {
	item := StoreItem{
		ItemName:    ni.ItemName,
		Category:    ni.Category,
		Cost:        ni.Cost,
		Quantity:    ni.Quantity,
		Description: ni.Description,
	}
	return svc.repo.CreateItem(ctx, item)
}

func (svc *Service) Items(ctx context.Context) ([]StoreItem, error) {
	return svc.repo.QueryItems(ctx)
}

// ItemsByCategory groups item projections under their category.
func (svc *Service) ItemsByCategory(ctx context.Context) (map[string][]CategoryItem, error) {
	items, err := svc.repo.QueryItems(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]CategoryItem)
	for _, item := range items {
		grouped[item.Category] = append(grouped[item.Category], CategoryItem{
			ItemName:    item.ItemName,
			Quantity:    item.Quantity,
			Description: item.Description,
		})
	}
	return grouped, nil
}

func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	return svc.repo.GetDashboard(ctx)
}

// RequestItem records a storekeeper's request for quantity units of an item
// from a supplier. The total cost is frozen at the item's current unit cost.
func (svc *Service) RequestItem(ctx context.Context, nr NewRequest) (StoreRequest, error) {
	item, err := svc.repo.GetItem(ctx, nr.ItemID)
	if err != nil {
		return StoreRequest{}, err
	}

	req := StoreRequest{
		StorekeeperID:     nr.StorekeeperID,
		ItemID:            nr.ItemID,
		SupplierID:        nr.SupplierID,
		QuantityRequested: nr.QuantityRequested,
		TotalCost:         item.Cost.Mul(decimal.NewFromInt(int64(nr.QuantityRequested))),
		Status:            RequestPending,
		RequestedAt:       time.Now().UTC(),
	}
	req, err = svc.repo.CreateRequest(ctx, req)
	if err != nil {
		return StoreRequest{}, err
	}

	svc.notify(ctx, req.SupplierID, "New store request",
		fmt.Sprintf("A request for %d x %s (total %s) awaits your approval.",
			req.QuantityRequested, item.ItemName, req.TotalCost.StringFixed(2)))
	return req, nil
}

// Decide applies a supplier's approve/reject verdict on their own pending request.
func (svc *Service) Decide(ctx context.Context, requestID, supplierID string, decision RequestStatus) error {
	if !RequestPending.CanTransitionTo(decision) {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status. Use 'approved' or 'rejected'"})
	}
	affected, err := svc.repo.TransitionRequest(ctx, requestID, RequestPending, decision, supplierID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRequestNotFoundOrUnauthorized
	}
	return nil
}

// Receive marks an approved request received and credits the item's stock.
// The status transition and the stock increment commit together or not at all.
func (svc *Service) Receive(ctx context.Context, requestID string) (StoreRequest, error) {
	req, err := svc.repo.GetRequest(ctx, requestID)
	if err != nil {
		return StoreRequest{}, err
	}
	if req.Status != RequestApproved {
		return StoreRequest{}, ErrRequestNotApproved
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return StoreRequest{}, errors.Wrap(err, "beginning receive transaction")
	}
	defer func() { _ = tx.Rollback() }()

	affected, err := svc.repo.TransitionRequest(ctx, requestID, RequestApproved, RequestReceived, "", tx)
	if err != nil {
		return StoreRequest{}, err
	}
	if affected == 0 {
		// lost a race with a concurrent receive
		return StoreRequest{}, ErrRequestNotApproved
	}
	if err = svc.repo.IncrementItemQuantity(ctx, req.ItemID, req.QuantityRequested, tx); err != nil {
		return StoreRequest{}, err
	}

	if err = tx.Commit(); err != nil {
		return StoreRequest{}, errors.Wrap(err, "committing receive transaction")
	}

	req.Status = RequestReceived
	return req, nil
}

func (svc *Service) Requests(ctx context.Context, filter RequestFilter) ([]RequestInfo, error) {
	return svc.repo.QueryRequests(ctx, filter)
}

func (svc *Service) ReceivedRequests(ctx context.Context) ([]ReceivedRequest, error) {
	return svc.repo.QueryReceivedRequests(ctx)
}

// Pay records finance's settlement against a received request.
func (svc *Service) Pay(ctx context.Context, np NewPayment) (SupplierPayment, error) {
	req, err := svc.repo.GetRequest(ctx, np.RequestID)
	if err != nil {
		return SupplierPayment{}, err
	}
	if req.Status != RequestReceived {
		return SupplierPayment{}, ErrRequestNotReceived
	}
	if req.SupplierID != np.SupplierID {
		return SupplierPayment{}, ErrSupplierMismatch
	}
	if !np.TotalCost.IsZero() && !np.TotalCost.Equal(req.TotalCost) {
		return SupplierPayment{}, core.NewValidationError(nil,
			core.FieldError{Field: "total_cost", Error: "total cost does not match the request"})
	}

	payment := SupplierPayment{
		RequestID:        np.RequestID,
		SupplierID:       np.SupplierID,
		TotalCost:        req.TotalCost,
		PaymentMethod:    np.PaymentMethod,
		PaymentReference: np.PaymentReference,
		Status:           PaymentPaid,
		PaidAt:           time.Now().UTC(),
	}
	payment, err = svc.repo.CreatePayment(ctx, payment)
	if err != nil {
		return SupplierPayment{}, err
	}

	svc.notify(ctx, payment.SupplierID, "Payment recorded",
		fmt.Sprintf("A %s payment of %s (ref %s) has been recorded for request %s. Please confirm receipt.",
			payment.PaymentMethod, payment.TotalCost.StringFixed(2), payment.PaymentReference, payment.RequestID))
	return payment, nil
}

// ConfirmPayment transitions a payment from paid to confirmed.
func (svc *Service) ConfirmPayment(ctx context.Context, paymentID string) error {
	affected, err := svc.repo.ConfirmPayment(ctx, paymentID, time.Now().UTC())
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFoundOrConfirmed
	}
	return nil
}

func (svc *Service) PaymentsBySupplier(ctx context.Context, supplierID string) ([]SupplierPayment, error) {
	return svc.repo.QueryPaymentsBySupplier(ctx, supplierID)
}

func (svc *Service) PaymentOverview(ctx context.Context) ([]PaymentOverview, error) {
	return svc.repo.QueryPaymentOverview(ctx)
}

func (svc *Service) notify(ctx context.Context, userID, subject, body string) {
	if svc.users == nil || svc.mailSvc == nil {
		return
	}
	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil || usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: subject,
		BodyStr: body,
	})
}
