package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/oraclelc/backend/core/store"
	"github.com/oraclelc/backend/core/user"
)

type storeApi struct {
	users *user.Service
	svc   *store.Service
}

func registerStoreAPI(g *echo.Group, jwt echo.MiddlewareFunc, users *user.Service, svc *store.Service) {
	api := storeApi{users: users, svc: svc}

	// storekeeper endpoints
	sg := g.Group("/store", jwt, storekeeperMiddleware())
	sg.GET("/dashboard", api.dashboard)
	sg.POST("/items", api.createItem)
	sg.GET("/items", api.queryItems)
	sg.GET("/items/categories", api.itemsByCategory)
	sg.GET("/suppliers", api.querySuppliers)
	sg.POST("/requests", api.createRequest)
	sg.GET("/requests", api.queryRequests)
	sg.GET("/requests/received", api.receivedRequests)
	sg.PUT("/requests/:id/receive", api.receiveRequest)

	// supplier endpoints
	pg := g.Group("/supplier", jwt, supplierMiddleware())
	pg.GET("/requests", api.supplierRequests)
	pg.PUT("/requests/:id", api.decideRequest)
	pg.GET("/payments", api.supplierPayments)
	pg.PUT("/payments/:id/confirm", api.confirmPayment)

	// finance endpoints
	fg := g.Group("/finance", jwt, financeMiddleware())
	fg.GET("/requests/received", api.receivedRequests)
	fg.POST("/payments", api.pay)

	// admin console endpoints
	ag := g.Group("/admin/store", jwt, adminMiddleware())
	ag.GET("/suppliers", api.querySuppliers)
	ag.GET("/payments", api.paymentOverview)
}

// storeHTTPError maps store service errors to HTTP responses.
// "not found or not authorized" stays a 404 so request ids cannot be probed.
func storeHTTPError(err error) error {
	switch errors.Cause(err) {
	case store.ErrItemNotFound, store.ErrRequestNotFound,
		store.ErrRequestNotFoundOrUnauthorized, store.ErrPaymentNotFoundOrConfirmed:
		return echo.NewHTTPError(http.StatusNotFound, errors.Cause(err).Error())
	case store.ErrRequestNotApproved, store.ErrRequestNotReceived,
		store.ErrDuplicatePayment, store.ErrSupplierMismatch:
		return echo.NewHTTPError(http.StatusBadRequest, errors.Cause(err).Error())
	}
	return err
}

// Storekeeper handlers

func (api *storeApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *storeApi) createItem(ctx echo.Context) error {
	var data store.NewItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	item, err := api.svc.CreateItem(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating item")
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *storeApi) queryItems(ctx echo.Context) error {
	items, err := api.svc.Items(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying items")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *storeApi) itemsByCategory(ctx echo.Context) error {
	grouped, err := api.svc.ItemsByCategory(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying items by category")
	}
	return ctx.JSON(http.StatusOK, grouped)
}

func (api *storeApi) querySuppliers(ctx echo.Context) error {
	active := true
	suppliers, err := api.users.Query(ctx.Request().Context(), &user.QueryFilter{
		Roles:    []string{user.RoleSupplier},
		IsActive: &active,
	})
	if err != nil {
		return errors.Wrap(err, "querying suppliers")
	}
	if suppliers == nil {
		suppliers = []user.User{}
	}
	return ctx.JSON(http.StatusOK, suppliers)
}

func (api *storeApi) createRequest(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data store.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	data.StorekeeperID = claims.Subject
	if err := data.Validate(); err != nil {
		return err
	}

	req, err := api.svc.RequestItem(ctx.Request().Context(), data)
	if err != nil {
		return storeHTTPError(err)
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *storeApi) queryRequests(ctx echo.Context) error {
	var filter store.RequestFilter
	if status := store.RequestStatus(ctx.QueryParam("status")); status != "" {
		if !status.IsValid() {
			return ctx.JSON(http.StatusOK, []store.RequestInfo{})
		}
		filter.Statuses = []store.RequestStatus{status}
	}

	reqs, err := api.svc.Requests(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *storeApi) receivedRequests(ctx echo.Context) error {
	reqs, err := api.svc.ReceivedRequests(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying received requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *storeApi) receiveRequest(ctx echo.Context) error {
	req, err := api.svc.Receive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return storeHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, req)
}

// Supplier handlers

func (api *storeApi) supplierRequests(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := store.RequestFilter{SupplierID: claims.Subject}
	if status := store.RequestStatus(ctx.QueryParam("status")); status != "" {
		if !status.IsValid() {
			return ctx.JSON(http.StatusOK, []store.RequestInfo{})
		}
		filter.Statuses = []store.RequestStatus{status}
	}

	reqs, err := api.svc.Requests(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying supplier requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *storeApi) decideRequest(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data store.RequestDecision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RequestDecision")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.Decide(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Status); err != nil {
		return storeHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": data.Status})
}

func (api *storeApi) supplierPayments(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	payments, err := api.svc.PaymentsBySupplier(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying supplier payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *storeApi) confirmPayment(ctx echo.Context) error {
	if err := api.svc.ConfirmPayment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return storeHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": store.PaymentConfirmed})
}

// Finance handlers

func (api *storeApi) pay(ctx echo.Context) error {
	var data store.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	payment, err := api.svc.Pay(ctx.Request().Context(), data)
	if err != nil {
		return storeHTTPError(err)
	}
	return ctx.JSON(http.StatusCreated, payment)
}

// Admin handlers

func (api *storeApi) paymentOverview(ctx echo.Context) error {
	overview, err := api.svc.PaymentOverview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying payment overview")
	}
	return ctx.JSON(http.StatusOK, overview)
}
