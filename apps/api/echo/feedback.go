package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/oraclelc/backend/core/feedback"
	"github.com/oraclelc/backend/core/user"
)

type feedbackApi struct {
	users *user.Service
	svc   *feedback.Service
}

func registerFeedbackAPI(g *echo.Group, jwt echo.MiddlewareFunc, users *user.Service, svc *feedback.Service) {
	api := feedbackApi{users: users, svc: svc}

	fg := g.Group("/feedback", jwt)

	// student endpoints
	fg.GET("/recipients", api.recipients, studentMiddleware())
	fg.POST("", api.submit, studentMiddleware())
	fg.GET("/mine", api.mine, studentMiddleware())

	// staff endpoints
	fg.GET("/pending", api.pending, feedbackRecipientMiddleware())
	fg.PUT("/:id/reply", api.reply, feedbackRecipientMiddleware())
}

func feedbackHTTPError(err error) error {
	switch errors.Cause(err) {
	case feedback.ErrStudentNotFound, feedback.ErrRecipientNotFound, feedback.ErrNotFoundOrReplied:
		return echo.NewHTTPError(http.StatusNotFound, errors.Cause(err).Error())
	}
	return err
}

// Student handlers

func (api *feedbackApi) recipients(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	dir, err := api.svc.Recipients(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return feedbackHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, dir)
}

func (api *feedbackApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data feedback.NewFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	data.StudentID = claims.Subject
	if err := data.Validate(); err != nil {
		return err
	}

	fb, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return feedbackHTTPError(err)
	}
	return ctx.JSON(http.StatusCreated, fb)
}

func (api *feedbackApi) mine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	infos, err := api.svc.StudentFeedback(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying student feedback")
	}
	return ctx.JSON(http.StatusOK, infos)
}

// Staff handlers

func (api *feedbackApi) pending(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	infos, err := api.svc.PendingFor(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying pending feedback")
	}
	return ctx.JSON(http.StatusOK, infos)
}

func (api *feedbackApi) reply(ctx echo.Context) error {
	replier, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data feedback.Reply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reply")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.Answer(ctx.Request().Context(), ctx.Param("id"), replier, data.Reply); err != nil {
		return feedbackHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": feedback.StatusReplied})
}
