package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func claimsMiddleware(allow func(Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if allow(claims) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func storekeeperMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.IsStorekeeper || c.IsAdmin })
}

func supplierMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.IsSupplier })
}

func financeMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.IsFinance || c.IsAdmin })
}

func studentMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.IsStudent })
}

// feedbackRecipientMiddleware admits the staff roles students may address feedback to.
func feedbackRecipientMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool {
		return c.IsTutor || c.IsLibrarian || c.IsFinance || c.IsHOD
	})
}
