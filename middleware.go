package account

import (
	goerrors "github.com/goliatone/go-errors"
	router "github.com/goliatone/go-router"
)

// ErrAdminRequired rejects a valid session whose user lacks the admin
// role.
var ErrAdminRequired = goerrors.New("administrator role required", goerrors.CategoryAuthz).
	WithTextCode("ACCOUNT_ADMIN_REQUIRED").
	WithCode(goerrors.CodeForbidden)

// RequireSession resolves the session on the incoming request and
// stores it in the request context for downstream handlers. Requests
// without a valid session go to errorHandler.
func RequireSession(resolver SessionResolver, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			session, err := resolver.Resolve(c)
			if err != nil {
				return errorHandler(c, err)
			}

			c.SetContext(WithSessionContext(c.Context(), session))
			return hf(c)
		}
	}
}

// RequireAdmin resolves the session, loads the backing user and lets
// the request through only when the user carries the admin role. The
// loaded user is stored in the request context.
func RequireAdmin(resolver SessionResolver, users Users, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			session, err := resolver.Resolve(c)
			if err != nil {
				return errorHandler(c, err)
			}

			userID, err := requireSession(session)
			if err != nil {
				return errorHandler(c, err)
			}

			user, err := users.GetByID(c.Context(), userID)
			if err != nil {
				return errorHandler(c, ErrUnauthorized)
			}

			if user.Role != RoleAdmin {
				return errorHandler(c, ErrAdminRequired)
			}

			c.SetContext(WithSessionContext(WithContext(c.Context(), user), session))
			return hf(c)
		}
	}
}
