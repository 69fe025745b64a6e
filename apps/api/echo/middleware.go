package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/owner"
	"github.com/trezcool/kodi/core/user"
)

// managerMiddleware lets through managers holding any of `roles` (any manager when empty).
func managerMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsManager && claims.hasAnyRole(roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware lets through managers and owners; tenants only see their own portal.
func staffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsManager || claims.IsOwner {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// accessControl resolves what the context user may see.
type accessControl struct {
	users  user.Service
	owners owner.Service
}

func newAccessControl(users user.Service, owners owner.Service) *accessControl {
	return &accessControl{users: users, owners: owners}
}

func (ac *accessControl) currentUser(ctx echo.Context) (user.User, error) {
	return getContextUser(ctx, ac.users)
}

// propertyScope returns the IDs of the properties visible to the context user.
// nil means every property (managers); tenants and unlinked owners get an empty scope.
func (ac *accessControl) propertyScope(ctx echo.Context) ([]string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context claims")
	}
	if claims.IsManager {
		return nil, nil
	}
	if !claims.IsOwner || claims.OwnerID == "" {
		return []string{}, nil
	}

	ids, err := ac.owners.PropertyIDs(ctx.Request().Context(), claims.OwnerID)
	if err != nil {
		if core.IsNotFound(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "listing owner properties")
	}
	return ids, nil
}

// checkProperty returns errHttpNotFound when propertyID is out of the context user's scope.
func (ac *accessControl) checkProperty(ctx echo.Context, propertyID string) error {
	scope, err := ac.propertyScope(ctx)
	if err != nil {
		return err
	}
	if !core.InScope(propertyID, scope) {
		return errHttpNotFound
	}
	return nil
}

// narrowScope restricts a requested property filter to the visible scope.
// An empty `requested` keeps the whole scope.
func narrowScope(scope, requested []string) []string {
	if len(requested) == 0 {
		return scope
	}
	narrowed := make([]string, 0, len(requested))
	for _, id := range requested {
		if core.InScope(id, scope) {
			narrowed = append(narrowed, id)
		}
	}
	return narrowed
}
