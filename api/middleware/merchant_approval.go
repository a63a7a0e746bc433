package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/novatra-store/novatra-backend/api/responses"
	"github.com/novatra-store/novatra-backend/pkg/db/models"
	pkgerrors "github.com/novatra-store/novatra-backend/pkg/errors"
	"github.com/novatra-store/novatra-backend/pkg/logger"
)

type accountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// RequireApprovedMerchant blocks merchants whose account an admin has not yet
// approved. Admins pass through so they can act on any catalog.
func RequireApprovedMerchant(accounts accountFinder, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if RoleFromContext(ctx).IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}

			accountID := AccountIDFromContext(ctx)
			if accountID == uuid.Nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			account, err := accounts.FindByID(ctx, accountID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "account lookup failed"))
				return
			}
			if !account.Role.IsMerchant() || !account.IsApproved {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotApproved, "merchant account awaiting approval"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
