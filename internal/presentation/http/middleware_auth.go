package httppresentation

import (
	"net/http"
	"strings"

	"github.com/ecommerce-mvp/shop/internal/application"
	"github.com/ecommerce-mvp/shop/internal/domain/identity"
	"github.com/ecommerce-mvp/shop/internal/observability"
	"github.com/ecommerce-mvp/shop/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const bearerPrefix = "Bearer "

// withAuth resolves the caller from the bearer token and binds it to the
// request context. Requests without a valid token never reach next.
func (h *Handler) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if !strings.HasPrefix(header, bearerPrefix) || token == "" {
			writeError(w, http.StatusUnauthorized, application.KindUnauthorized, "No token provided")
			return
		}

		caller, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			logctx.FromOr(r.Context(), h.log).Warn("auth_rejected",
				observability.F("route", routeFromContext(r.Context())),
				observability.F("error", err.Error()),
			)
			writeError(w, http.StatusUnauthorized, application.KindUnauthorized, "Invalid token")
			return
		}

		ctx := identity.WithIdentity(r.Context(), caller)
		ctx = logctx.Enrich(ctx, observability.F("owner_id", caller.ID))
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("enduser.id", caller.ID))
		next(w, r.WithContext(ctx))
	}
}
