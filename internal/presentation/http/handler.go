package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ecommerce-mvp/shop/internal/application"
	appbranch "github.com/ecommerce-mvp/shop/internal/application/branch"
	appcart "github.com/ecommerce-mvp/shop/internal/application/cart"
	"github.com/ecommerce-mvp/shop/internal/domain/branch"
	"github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/domain/identity"
	"github.com/ecommerce-mvp/shop/internal/observability"
	"github.com/ecommerce-mvp/shop/internal/observability/logctx"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	maxBodyBytes         = 1 << 20
)

// UseCases are the operations served over HTTP.
type UseCases struct {
	AddLine      application.UseCase[appcart.AddLineInput, *cart.Cart]
	RemoveLine   application.UseCase[appcart.RemoveLineInput, *cart.Cart]
	PlaceOrder   application.UseCase[appcart.PlaceOrderInput, *cart.Cart]
	GetCart      application.UseCase[appcart.GetCartInput, *cart.Cart]
	ListBranches application.UseCase[appbranch.ListBranchesInput, []branch.Branch]
}

type Handler struct {
	uc          UseCases
	verifier    identity.Verifier
	corsOrigins []string
	log         observability.Logger
	tel         observability.Observability

	httpRequests observability.Counter   // http_requests_total{method,route,status}
	httpDuration observability.Histogram // http_request_duration_seconds{method,route}
}

func NewHandler(uc UseCases, verifier identity.Verifier, corsOrigins []string, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		uc:           uc,
		verifier:     verifier,
		corsOrigins:  corsOrigins,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
		httpRequests: tel.Metrics().Counter(observability.MHTTPRequests),
		httpDuration: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace → request logger → HTTP metrics → access log → [auth] → handler
	h.muxHandle(mux, http.MethodGet, "/api/v1/orders/cart", h.withAuth(h.handleGetCart))
	h.muxHandle(mux, http.MethodPost, "/api/v1/orders/cart/add", h.withAuth(h.handleAddToCart))
	h.muxHandle(mux, http.MethodPost, "/api/v1/orders/cart/remove", h.withAuth(h.handleRemoveFromCart))
	h.muxHandle(mux, http.MethodPost, "/api/v1/orders/create", h.withAuth(h.handleCreateOrder))
	h.muxHandle(mux, http.MethodGet, "/api/v1/nova-poshta/branches", h.handleListBranches)
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return cors.New(corsOptions(h.corsOrigins)).Handler(mux)
}

// corsOptions allows credentials only for an explicit origin list; browsers refuse
// credentialed responses to a wildcard origin.
func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{headerRequestID},
		AllowCredentials: !slices.Contains(origins, "*"),
	}
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, application.KindInvalidInput, "method not allowed")
			return
		}

		// Store stable route template for low-cardinality labels
		ctx := contextWithRoute(r.Context(), route)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			ObservabilityMiddleware(
				h.log,
				func(r *http.Request) string {
					return r.Header.Get(headerRequestID)
				},
			)(
				h.withHTTPMetrics(
					h.withAccessLog(http.HandlerFunc(handler)),
				),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type removeFromCartRequest struct {
	ProductID string `json:"productId"`
}

type createOrderRequest struct {
	NovaPoshtaBranch string `json:"novaPoshtaBranch"`
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	caller, err := identity.FromContext(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	result, err := h.uc.GetCart.Execute(r.Context(), appcart.GetCartInput{OwnerID: caller.ID})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartView(result))
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	caller, err := identity.FromContext(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, application.KindInvalidInput, err.Error())
		return
	}

	result, err := h.uc.AddLine.Execute(r.Context(), appcart.AddLineInput{
		OwnerID:   caller.ID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartView(result))
}

func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	caller, err := identity.FromContext(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	var req removeFromCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, application.KindInvalidInput, err.Error())
		return
	}

	result, err := h.uc.RemoveLine.Execute(r.Context(), appcart.RemoveLineInput{
		OwnerID:   caller.ID,
		ProductID: req.ProductID,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartView(result))
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := identity.FromContext(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, application.KindInvalidInput, err.Error())
		return
	}

	result, err := h.uc.PlaceOrder.Execute(r.Context(), appcart.PlaceOrderInput{
		OwnerID: caller.ID,
		Branch:  req.NovaPoshtaBranch,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCartView(result))
}

func (h *Handler) handleListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.uc.ListBranches.Execute(r.Context(), appbranch.ListBranchesInput{})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBranchViews(branches))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		if route == "unknown" {
			route = r.URL.Path
		}

		ctxWithSpan, span := h.tel.Tracer().Start(parentCtx, r.Method+" "+route,
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("http.target", r.URL.Path),
			attribute.String("http.user_agent", r.UserAgent()),
		)
		defer span.End()

		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r.WithContext(ctxWithSpan))

		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
		if lrw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(lrw.status))
		}
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		route := routeFromContext(r.Context())
		h.httpRequests.Add(1,
			observability.L("method", r.Method),
			observability.L("route", route),
			observability.L("status", strconv.Itoa(lrw.status)),
		)
		h.httpDuration.Observe(time.Since(start).Seconds(),
			observability.L("method", r.Method),
			observability.L("route", route),
		)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.New("invalid request body: " + strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string           `json:"error"`
	Kind  application.Kind `json:"kind"`
}

func writeError(w http.ResponseWriter, status int, kind application.Kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

var kindStatus = map[application.Kind]int{
	application.KindInvalidInput: http.StatusBadRequest,
	application.KindUnauthorized: http.StatusUnauthorized,
	application.KindNotFound:     http.StatusNotFound,
	application.KindInvalidState: http.StatusBadRequest,
	application.KindConflict:     http.StatusConflict,
	application.KindUpstream:     http.StatusBadGateway,
	application.KindInternal:     http.StatusInternalServerError,
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := application.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		kind, status = application.KindInternal, http.StatusInternalServerError
	}

	msg := err.Error()
	if kind == application.KindInternal {
		logctx.FromOr(r.Context(), h.log).Error("http_internal_error",
			observability.F("route", routeFromContext(r.Context())),
			observability.F("error", err.Error()),
		)
		msg = http.StatusText(http.StatusInternalServerError)
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("error.kind", string(kind)))
	}
	writeError(w, status, kind, msg)
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
