package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/service"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/httputil"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/validator"
)

// FulfillmentHandler handles HTTP requests for the order dashboard.
type FulfillmentHandler struct {
	service *service.FulfillmentService
	logger  *slog.Logger
}

// NewFulfillmentHandler creates a new fulfillment HTTP handler.
func NewFulfillmentHandler(svc *service.FulfillmentService, logger *slog.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		service: svc,
		logger:  logger,
	}
}

// UpdateFieldRequest is the JSON request body for a single-field update.
// Value may be empty to clear the payment date.
type UpdateFieldRequest struct {
	OrderID string `json:"orderId" validate:"required,max=32"`
	Field   string `json:"field" validate:"required"`
	Value   string `json:"value" validate:"max=64"`
}

// ListOrders handles GET /api/v1/fulfillment/orders
func (h *FulfillmentHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q, err := parseOrderQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.service.ListOrders(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, view)
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *FulfillmentHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, order)
}

// Receipt handles GET /api/v1/orders/{id}/receipt
func (h *FulfillmentHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, sale)
}

// UpdateField handles POST /api/v1/orders/update-field
func (h *FulfillmentHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req UpdateFieldRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.UpdateField(r.Context(), req.OrderID, req.Field, req.Value); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Success: true})
}

// parseOrderQuery maps dashboard query parameters to a typed query. Blank
// parameters are treated as absent.
func parseOrderQuery(v url.Values) (domain.OrderQuery, error) {
	var q domain.OrderQuery

	if raw := strings.TrimSpace(v.Get("date")); raw != "" {
		day, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return q, apperrors.Validationf("date must be YYYY-MM-DD, got %q", raw)
		}
		q.Date = &day
	}

	status, err := domain.ParseStatusFilter(v.Get("order_status"))
	if err != nil {
		return q, err
	}
	q.OrderStatus = status

	q.ItemsSearch = optional(v.Get("itemsSearch"))
	q.PaymentMethod = optional(v.Get("paymentMethod"))
	q.ShippingMethod = optional(v.Get("shippingMethod"))
	q.PaymentStatus = optional(v.Get("paymentStatus"))
	return q, nil
}

func optional(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}
