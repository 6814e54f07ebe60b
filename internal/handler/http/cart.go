package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/service"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/httputil"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/validator"
)

// CartHandler handles HTTP requests for register cart sessions.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// SetCartRequest is the JSON request body replacing a cart's lines.
type SetCartRequest struct {
	Items []CheckoutItemRequest `json:"items" validate:"dive"`
}

// GetCart handles GET /api/v1/carts/{sessionID}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, cart)
}

// SetCart handles PUT /api/v1/carts/{sessionID}
func (h *CartHandler) SetCart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SetCartRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.SetCart(r.Context(), chi.URLParam(r, "sessionID"), toCheckoutLines(req.Items))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, cart)
}

// ClearCart handles DELETE /api/v1/carts/{sessionID}
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Checkout handles POST /api/v1/carts/{sessionID}/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req PaymentRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sale, err := h.service.CheckoutCart(r.Context(), chi.URLParam(r, "sessionID"), req.input(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, checkoutResponse{Success: true, Sale: sale})
}
