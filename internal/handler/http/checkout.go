package http

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/service"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/httputil"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/validator"
)

// IdempotencyKeyHeader lets a register retry a checkout without selling twice.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// CheckoutHandler handles HTTP requests for register sales.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CheckoutItemRequest is one requested line.
type CheckoutItemRequest struct {
	SKU      string `json:"sku" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"required,gte=1,lte=100000"`
}

// PaymentRequest carries the payment and delivery details of a sale.
type PaymentRequest struct {
	PaymentMethod   string           `json:"paymentMethod" validate:"required"`
	CashReceived    *decimal.Decimal `json:"cashReceived"`
	UserID          *string          `json:"userId" validate:"omitempty,max=64"`
	ShippingMethod  string           `json:"shippingMethod"`
	ShippingAddress *domain.Address  `json:"shippingAddress"`
	Notes           string           `json:"notes" validate:"max=2000"`
}

// CheckoutRequest is the JSON request body for a checkout.
type CheckoutRequest struct {
	Items []CheckoutItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentRequest
}

func (p PaymentRequest) input(r *http.Request) service.CheckoutInput {
	return service.CheckoutInput{
		PaymentMethod:   domain.PaymentMethod(p.PaymentMethod),
		CashReceived:    p.CashReceived,
		UserID:          p.UserID,
		ShippingMethod:  domain.ShippingMethod(p.ShippingMethod),
		ShippingAddress: p.ShippingAddress,
		Notes:           p.Notes,
		IdempotencyKey:  r.Header.Get(IdempotencyKeyHeader),
	}
}

func toCheckoutLines(items []CheckoutItemRequest) []service.CheckoutLine {
	lines := make([]service.CheckoutLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, service.CheckoutLine{SKU: it.SKU, Quantity: it.Quantity})
	}
	return lines
}

// checkoutResponse flattens the sale next to the success flag.
type checkoutResponse struct {
	Success bool `json:"success"`
	*domain.Sale
}

// --- Handlers ---

// Checkout handles POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CheckoutRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	in := req.input(r)
	in.Items = toCheckoutLines(req.Items)

	sale, err := h.service.Checkout(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, checkoutResponse{Success: true, Sale: sale})
}
