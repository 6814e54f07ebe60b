package domain

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

// Codes of rejected checkouts.
const (
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeUnknownSKU        = "UNKNOWN_SKU"
	CodeInsufficientCash  = "INSUFFICIENT_CASH"
)

// InsufficientStockError reports a line asking for more than is on hand.
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return apperrors.ErrBusinessRule }

// UnknownSKUError reports a line whose SKU is not in the catalog.
type UnknownSKUError struct {
	SKU string
}

func (e *UnknownSKUError) Error() string {
	return fmt.Sprintf("unknown sku %s", e.SKU)
}

func (e *UnknownSKUError) Unwrap() error { return apperrors.ErrBusinessRule }

// InsufficientCashError reports cash tendered below the total.
type InsufficientCashError struct {
	Total        decimal.Decimal
	CashReceived decimal.Decimal
}

func (e *InsufficientCashError) Error() string {
	return fmt.Sprintf("cash received %s is less than total %s", e.CashReceived.StringFixed(MoneyPlaces), e.Total.StringFixed(MoneyPlaces))
}

func (e *InsufficientCashError) Unwrap() error { return apperrors.ErrBusinessRule }

// ErrInsufficientStock builds the client-facing error for a stock shortfall.
// Available is -1 when the shortfall was detected by the conditional update
// and the concurrent level is unknown.
func ErrInsufficientStock(sku string, requested, available int) *apperrors.AppError {
	details := map[string]any{"sku": sku, "requested": requested}
	if available >= 0 {
		details["available"] = available
	}
	return apperrors.BusinessRule(CodeInsufficientStock, http.StatusConflict,
		fmt.Sprintf("not enough stock for %s", sku),
		&InsufficientStockError{SKU: sku, Requested: requested, Available: available},
	).WithDetails(details)
}

// ErrUnknownSKU builds the client-facing error for a SKU missing from the catalog.
func ErrUnknownSKU(sku string) *apperrors.AppError {
	return apperrors.BusinessRule(CodeUnknownSKU, http.StatusNotFound,
		fmt.Sprintf("item %s does not exist", sku),
		&UnknownSKUError{SKU: sku},
	).WithDetails(map[string]any{"sku": sku})
}

// ErrInsufficientCash builds the client-facing error for short cash.
func ErrInsufficientCash(total, cashReceived decimal.Decimal) *apperrors.AppError {
	return apperrors.BusinessRule(CodeInsufficientCash, http.StatusUnprocessableEntity,
		"cash received is less than the order total",
		&InsufficientCashError{Total: total, CashReceived: cashReceived},
	).WithDetails(map[string]any{
		"total":        total.StringFixed(MoneyPlaces),
		"cashReceived": cashReceived.StringFixed(MoneyPlaces),
	})
}
