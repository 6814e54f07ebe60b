package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRequest struct {
	SKU      string `json:"sku" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

type saleRequest struct {
	Items         []lineRequest    `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string           `json:"paymentMethod" validate:"required,oneof=Cash Check"`
	CashReceived  *decimal.Decimal `json:"cashReceived" validate:"omitempty,gte=0"`
	Date          string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func validSale() saleRequest {
	return saleRequest{
		Items:         []lineRequest{{SKU: "MUG-01", Quantity: 1}},
		PaymentMethod: "Cash",
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(validSale()))
}

func TestValidate_UsesJSONFieldNamesAndIndexes(t *testing.T) {
	s := validSale()
	s.Items = append(s.Items, lineRequest{SKU: "", Quantity: 0})

	fields := fieldsOf(t, Validate(s))
	assert.Equal(t, "is required", fields["items[1].sku"])
	assert.Equal(t, "must be greater than 0", fields["items[1].quantity"])
}

func TestValidate_EmptyItems(t *testing.T) {
	s := validSale()
	s.Items = []lineRequest{}

	fields := fieldsOf(t, Validate(s))
	assert.Equal(t, "must contain at least 1 entries", fields["items"])
}

func TestValidate_OneOf(t *testing.T) {
	s := validSale()
	s.PaymentMethod = "Barter"

	fields := fieldsOf(t, Validate(s))
	assert.Equal(t, "must be one of: Cash Check", fields["paymentMethod"])
}

func TestValidate_DecimalComparedAsNumber(t *testing.T) {
	s := validSale()
	neg := decimal.RequireFromString("-1.50")
	s.CashReceived = &neg

	fields := fieldsOf(t, Validate(s))
	assert.Equal(t, "must be greater than or equal to 0", fields["cashReceived"])

	pos := decimal.RequireFromString("20.00")
	s.CashReceived = &pos
	assert.NoError(t, Validate(s))
}

func TestValidate_Datetime(t *testing.T) {
	s := validSale()
	s.Date = "15/01/2026"

	fields := fieldsOf(t, Validate(s))
	assert.Contains(t, fields["date"], "2006-01-02")
}

func TestValidationError_ErrorString(t *testing.T) {
	s := validSale()
	s.PaymentMethod = ""
	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'paymentMethod' is required")
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"items":[{"sku":"MUG-01","quantity":2}],"paymentMethod":"Cash","cashReceived":"20.00"}`
	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var dst saleRequest
	require.NoError(t, DecodeAndValidate(r, &dst))
	assert.Equal(t, 2, dst.Items[0].Quantity)
	assert.True(t, dst.CashReceived.Equal(decimal.RequireFromString("20")))
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{"))

	var dst saleRequest
	err := DecodeAndValidate(r, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
