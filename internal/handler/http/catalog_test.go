package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

func TestSearchItems(t *testing.T) {
	s := newTestServer(t)
	s.items.On("Search", mock.Anything, "frog", 50).Return([]domain.Item{mug()}, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/items?q=frog", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "MUG-01", items[0]["sku"])
}

func TestGetItem(t *testing.T) {
	s := newTestServer(t)
	m := mug()
	s.items.On("GetBySKU", mock.Anything, "MUG-01").Return(&m, nil)
	s.items.On("GetBySKU", mock.Anything, "NOPE").Return(nil, apperrors.NotFound("item", "NOPE"))

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/items/MUG-01", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/items/NOPE", nil).Code)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", nil).Code)

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
