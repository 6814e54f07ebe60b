package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nilPool struct{}

func (nilPool) Stat() *pgxpool.Stat { return nil }

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nilPool{}, "backoffice")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var n int
	for range ch {
		n++
	}
	assert.Equal(t, len(c.metrics), n)
	assert.Equal(t, 8, n)
}

func TestRegisterPoolMetrics_DuplicateRejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, nilPool{}, "backoffice"))
	assert.Error(t, RegisterPoolMetrics(reg, nilPool{}, "backoffice"))
}
