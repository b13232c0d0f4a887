package prometrics_test

import (
	"strings"
	"testing"

	"github.com/ecommerce-mvp/shop/internal/infrastructure/observability/prometrics"
	"github.com/ecommerce-mvp/shop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CounterRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := prometrics.New(reg, "", "")

	c := r.Counter("usecase_requests_total", "Total use case invocations.", "use_case", "outcome")
	again := r.Counter("usecase_requests_total", "Total use case invocations.", "use_case", "outcome")

	c.Add(1, observability.L("use_case", "cart.get"), observability.L("outcome", "success"))
	again.Add(2, observability.L("use_case", "cart.get"), observability.L("outcome", "success"))

	expected := `
# HELP usecase_requests_total Total use case invocations.
# TYPE usecase_requests_total counter
usecase_requests_total{outcome="success",use_case="cart.get"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "usecase_requests_total"))
}

func TestRegistry_HistogramUsesDefaultBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := prometrics.New(reg, "shop", "")

	h := r.Histogram("usecase_duration_seconds", "Use case latency.", nil, "use_case")
	h.Observe(0.2, observability.L("use_case", "cart.get"))

	count, err := testutil.GatherAndCount(reg, "shop_usecase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
