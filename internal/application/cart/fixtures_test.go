package cart_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	appcart "github.com/ecommerce-mvp/shop/internal/application/cart"
	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/domain/catalog"
	"github.com/ecommerce-mvp/shop/internal/domain/money"
	domoutbox "github.com/ecommerce-mvp/shop/internal/domain/outbox"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/memory"
	"github.com/ecommerce-mvp/shop/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

var unitUAH = currency.MustParseISO("UAH")

type sequenceIDs struct{ n atomic.Int64 }

func (s *sequenceIDs) NewID() string {
	return fmt.Sprintf("cart-%d", s.n.Add(1))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Events() []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domoutbox.Event(nil), p.events...)
}

// recordingMetrics counts Add calls per metric and label set.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]float64)}
}

func (m *recordingMetrics) Counter(name observability.MetricKey) observability.Counter {
	return recordingCounter{m: m, name: name}
}

func (m *recordingMetrics) Histogram(observability.MetricKey) observability.Histogram {
	return observability.NopHistogram()
}

func (m *recordingMetrics) count(name observability.MetricKey, labels ...observability.Label) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[metricID(name, labels)]
}

type recordingCounter struct {
	m    *recordingMetrics
	name observability.MetricKey
}

func (c recordingCounter) Add(delta float64, labels ...observability.Label) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.counts[metricID(c.name, labels)] += delta
}

func metricID(name observability.MetricKey, labels []observability.Label) string {
	id := string(name)
	for _, l := range labels {
		id += "|" + l.Key + "=" + l.Value
	}
	return id
}

type telemetry struct {
	metrics *recordingMetrics
}

func (t telemetry) Tracer() observability.Tracer   { return observability.NopTracer() }
func (t telemetry) Logger() observability.Logger   { return observability.NopLogger() }
func (t telemetry) Metrics() observability.Metrics { return t.metrics }

type harness struct {
	carts     *memory.CartRepository
	products  *memory.ProductRepository
	publisher *recordingPublisher
	metrics   *recordingMetrics

	add    *appcart.AddLineUseCase
	remove *appcart.RemoveLineUseCase
	place  *appcart.PlaceOrderUseCase
	get    *appcart.GetCartUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, memory.NewCartRepository())
}

// newHarnessWith builds the use cases over carts, which may wrap the memory store.
func newHarnessWith(t *testing.T, carts domain.Repository) *harness {
	t.Helper()

	h := &harness{
		products:  memory.NewProductRepository(),
		publisher: &recordingPublisher{},
		metrics:   newRecordingMetrics(),
	}
	if mem, ok := carts.(*memory.CartRepository); ok {
		h.carts = mem
	}
	tel := telemetry{metrics: h.metrics}

	pricer := appcart.NewPricer(h.products, 2)
	h.add = appcart.NewAddLineUseCase(carts, h.products, pricer, &sequenceIDs{}, unitUAH, tel)
	h.remove = appcart.NewRemoveLineUseCase(carts, pricer, tel)
	h.place = appcart.NewPlaceOrderUseCase(carts, h.publisher, tel)
	h.get = appcart.NewGetCartUseCase(carts, unitUAH, tel)
	return h
}

func (h *harness) stock(t *testing.T, id, price string) catalog.Product {
	t.Helper()
	p, err := money.New(decimal.RequireFromString(price), unitUAH)
	require.NoError(t, err)
	product := catalog.Product{ID: id, Title: gofakeit.ProductName(), Price: p}
	h.products.Put(product)
	return product
}

func amount(s string) money.Money {
	return money.Money{Amount: decimal.RequireFromString(s), Currency: unitUAH}
}
