package order_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	apporder "github.com/skyvolt/storefront/internal/application/order"
	"github.com/skyvolt/storefront/internal/domain/cart"
	domaininventory "github.com/skyvolt/storefront/internal/domain/inventory"
	domainorder "github.com/skyvolt/storefront/internal/domain/order"
	domoutbox "github.com/skyvolt/storefront/internal/domain/outbox"
	"github.com/skyvolt/storefront/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *stubIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func (g *stubIDGen) OrderNumber() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("SKY-TEST%08d", g.n+1)
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *capturingPublisher) named(name string) []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domoutbox.Event
	for _, e := range p.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	orders    *memory.OrderStore
	inventory *memory.InventoryStore
	carts     *memory.CartStore
	addresses *memory.AddressStore
	checkout  *memory.CheckoutStore
	publisher *capturingPublisher
	svc       *apporder.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		orders:    memory.NewOrderStore(),
		inventory: memory.NewInventoryStore(),
		carts:     memory.NewCartStore(),
		addresses: memory.NewAddressStore(),
		publisher: &capturingPublisher{},
	}
	f.checkout = memory.NewCheckoutStore(f.orders, f.inventory, f.carts)
	f.svc = apporder.NewService(
		f.orders, f.inventory, f.carts, f.addresses, f.checkout,
		&stubIDGen{}, f.publisher, nil,
	)

	f.addresses.Seed(&apporder.Address{ID: "addr-1", UserID: "user-1", Name: "Asha", Line1: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001", Phone: "9999999999"})
	f.seedStock(t, "prod-1", 10)
	return f
}

func (f *fixture) seedStock(t *testing.T, productID string, qty int) {
	t.Helper()
	item, err := domaininventory.NewItem(productID, qty, 2)
	require.NoError(t, err)
	f.inventory.Seed(item)
}

func (f *fixture) fillCart(lines ...cart.Line) {
	f.carts.SetLines("user-1", lines)
}

func placeInput() apporder.PlaceOrderInput {
	return apporder.PlaceOrderInput{
		UserID:    "user-1",
		Email:     "asha@example.com",
		AddressID: "addr-1",
	}
}

func TestPlaceOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 2, UnitPrice: 500})

	result, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)

	o := result.Order
	assert.Equal(t, domainorder.StatusPending, o.Status)
	assert.Equal(t, domainorder.PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, 1000.0, o.Subtotal)
	assert.Equal(t, 180.0, o.Tax)
	assert.Equal(t, 0.0, o.Shipping)
	assert.Equal(t, 1180.0, o.Total)
	assert.Contains(t, o.Number, "SKY-")
	assert.Equal(t, "addr-1", o.AddressID)

	stored, err := f.orders.Get(context.Background(), "user-1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Number, stored.Number)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Widget", stored.Items[0].ProductName)
	assert.Equal(t, 1000.0, stored.Items[0].Total)

	item, err := f.inventory.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Reserved)
	assert.Equal(t, 10, item.Quantity)

	assert.Zero(t, f.carts.Len("user-1"))

	events := f.publisher.named("order.placed")
	require.Len(t, events, 1)
	placed := events[0].(domainorder.PlacedEvent)
	assert.Equal(t, o.Number, placed.OrderNumber)
	assert.Equal(t, "asha@example.com", placed.Email)
}

func TestPlaceOrderShippingBelowThreshold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 1, UnitPrice: 500})

	result, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)
	assert.Equal(t, 49.0, result.Order.Shipping)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), placeInput())
	assert.ErrorIs(t, err, domainorder.ErrEmptyCart)
}

func TestPlaceOrderUnknownAddress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 1, UnitPrice: 500})

	in := placeInput()
	in.AddressID = "addr-ghost"
	_, err := f.svc.PlaceOrder(context.Background(), in)
	assert.ErrorIs(t, err, apporder.ErrAddressNotFound)
}

func TestPlaceOrderInactiveProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: false, Quantity: 1, UnitPrice: 500})

	_, err := f.svc.PlaceOrder(context.Background(), placeInput())
	var unavailable *domainorder.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Widget", unavailable.ProductName)

	// The cart must survive a rejected placement.
	assert.Equal(t, 1, f.carts.Len("user-1"))
}

func TestPlaceOrderProductDeactivatedAtCheckout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 2, UnitPrice: 500})

	// The snapshot still reports the product active; the placement unit's
	// own re-check must catch a deactivation that lands after the snapshot.
	f.checkout.Deactivate("prod-1")

	_, err := f.svc.PlaceOrder(context.Background(), placeInput())
	var unavailable *domainorder.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Widget", unavailable.ProductName)

	item, err := f.inventory.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Zero(t, item.Reserved)
	assert.Equal(t, 1, f.carts.Len("user-1"))
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 2, UnitPrice: 500})

	item, err := f.inventory.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	require.NoError(t, f.inventory.Reserve(context.Background(), "prod-1", item.Quantity-1))

	_, err = f.svc.PlaceOrder(context.Background(), placeInput())
	var insufficient *domainorder.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	after, err := f.inventory.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, item.Quantity-1, after.Reserved)
	assert.Equal(t, 1, f.carts.Len("user-1"))
	assert.Empty(t, f.publisher.named("order.placed"))
}

func TestPlaceOrderRollsBackOnCommitFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedStock(t, "prod-2", 5)
	f.fillCart(
		cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 2, UnitPrice: 500},
		cart.Line{ProductID: "prod-2", ProductName: "Gadget", ProductActive: true, Quantity: 3, UnitPrice: 100},
	)
	f.checkout.CommitHook = func() error { return errors.New("disk full") }

	_, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.Error(t, err)

	for _, productID := range []string{"prod-1", "prod-2"} {
		item, getErr := f.inventory.Get(context.Background(), productID)
		require.NoError(t, getErr)
		assert.Zero(t, item.Reserved, productID)
	}
	assert.Equal(t, 2, f.carts.Len("user-1"))

	orders, err := f.orders.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderSucceedsWhenPublishFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 2, UnitPrice: 500})
	f.publisher.err = errors.New("bus saturated")

	result, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)

	_, err = f.orders.Get(context.Background(), "user-1", result.Order.ID)
	assert.NoError(t, err)
}

func TestCancelReleasesReservations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 3, UnitPrice: 200})

	result, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), "user-1", result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domainorder.StatusCancelled, cancelled.Status)

	item, err := f.inventory.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Zero(t, item.Reserved)

	require.Len(t, f.publisher.named("order.cancelled"), 1)
}

func TestCancelRejectedOnceShipped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 1, UnitPrice: 200})

	result, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)

	o := result.Order
	require.NoError(t, o.ApplyStatus(domainorder.StatusUpdate{Status: domainorder.StatusShipped}, o.CreatedAt))
	require.NoError(t, f.orders.Update(context.Background(), o))

	_, err = f.svc.Cancel(context.Background(), "user-1", o.ID)
	assert.ErrorIs(t, err, domainorder.ErrNotCancellable)

	item, err := f.inventory.Get(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Reserved)
}

func TestCancelOtherUsersOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.fillCart(cart.Line{ProductID: "prod-1", ProductName: "Widget", ProductActive: true, Quantity: 1, UnitPrice: 200})

	result, err := f.svc.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), "user-2", result.Order.ID)
	assert.ErrorIs(t, err, domainorder.ErrNotFound)
}

func TestPlaceOrderValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	in := placeInput()
	in.AddressID = ""
	_, err := f.svc.PlaceOrder(context.Background(), in)
	assert.ErrorIs(t, err, apporder.ErrValidation)

	in = placeInput()
	in.UserID = ""
	_, err = f.svc.PlaceOrder(context.Background(), in)
	assert.ErrorIs(t, err, apporder.ErrValidation)
}
