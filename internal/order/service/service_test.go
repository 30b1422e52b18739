package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/cartforgelabs/cartforge/internal/clock"
	discountadapters "github.com/cartforgelabs/cartforge/internal/discount/adapters"
	discountdomain "github.com/cartforgelabs/cartforge/internal/discount/domain"
	"github.com/cartforgelabs/cartforge/internal/discount/reservation"
	discountservice "github.com/cartforgelabs/cartforge/internal/discount/service"
	"github.com/cartforgelabs/cartforge/internal/events"
	"github.com/cartforgelabs/cartforge/internal/order/domain"
	"github.com/cartforgelabs/cartforge/internal/pricing"
	"github.com/cartforgelabs/cartforge/internal/pricing/directors"
	productdomain "github.com/cartforgelabs/cartforge/internal/product/domain"
	productrepo "github.com/cartforgelabs/cartforge/internal/product/repository"
	providersdomain "github.com/cartforgelabs/cartforge/internal/providers/domain"
	providersrepo "github.com/cartforgelabs/cartforge/internal/providers/repository"
	taxdomain "github.com/cartforgelabs/cartforge/internal/tax/domain"
	taxservice "github.com/cartforgelabs/cartforge/internal/tax/service"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeEmitter struct {
	mu    sync.Mutex
	names []string
}

func (e *fakeEmitter) Emit(ctx context.Context, name string, payload map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.names = append(e.names, name)
}

func (e *fakeEmitter) emitted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

type env struct {
	svc       *Service
	db        *gorm.DB
	node      *snowflake.Node
	mr        *miniredis.Miniredis
	emitter   *fakeEmitter
	products  productdomain.Repository
	providers providersdomain.Repository
}

func newTestEnv(t *testing.T) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&productdomain.Product{},
		&providersdomain.Provider{},
		&taxdomain.TaxRate{},
		&domain.Order{},
		&domain.OrderPosition{},
		&domain.OrderDelivery{},
		&domain.OrderPayment{},
		&discountdomain.Discount{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	store := reservation.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zap.NewNop())
	registry := discountadapters.NewRegistry(
		discountadapters.NewHalfPrice(store),
		discountadapters.NewHundredOff(store),
		discountadapters.NewEarlyBird(),
	)
	resolver := discountservice.NewResolver(discountservice.ResolverParam{Log: zap.NewNop(), Registry: registry})
	taxResolver := taxservice.NewResolver(taxservice.ResolverParam{DB: db, Log: zap.NewNop()})
	set := directors.New(directors.Param{Log: zap.NewNop(), TaxResolver: taxResolver})

	productsRepo := productrepo.NewRepository(db)
	providersRepo := providersrepo.NewRepository(db)
	emitter := &fakeEmitter{}

	svc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.New(),
		Products:  productsRepo,
		Providers: providersRepo,
		Discounts: registry,
		Resolver:  resolver,
		Directors: set,
		Emitter:   emitter,
	}).(*Service)

	return &env{
		svc:       svc,
		db:        db,
		node:      node,
		mr:        mr,
		emitter:   emitter,
		products:  productsRepo,
		providers: providersRepo,
	}
}

func (e *env) createProduct(t *testing.T, sku string, unitAmount int64, tags ...string) *productdomain.Product {
	t.Helper()
	product := &productdomain.Product{
		ID:         e.node.Generate(),
		SKU:        sku,
		Title:      sku,
		UnitAmount: unitAmount,
		Currency:   "CHF",
		Tags:       datatypes.NewJSONSlice(tags),
	}
	require.NoError(t, e.products.Create(context.Background(), product))
	return product
}

func (e *env) createProvider(t *testing.T, providerType providersdomain.ProviderType, cfg map[string]string) *providersdomain.Provider {
	t.Helper()
	entries := make([]providersdomain.ConfigurationEntry, 0, len(cfg))
	for key, value := range cfg {
		entries = append(entries, providersdomain.ConfigurationEntry{Key: key, Value: value})
	}
	provider := &providersdomain.Provider{
		ID:            e.node.Generate(),
		Type:          providerType,
		Adapter:       "test-" + string(providerType),
		Configuration: datatypes.NewJSONSlice(entries),
	}
	require.NoError(t, e.providers.Create(context.Background(), provider))
	return provider
}

func (e *env) newCart(t *testing.T) *domain.Order {
	t.Helper()
	order, err := e.svc.CreateCart(context.Background(), domain.CreateCartInput{Currency: "CHF", CountryCode: "CH"})
	require.NoError(t, err)
	return order
}

// readyCart builds a checkout-ready cart with one position, address,
// contact and both providers.
func (e *env) readyCart(t *testing.T, unitAmount int64, quantity int) *domain.Order {
	t.Helper()
	ctx := context.Background()

	product := e.createProduct(t, "SKU-"+e.node.Generate().String(), unitAmount)
	delivery := e.createProvider(t, providersdomain.TypeDelivery, map[string]string{providersdomain.ConfigFeeAmount: "700"})
	payment := e.createProvider(t, providersdomain.TypePayment, map[string]string{providersdomain.ConfigFeeRate: "0.029"})

	order := e.newCart(t)
	_, err := e.svc.AddItem(ctx, order.ID, product.ID, quantity)
	require.NoError(t, err)
	_, err = e.svc.SetBillingAddress(ctx, order.ID, domain.Address{
		FirstName:   "Mara",
		LastName:    "Keller",
		AddressLine: "Bahnhofstrasse 1",
		PostalCode:  "8001",
		City:        "Zurich",
		CountryCode: "CH",
	})
	require.NoError(t, err)
	_, err = e.svc.SetContact(ctx, order.ID, domain.Contact{Email: "mara@example.com"})
	require.NoError(t, err)
	_, err = e.svc.SetDeliveryProvider(ctx, order.ID, delivery.ID)
	require.NoError(t, err)
	order, err = e.svc.SetPaymentProvider(ctx, order.ID, payment.ID)
	require.NoError(t, err)
	return order
}

func TestAddItemPricesCart(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	product := e.createProduct(t, "CF-TSHIRT", 10000)
	order := e.newCart(t)

	order, err := e.svc.AddItem(ctx, order.ID, product.ID, 3)
	require.NoError(t, err)

	require.Len(t, order.Positions, 1)
	position := order.Positions[0]
	assert.Equal(t, 3, position.Quantity)

	// Position sheet: 30000 gross with 7.7% Swiss VAT extracted.
	sheet := position.Sheet(order.Currency)
	assert.Equal(t, int64(30000), sheet.Gross())
	assert.Equal(t, int64(2145), sheet.TaxSum())
	assert.Equal(t, int64(27855), sheet.Net())

	// Order sheet folds the position and mirrors its tax.
	orderSheet := order.Sheet()
	assert.Equal(t, int64(30000), orderSheet.Gross())
	assert.Equal(t, int64(2145), orderSheet.TaxSum())
	assert.Equal(t, orderSheet.Gross(), orderSheet.Net()+orderSheet.TaxSum())
}

func TestAddItemMergesSameProduct(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	product := e.createProduct(t, "CF-TSHIRT", 10000)
	order := e.newCart(t)

	_, err := e.svc.AddItem(ctx, order.ID, product.ID, 1)
	require.NoError(t, err)
	order, err = e.svc.AddItem(ctx, order.ID, product.ID, 2)
	require.NoError(t, err)

	require.Len(t, order.Positions, 1)
	assert.Equal(t, 3, order.Positions[0].Quantity)
	assert.Equal(t, int64(30000), order.Sheet().Gross())
}

func TestAddItemValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	product := e.createProduct(t, "CF-TSHIRT", 10000)
	order := e.newCart(t)

	_, err := e.svc.AddItem(ctx, order.ID, product.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = e.svc.AddItem(ctx, order.ID, e.node.Generate(), 1)
	assert.ErrorIs(t, err, productdomain.ErrProductNotFound)
}

func TestHalfPriceDiscountOnTaggedPosition(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	sale := e.createProduct(t, "CF-HOODIE", 10000, "sale")
	plain := e.createProduct(t, "CF-TSHIRT", 10000)
	order := e.newCart(t)

	_, err := e.svc.AddItem(ctx, order.ID, sale.ID, 1)
	require.NoError(t, err)
	_, err = e.svc.AddItem(ctx, order.ID, plain.ID, 1)
	require.NoError(t, err)

	order, err = e.svc.ApplyDiscountCode(ctx, order.ID, discountadapters.HalfPriceCode)
	require.NoError(t, err)

	require.Len(t, order.Discounts, 1)
	discountID := order.Discounts[0].ID.String()
	assert.Equal(t, discountdomain.TriggerUser, order.Discounts[0].Trigger)

	// The sale position carries the attributed discount row; the plain
	// one stays untouched.
	saleSheet := order.Positions[0].Sheet(order.Currency)
	assert.Equal(t, int64(-5000), saleSheet.DiscountSum(discountID))
	assert.Equal(t, int64(5000), saleSheet.Gross())

	plainSheet := order.Positions[1].Sheet(order.Currency)
	assert.Equal(t, int64(0), plainSheet.DiscountSum(discountID))
	assert.Equal(t, int64(10000), plainSheet.Gross())

	orderSheet := order.Sheet()
	assert.Equal(t, int64(15000), orderSheet.Gross())
	assert.Equal(t, orderSheet.Gross(), orderSheet.Net()+orderSheet.TaxSum())
}

func TestHundredOffOrderDiscount(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	product := e.createProduct(t, "CF-TSHIRT", 10000)
	order := e.newCart(t)

	_, err := e.svc.AddItem(ctx, order.ID, product.ID, 1)
	require.NoError(t, err)

	order, err = e.svc.ApplyDiscountCode(ctx, order.ID, discountadapters.HundredOffCode)
	require.NoError(t, err)

	sheet := order.Sheet()
	assert.Equal(t, int64(-100), sheet.Total(pricing.TotalParams{Category: pricing.CategoryDiscounts}))
	assert.Equal(t, int64(9900), sheet.Gross())
}

func TestApplyDiscountCodeValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	product := e.createProduct(t, "CF-TSHIRT", 10000)
	order := e.newCart(t)
	_, err := e.svc.AddItem(ctx, order.ID, product.ID, 1)
	require.NoError(t, err)

	_, err = e.svc.ApplyDiscountCode(ctx, order.ID, "NOSUCHCODE")
	assert.ErrorIs(t, err, discountdomain.ErrDiscountInvalid)

	_, err = e.svc.ApplyDiscountCode(ctx, order.ID, discountadapters.HundredOffCode)
	require.NoError(t, err)
	_, err = e.svc.ApplyDiscountCode(ctx, order.ID, discountadapters.HundredOffCode)
	assert.ErrorIs(t, err, discountdomain.ErrDiscountInvalid)
}

func TestRemoveDiscountRestoresPrice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	product := e.createProduct(t, "CF-TSHIRT", 10000)
	order := e.newCart(t)
	_, err := e.svc.AddItem(ctx, order.ID, product.ID, 1)
	require.NoError(t, err)

	order, err = e.svc.ApplyDiscountCode(ctx, order.ID, discountadapters.HundredOffCode)
	require.NoError(t, err)
	require.Len(t, order.Discounts, 1)

	order, err = e.svc.RemoveDiscount(ctx, order.ID, order.Discounts[0].ID)
	require.NoError(t, err)
	assert.Empty(t, order.Discounts)
	assert.Equal(t, int64(10000), order.Sheet().Gross())
}

func TestEarlyBirdSystemDiscountSync(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	product := e.createProduct(t, "CF-HOODIE-XL", 10000)
	order := e.newCart(t)

	order, err := e.svc.AddItem(ctx, order.ID, product.ID, 6)
	require.NoError(t, err)

	// 60000 crosses the threshold: the system discount is granted.
	require.Len(t, order.Discounts, 1)
	assert.Equal(t, discountdomain.TriggerSystem, order.Discounts[0].Trigger)
	assert.Equal(t, "discount-early-bird", order.Discounts[0].DiscountKey)
	assert.Equal(t, int64(-3000), order.Sheet().Total(pricing.TotalParams{Category: pricing.CategoryDiscounts}))

	// Dropping below the threshold revokes it again.
	order, err = e.svc.UpdateItemQuantity(ctx, order.ID, order.Positions[0].ID, 2)
	require.NoError(t, err)
	assert.Empty(t, order.Discounts)
	assert.Equal(t, int64(20000), order.Sheet().Gross())

	// A system discount cannot be removed manually.
	order, err = e.svc.UpdateItemQuantity(ctx, order.ID, order.Positions[0].ID, 6)
	require.NoError(t, err)
	require.Len(t, order.Discounts, 1)
	_, err = e.svc.RemoveDiscount(ctx, order.ID, order.Discounts[0].ID)
	assert.ErrorIs(t, err, discountdomain.ErrDiscountInvalid)
}

func TestCheckoutValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	product := e.createProduct(t, "CF-TSHIRT", 10000)
	order := e.newCart(t)
	_, err := e.svc.AddItem(ctx, order.ID, product.ID, 1)
	require.NoError(t, err)

	_, err = e.svc.Checkout(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrMissingBillingAddress)

	_, err = e.svc.SetBillingAddress(ctx, order.ID, domain.Address{AddressLine: "Bahnhofstrasse 1", CountryCode: "CH"})
	require.NoError(t, err)
	_, err = e.svc.Checkout(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrMissingContact)

	_, err = e.svc.SetContact(ctx, order.ID, domain.Contact{Email: "mara@example.com"})
	require.NoError(t, err)
	_, err = e.svc.Checkout(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrMissingDeliveryProvider)

	delivery := e.createProvider(t, providersdomain.TypeDelivery, map[string]string{providersdomain.ConfigFeeAmount: "700"})
	_, err = e.svc.SetDeliveryProvider(ctx, order.ID, delivery.ID)
	require.NoError(t, err)
	_, err = e.svc.Checkout(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrMissingPaymentProvider)

	// The failed attempts left the order untouched.
	order, err = e.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderOpen, order.Status)
	assert.Empty(t, order.OrderNumber)
}

func TestCheckoutFreezesCart(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	order := e.readyCart(t, 10000, 3)

	order, err := e.svc.Checkout(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.NotEmpty(t, order.OrderNumber)
	require.NotNil(t, order.OrderedAt)

	sheet := order.Sheet()
	// 30000 items + 700 delivery + 870 payment fee.
	assert.Equal(t, int64(31570), sheet.Gross())
	assert.Equal(t, sheet.Gross(), sheet.Net()+sheet.TaxSum())

	// PENDING orders refuse mutation.
	product := e.createProduct(t, "CF-EXTRA", 1000)
	_, err = e.svc.AddItem(ctx, order.ID, product.ID, 1)
	assert.ErrorIs(t, err, domain.ErrOrderImmutable)

	assert.Contains(t, e.emitter.emitted(), events.OrderCheckout)
}

func TestCheckoutReservesAndRejectReleases(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	order := e.readyCart(t, 10000, 1)
	_, err := e.svc.ApplyDiscountCode(ctx, order.ID, discountadapters.HundredOffCode)
	require.NoError(t, err)

	order, err = e.svc.Checkout(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, order.Discounts, 1)
	assert.NotEmpty(t, order.Discounts[0].ReservationID)
	e.mr.CheckGet(t, "discount:usage:"+discountadapters.HundredOffCode, "1")

	order, err = e.svc.Reject(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderRejected, order.Status)
	e.mr.CheckGet(t, "discount:usage:"+discountadapters.HundredOffCode, "0")

	// The released reservation is also gone from storage.
	stored, err := e.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Discounts, 1)
	assert.Empty(t, stored.Discounts[0].ReservationID)

	// A rejected order is terminal.
	_, err = e.svc.Confirm(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrWrongStatus)
}

func TestFullLifecycleToFulfillment(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	order := e.readyCart(t, 10000, 2)

	_, err := e.svc.Checkout(ctx, order.ID)
	require.NoError(t, err)
	_, err = e.svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	// Paid alone does not fulfill.
	order, err = e.svc.MarkPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, order.Status)
	assert.Equal(t, domain.PaymentPaid, order.Payment.Status)

	order, err = e.svc.MarkDelivered(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFullfilled, order.Status)
	assert.Equal(t, domain.DeliveryDelivered, order.Delivery.Status)
	assert.NotNil(t, order.Delivery.DeliveredAt)
	assert.NotNil(t, order.FullfilledAt)

	// The closing was persisted together with the delivery leg.
	stored, err := e.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFullfilled, stored.Status)
	assert.NotNil(t, stored.FullfilledAt)

	emitted := e.emitted(t)
	assert.Equal(t, []string{
		events.OrderCheckout,
		events.OrderConfirm,
		events.OrderPaid,
		events.OrderDelivered,
		events.OrderFullfill,
	}, emitted)
}

func (e *env) emitted(t *testing.T) []string {
	t.Helper()
	return e.emitter.emitted()
}

func TestWrongStatusTransitions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	order := e.readyCart(t, 10000, 1)

	// OPEN cannot confirm or reject.
	_, err := e.svc.Confirm(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrWrongStatus)
	_, err = e.svc.Reject(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrWrongStatus)

	_, err = e.svc.Checkout(ctx, order.ID)
	require.NoError(t, err)
	_, err = e.svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	// CONFIRMED cannot confirm again or reject.
	_, err = e.svc.Confirm(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrWrongStatus)
	_, err = e.svc.Reject(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrWrongStatus)
}

func TestSimulatePrice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.createProduct(t, "CF-TSHIRT", 10000)

	sheet, err := e.svc.SimulatePrice(ctx, domain.SimulatePriceInput{
		SKU:         "CF-TSHIRT",
		Quantity:    3,
		Currency:    "CHF",
		CountryCode: "CH",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), sheet.Gross())
	assert.Equal(t, int64(2145), sheet.TaxSum())

	_, err = e.svc.SimulatePrice(ctx, domain.SimulatePriceInput{SKU: "NOPE", Quantity: 1, Currency: "CHF"})
	assert.ErrorIs(t, err, productdomain.ErrProductNotFound)
}
