package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/require"
)

var errConnRefused = errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")

// fakeCatalog is an in-memory Catalog
type fakeCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]catalog.Product
	err      error

	batchCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[uuid.UUID]catalog.Product)}
}

func (c *fakeCatalog) add(t *testing.T, name, price string, stock int) uuid.UUID {
	t.Helper()
	p, err := catalog.NewProduct(name, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = *p
	return p.ID
}

func (c *fakeCatalog) setStock(id uuid.UUID, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	p.Stock = stock
	c.products[id] = p
}

func (c *fakeCatalog) setPrice(id uuid.UUID, price string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	p.Price = decimal.RequireFromString(price)
	c.products[id] = p
}

func (c *fakeCatalog) delete(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

func (c *fakeCatalog) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeCatalog) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (c *fakeCatalog) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batchCalls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batchCalls
}

func (c *fakeCatalog) product(id uuid.UUID) *catalog.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	return &p
}

// fakeLocalCache is an in-memory LocalCartCache
type fakeLocalCache struct {
	mu       sync.Mutex
	cart     *cart.Cart
	loadErr  error
	saveErr  error
	clearErr error
	saves    int
	clears   int
}

func newFakeLocalCache() *fakeLocalCache {
	return &fakeLocalCache{cart: cart.NewCart()}
}

func (l *fakeLocalCache) Load(ctx context.Context) (*cart.Cart, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	return l.cart.Clone(), nil
}

func (l *fakeLocalCache) Save(ctx context.Context, c *cart.Cart) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.saveErr != nil {
		return l.saveErr
	}
	l.saves++
	l.cart = c.Clone()
	return nil
}

func (l *fakeLocalCache) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.clearErr != nil {
		return l.clearErr
	}
	l.clears++
	l.cart = cart.NewCart()
	return nil
}

func (l *fakeLocalCache) seed(t *testing.T, lines ...cart.Line) {
	t.Helper()
	c, err := cart.NewCartFromLines(lines)
	require.NoError(t, err)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cart = c
}

func (l *fakeLocalCache) quantities() map[uuid.UUID]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[uuid.UUID]int)
	for _, line := range l.cart.Lines() {
		out[line.ProductID] = line.Quantity
	}
	return out
}

func (l *fakeLocalCache) setErrs(load, save, clear error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadErr, l.saveErr, l.clearErr = load, save, clear
}

type remoteRow struct {
	id        uuid.UUID
	productID uuid.UUID
	quantity  int
}

// fakeRemote is an in-memory RemoteCartStore joined against a fakeCatalog
type fakeRemote struct {
	mu      sync.Mutex
	catalog *fakeCatalog
	carts   map[uuid.UUID]uuid.UUID
	rows    map[uuid.UUID][]remoteRow

	err         error
	writeErr    error
	failUpsertN int
	upsertHook  func(productID uuid.UUID, quantity int)

	ensureCalls int
	upsertCalls int
	clearCalls  int
}

func newFakeRemote(c *fakeCatalog) *fakeRemote {
	return &fakeRemote{
		catalog: c,
		carts:   make(map[uuid.UUID]uuid.UUID),
		rows:    make(map[uuid.UUID][]remoteRow),
	}
}

func (r *fakeRemote) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// setWriteErr fails upserts and deletes while reads keep working
func (r *fakeRemote) setWriteErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeErr = err
}

func (r *fakeRemote) EnsureCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureCalls++
	if r.err != nil {
		return uuid.Nil, r.err
	}
	if id, ok := r.carts[userID]; ok {
		return id, nil
	}
	id := uuid.New()
	r.carts[userID] = id
	return id, nil
}

func (r *fakeRemote) ListItems(ctx context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	r.mu.Lock()
	if r.err != nil {
		r.mu.Unlock()
		return nil, r.err
	}
	rows := append([]remoteRow(nil), r.rows[cartID]...)
	r.mu.Unlock()

	lines := make([]cart.Line, 0, len(rows))
	for _, row := range rows {
		p, err := r.catalog.FindByID(ctx, row.productID)
		if err != nil {
			continue
		}
		rowID := row.id
		lines = append(lines, cart.Line{ProductID: row.productID, Quantity: row.quantity, RemoteRowID: &rowID, Product: p})
	}
	return lines, nil
}

func (r *fakeRemote) FindItem(ctx context.Context, cartID, productID uuid.UUID) (cart.Line, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return cart.Line{}, false, r.err
	}
	for _, row := range r.rows[cartID] {
		if row.productID == productID {
			rowID := row.id
			return cart.Line{ProductID: productID, Quantity: row.quantity, RemoteRowID: &rowID}, true, nil
		}
	}
	return cart.Line{}, false, nil
}

func (r *fakeRemote) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (uuid.UUID, error) {
	r.mu.Lock()
	hook := r.upsertHook
	r.mu.Unlock()
	if hook != nil {
		hook(productID, quantity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	if r.err != nil {
		return uuid.Nil, r.err
	}
	if r.writeErr != nil {
		return uuid.Nil, r.writeErr
	}
	if r.failUpsertN > 0 && r.upsertCalls == r.failUpsertN {
		return uuid.Nil, errConnRefused
	}
	rows := r.rows[cartID]
	for i, row := range rows {
		if row.productID == productID {
			rows[i].quantity = quantity
			return row.id, nil
		}
	}
	row := remoteRow{id: uuid.New(), productID: productID, quantity: quantity}
	r.rows[cartID] = append(rows, row)
	return row.id, nil
}

func (r *fakeRemote) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.writeErr != nil {
		return r.writeErr
	}
	rows := r.rows[cartID]
	for i, row := range rows {
		if row.productID == productID {
			r.rows[cartID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeRemote) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearCalls++
	if r.err != nil {
		return r.err
	}
	if r.writeErr != nil {
		return r.writeErr
	}
	delete(r.rows, cartID)
	return nil
}

func (r *fakeRemote) seed(userID uuid.UUID, quantities map[uuid.UUID]int) uuid.UUID {
	cartID, _ := r.EnsureCart(context.Background(), userID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureCalls = 0
	for productID, q := range quantities {
		r.rows[cartID] = append(r.rows[cartID], remoteRow{id: uuid.New(), productID: productID, quantity: q})
	}
	return cartID
}

func (r *fakeRemote) quantities(userID uuid.UUID) map[uuid.UUID]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]int)
	for _, row := range r.rows[r.carts[userID]] {
		out[row.productID] = row.quantity
	}
	return out
}

// fakeFeed is a synchronous IdentityFeed
type fakeFeed struct {
	mu       sync.Mutex
	handlers map[int]IdentityHandler
	next     int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{handlers: make(map[int]IdentityHandler)}
}

func (f *fakeFeed) OnChange(handler IdentityHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.handlers[id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

func (f *fakeFeed) Publish(ctx context.Context, identity cart.SessionIdentity) error {
	f.mu.Lock()
	handlers := make([]IdentityHandler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, identity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fakeFeed) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) byType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	catalog   *fakeCatalog
	local     *fakeLocalCache
	remote    *fakeRemote
	feed      *fakeFeed
	publisher *recordingPublisher
	store     *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog:   newFakeCatalog(),
		local:     newFakeLocalCache(),
		feed:      newFakeFeed(),
		publisher: &recordingPublisher{},
	}
	f.remote = newFakeRemote(f.catalog)
	f.store = NewStore(f.feed, f.catalog, f.local, f.remote,
		WithScope("device-1"),
		WithEventPublisher(f.publisher),
	)
	t.Cleanup(f.store.Close)
	return f
}

// signIn delivers Authenticated(userID) and requires the reconciliation to succeed
func (f *fixture) signIn(t *testing.T, userID uuid.UUID) {
	t.Helper()
	require.NoError(t, f.feed.Publish(context.Background(), cart.Authenticated(userID)))
	require.True(t, f.store.Identity().Equal(cart.Authenticated(userID)))
}

func memoryQuantities(s *Store) map[uuid.UUID]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]int)
	for _, l := range s.current.Lines() {
		out[l.ProductID] = l.Quantity
	}
	return out
}

// assertInvariants checks every in-memory line against current catalog stock
func assertInvariants(t *testing.T, f *fixture) {
	t.Helper()
	f.store.mu.RLock()
	lines := f.store.current.Lines()
	f.store.mu.RUnlock()

	seen := make(map[uuid.UUID]bool)
	for _, l := range lines {
		require.False(t, seen[l.ProductID], "duplicate line for %s", l.ProductID)
		seen[l.ProductID] = true
		require.GreaterOrEqual(t, l.Quantity, 1)
		require.LessOrEqual(t, l.Quantity, f.catalog.product(l.ProductID).Stock)
	}
}
