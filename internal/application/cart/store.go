package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/storefront/backend/internal/application/cart")

// Catalog resolves product ids to their current price and stock.
// FindByID returns shared.ErrNotFound when the product no longer exists;
// FindByIDs leaves such products out of its result.
type Catalog interface {
	FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error)
}

// IdentityHandler reacts to a session identity delivery
type IdentityHandler func(ctx context.Context, identity cart.SessionIdentity) error

// IdentitySource delivers session identity changes. The same identity may be delivered more than once.
type IdentitySource interface {
	OnChange(handler IdentityHandler) (unsubscribe func())
}

// Store owns the in-memory cart of one session. It routes every mutation to the
// device cache while anonymous and to the remote store once authenticated, and
// serializes mutations through a per-cart queue.
type Store struct {
	scope       string
	catalog     Catalog
	local       cart.LocalCartCache
	remote      cart.RemoteCartStore
	logger      *zap.Logger
	publisher   shared.EventPublisher
	queue       *mutationQueue
	carts       *CartQueues
	engine      *ReconciliationEngine
	unsubscribe func()
	loading     atomic.Int32

	mu           sync.RWMutex
	identity     cart.SessionIdentity
	state        cart.ReconciliationState
	remoteCartID uuid.UUID
	current      *cart.Cart

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventPublisher publishes CartUpdated and CartReconciled events to publisher
func WithEventPublisher(publisher shared.EventPublisher) StoreOption {
	return func(s *Store) {
		s.publisher = publisher
	}
}

// WithScope sets the device id the anonymous cart belongs to
func WithScope(scope string) StoreOption {
	return func(s *Store) {
		s.scope = scope
	}
}

// WithCartQueues shares per-cart queues with the other stores of the same users.
// Without it the store serializes remote mutations only against itself.
func WithCartQueues(queues *CartQueues) StoreOption {
	return func(s *Store) {
		if queues != nil {
			s.carts = queues
		}
	}
}

// NewStore creates a Store in anonymous mode and subscribes it to identity
func NewStore(
	identity IdentitySource,
	catalog Catalog,
	local cart.LocalCartCache,
	remote cart.RemoteCartStore,
	opts ...StoreOption,
) *Store {
	s := &Store{
		catalog:     catalog,
		local:       local,
		remote:      remote,
		logger:      zap.NewNop(),
		queue:       newMutationQueue(),
		carts:       NewCartQueues(),
		identity:    cart.Anonymous(),
		state:       cart.ReconciliationPending,
		current:     cart.NewCart(),
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("device_id", s.scope))
	s.engine = newReconciliationEngine(s)
	if identity != nil {
		s.unsubscribe = identity.OnChange(s.engine.HandleIdentityChange)
	}
	return s
}

// Engine returns the reconciliation engine driving this store's identity transitions
func (s *Store) Engine() *ReconciliationEngine {
	return s.engine
}

// Close detaches the store from its identity source
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Identity returns the identity whose backend the store currently routes to
func (s *Store) Identity() cart.SessionIdentity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// ReconciliationState returns the merge state of the current sign-in
func (s *Store) ReconciliationState() cart.ReconciliationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Loading reports whether a mutation or reconciliation is in flight
func (s *Store) Loading() bool {
	return s.loading.Load() > 0
}

// Subscribe registers fn to receive every new snapshot of the in-memory cart.
// Snapshots passed to subscribers use the last known product data.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// Load re-reads the active backend into memory, refreshing product data from the catalog.
// Lines whose product is gone are dropped and quantities are re-clamped to current stock.
func (s *Store) Load(ctx context.Context) error {
	return s.mutate(ctx, cart.OperationReload, nil, func(ctx context.Context, b backend) (bool, error) {
		lines, err := b.load(ctx)
		if err != nil {
			if b.authenticated() {
				return false, b.translate(err)
			}
			s.logger.Warn("local cart unavailable, starting empty", zap.Error(err))
			lines = nil
		}

		next, corrections := s.refresh(ctx, lines)
		s.persistCorrections(ctx, b, corrections)

		s.mu.Lock()
		s.current = next
		s.mu.Unlock()
		return true, nil
	})
}

// Add increments the product's quantity by one, clamped to current stock.
// It returns shared.ErrStockExceeded when the line is already at the stock ceiling.
func (s *Store) Add(ctx context.Context, productID uuid.UUID) error {
	return s.mutate(ctx, cart.OperationAdd, &productID, func(ctx context.Context, b backend) (bool, error) {
		product, err := s.lookup(ctx, productID)
		if err != nil {
			return s.dropDecayed(ctx, b, productID, err)
		}

		line, found, err := b.find(ctx, productID)
		if err != nil {
			return false, b.translate(err)
		}
		current := 0
		if found {
			current = line.Quantity
		}

		next := cart.Clamp(current+1, product.Stock)
		switch {
		case next == current:
			return false, shared.ErrStockExceeded
		case next < current:
			// Stock dropped below the held quantity: persist the correction, still reject the add.
			if err := s.apply(ctx, b, productID, next, product); err != nil {
				return false, err
			}
			return true, shared.ErrStockExceeded
		}

		if err := s.apply(ctx, b, productID, next, product); err != nil {
			return false, err
		}
		return true, nil
	})
}

// UpdateQuantity sets the product's quantity, clamped to current stock.
// A requested quantity of zero or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID uuid.UUID, requested int) error {
	if requested <= 0 {
		return s.Remove(ctx, productID)
	}
	return s.mutate(ctx, cart.OperationUpdateQuantity, &productID, func(ctx context.Context, b backend) (bool, error) {
		product, err := s.lookup(ctx, productID)
		if err != nil {
			return s.dropDecayed(ctx, b, productID, err)
		}

		line, found, err := b.find(ctx, productID)
		if err != nil {
			return false, b.translate(err)
		}

		next := cart.Clamp(requested, product.Stock)
		if found && line.Quantity == next {
			return false, nil
		}
		if !found && next == 0 {
			return false, nil
		}

		if err := s.apply(ctx, b, productID, next, product); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Remove deletes the product's line. Removing an absent line is a no-op.
func (s *Store) Remove(ctx context.Context, productID uuid.UUID) error {
	return s.mutate(ctx, cart.OperationRemove, &productID, func(ctx context.Context, b backend) (bool, error) {
		s.mu.RLock()
		_, held := s.current.Line(productID)
		s.mu.RUnlock()

		if err := s.apply(ctx, b, productID, 0, nil); err != nil {
			return false, err
		}
		return held, nil
	})
}

// Clear empties the active backend and the in-memory cart.
// The order flow calls it once after the order has been durably recorded.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, cart.OperationClear, nil, func(ctx context.Context, b backend) (bool, error) {
		s.mu.Lock()
		prev := s.current.Clone()
		s.current.Clear()
		s.mu.Unlock()
		s.notify()

		if err := b.clear(ctx); err != nil {
			s.restore(prev)
			s.notify()
			return false, b.translate(err)
		}
		return true, nil
	})
}

// Snapshot returns the cart with product data refreshed from the catalog.
// Lines whose product no longer resolves are left out and the total is recomputed.
func (s *Store) Snapshot(ctx context.Context) Snapshot {
	s.mu.RLock()
	lines := s.current.Lines()
	identity := s.identity
	state := s.state
	s.mu.RUnlock()

	products, err := s.lookupAll(ctx, lines)
	if err != nil {
		s.logger.Warn("catalog unavailable, using cached product data", zap.Error(err))
		return s.buildSnapshot(identity, state, lines)
	}

	resolved := make([]cart.Line, 0, len(lines))
	for _, l := range lines {
		product, ok := products[l.ProductID]
		if !ok {
			s.logger.Warn("omitting line for missing product", zap.String("product_id", l.ProductID.String()))
			continue
		}
		l.Product = product
		l.Quantity = cart.Clamp(l.Quantity, product.Stock)
		if l.Quantity == 0 {
			continue
		}
		resolved = append(resolved, l)
	}
	return s.buildSnapshot(identity, state, resolved)
}

// Total returns Σ quantity × price over the current lines, recomputed on every call
func (s *Store) Total(ctx context.Context) decimal.Decimal {
	return s.Snapshot(ctx).Total
}

// mutate runs fn inside the mutation queue against the active backend.
// The caller's cancellation is ignored: once issued, a mutation runs to completion.
func (s *Store) mutate(ctx context.Context, op string, productID *uuid.UUID, fn func(context.Context, backend) (bool, error)) error {
	ctx = context.WithoutCancel(ctx)
	return s.queue.run(func() error {
		b := s.activeBackend()
		return s.withCart(b, func() error {
			return s.runMutation(ctx, op, productID, b, fn)
		})
	})
}

// withCart holds the shared queue of the user's remote cart while fn runs.
// Anonymous carts belong to one device and need no further serialization.
func (s *Store) withCart(b backend, fn func() error) error {
	rb, ok := b.(remoteBackend)
	if !ok {
		return fn()
	}
	return s.carts.run(rb.userID, fn)
}

func (s *Store) runMutation(ctx context.Context, op string, productID *uuid.UUID, b backend, fn func(context.Context, backend) (bool, error)) error {
	ctx, span := tracer.Start(ctx, "cart."+op)
	defer span.End()

	span.SetAttributes(
		attribute.String("cart.operation", op),
		attribute.Bool("cart.authenticated", b.authenticated()),
	)
	if productID != nil {
		span.SetAttributes(attribute.String("cart.product_id", productID.String()))
	}

	var changed bool
	err := s.withLoading(func() error {
		var err error
		changed, err = fn(ctx, b)
		return err
	})

	if changed {
		s.notify()
		s.publishUpdated(ctx, op, productID)
	}

	switch {
	case err == nil:
		s.logger.Debug("cart mutation applied",
			zap.String("operation", op),
			zap.Bool("authenticated", b.authenticated()),
		)
	case errors.Is(err, shared.ErrStockExceeded), errors.Is(err, shared.ErrProductNotFound):
		span.SetAttributes(attribute.Bool("cart.rejected", true))
		s.logger.Debug("cart mutation rejected", zap.String("operation", op), zap.Error(err))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("cart mutation failed",
			zap.String("operation", op),
			zap.Bool("authenticated", b.authenticated()),
			zap.Error(err),
		)
	}
	return err
}

// apply writes quantity for productID optimistically: memory changes first, then the
// backend. A failed write restores the previous in-memory cart. Quantity 0 deletes the line.
func (s *Store) apply(ctx context.Context, b backend, productID uuid.UUID, quantity int, product *catalog.Product) error {
	s.mu.Lock()
	prev := s.current.Clone()
	existing, _ := s.current.Line(productID)
	if quantity == 0 {
		s.current.Remove(productID)
	} else {
		_ = s.current.Set(cart.Line{
			ProductID:   productID,
			Quantity:    quantity,
			RemoteRowID: existing.RemoteRowID,
			Product:     product,
		})
	}
	s.mu.Unlock()
	s.notify()

	var rowID *uuid.UUID
	var err error
	if quantity == 0 {
		err = b.remove(ctx, productID)
	} else {
		rowID, err = b.put(ctx, productID, quantity, product)
	}
	if err != nil {
		s.restore(prev)
		s.notify()
		return b.translate(err)
	}

	if rowID != nil {
		s.mu.Lock()
		if line, ok := s.current.Line(productID); ok {
			line.RemoteRowID = rowID
			_ = s.current.Set(line)
		}
		s.mu.Unlock()
	}
	return nil
}

// dropDecayed removes the line of a product the catalog no longer resolves and
// returns the lookup error unchanged.
func (s *Store) dropDecayed(ctx context.Context, b backend, productID uuid.UUID, lookupErr error) (bool, error) {
	if !errors.Is(lookupErr, shared.ErrProductNotFound) {
		return false, lookupErr
	}
	_, found, err := b.find(ctx, productID)
	if err != nil {
		return false, b.translate(err)
	}
	s.mu.RLock()
	_, held := s.current.Line(productID)
	s.mu.RUnlock()
	if !found && !held {
		return false, lookupErr
	}

	s.logger.Warn("dropping line for missing product", zap.String("product_id", productID.String()))
	if err := s.apply(ctx, b, productID, 0, nil); err != nil {
		return false, err
	}
	return true, lookupErr
}

type correction struct {
	productID uuid.UUID
	quantity  int
	product   *catalog.Product
}

// refresh attaches current catalog data to lines and reports the quantity
// corrections the backend needs. A catalog failure keeps the cached product data.
func (s *Store) refresh(ctx context.Context, lines []cart.Line) (*cart.Cart, []correction) {
	products, err := s.lookupAll(ctx, lines)
	if err != nil {
		s.logger.Warn("catalog unavailable, keeping cached product data", zap.Error(err))
	}

	next := cart.NewCart()
	var corrections []correction
	for _, l := range lines {
		if err == nil {
			product, ok := products[l.ProductID]
			if !ok {
				s.logger.Warn("dropping line for missing product", zap.String("product_id", l.ProductID.String()))
				corrections = append(corrections, correction{productID: l.ProductID})
				continue
			}
			l.Product = product
			if q := cart.Clamp(l.Quantity, product.Stock); q != l.Quantity {
				corrections = append(corrections, correction{productID: l.ProductID, quantity: q, product: product})
				l.Quantity = q
			}
		}
		if l.Quantity == 0 {
			continue
		}
		if err := next.Set(l); err != nil {
			s.logger.Warn("skipping invalid cart line", zap.String("product_id", l.ProductID.String()), zap.Error(err))
		}
	}
	return next, corrections
}

// persistCorrections writes refresh corrections back to the backend. Failures are
// logged only: the next refresh computes the same corrections again.
func (s *Store) persistCorrections(ctx context.Context, b backend, corrections []correction) {
	for _, c := range corrections {
		var err error
		if c.quantity == 0 {
			err = b.remove(ctx, c.productID)
		} else {
			_, err = b.put(ctx, c.productID, c.quantity, c.product)
		}
		if err != nil {
			s.logger.Warn("failed to persist cart correction",
				zap.String("product_id", c.productID.String()),
				zap.Int("quantity", c.quantity),
				zap.Error(err),
			)
		}
	}
}

// lookupAll resolves the products of lines in one catalog call. Products the
// catalog no longer has are absent from the result.
func (s *Store) lookupAll(ctx context.Context, lines []cart.Line) (map[uuid.UUID]*catalog.Product, error) {
	products := make(map[uuid.UUID]*catalog.Product, len(lines))
	if len(lines) == 0 {
		return products, nil
	}
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	found, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, shared.ErrRemoteUnavailable.Wrap(err)
	}
	for i := range found {
		products[found[i].ID] = &found[i]
	}
	return products, nil
}

func (s *Store) lookup(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrProductNotFound) {
			return nil, shared.ErrProductNotFound.WithMessage("Product " + productID.String() + " not found")
		}
		return nil, shared.ErrRemoteUnavailable.Wrap(err)
	}
	return product, nil
}

func (s *Store) activeBackend() backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.identity.UserID(); ok {
		return remoteBackend{store: s.remote, userID: userID, cartID: s.remoteCartID}
	}
	return localBackend{cache: s.local}
}

func (s *Store) withLoading(fn func() error) error {
	s.loading.Add(1)
	defer s.loading.Add(-1)
	return fn()
}

func (s *Store) restore(prev *cart.Cart) {
	s.mu.Lock()
	s.current = prev
	s.mu.Unlock()
}

// adopt switches the store to the given identity and cart
func (s *Store) adopt(identity cart.SessionIdentity, cartID uuid.UUID, c *cart.Cart, state cart.ReconciliationState) {
	s.mu.Lock()
	s.identity = identity
	s.remoteCartID = cartID
	s.current = c
	s.state = state
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.subMu.Lock()
	if len(s.subscribers) == 0 {
		s.subMu.Unlock()
		return
	}
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	s.mu.RLock()
	snap := s.buildSnapshot(s.identity, s.state, s.current.Lines())
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) buildSnapshot(identity cart.SessionIdentity, state cart.ReconciliationState, lines []cart.Line) Snapshot {
	snap := Snapshot{
		Authenticated:  identity.IsAuthenticated(),
		Lines:          make([]SnapshotLine, 0, len(lines)),
		Total:          decimal.Zero,
		Loading:        s.Loading(),
		Reconciliation: state,
	}
	if userID, ok := identity.UserID(); ok {
		snap.UserID = &userID
	}
	for _, l := range lines {
		line := toSnapshotLine(l)
		snap.Lines = append(snap.Lines, line)
		snap.Total = snap.Total.Add(line.Subtotal)
		snap.ItemCount += line.Quantity
	}
	return snap
}

// aggregateScope is the device id while anonymous and the user id once authenticated
func (s *Store) aggregateScope(identity cart.SessionIdentity) string {
	if userID, ok := identity.UserID(); ok {
		return userID.String()
	}
	return s.scope
}

func (s *Store) publish(ctx context.Context, event shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish cart event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}

func (s *Store) publishUpdated(ctx context.Context, op string, productID *uuid.UUID) {
	if s.publisher == nil {
		return
	}
	s.mu.RLock()
	identity := s.identity
	c := s.current.Clone()
	s.mu.RUnlock()
	s.publish(ctx, cart.NewCartUpdatedEvent(s.aggregateScope(identity), identity.IsAuthenticated(), op, productID, c))
}
