package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ReconciliationEngine reacts to identity transitions of one Store.
//
// On sign-in it merges the anonymous cart exactly once: a non-empty remote cart wins
// and the local lines are discarded, otherwise the local lines are imported with
// quantities re-clamped to live stock. Either way the device cache is cleared and the
// store adopts the remote cart. On sign-out the store returns to an empty anonymous cart.
//
// Transitions run inside the store's mutation queue, and sign-in also holds the
// user's shared cart queue, so they never interleave with a mutation. Duplicate
// deliveries for the same user are collapsed while in flight and become no-ops
// once the merge is done.
type ReconciliationEngine struct {
	store  *Store
	flight singleflight.Group
}

func newReconciliationEngine(store *Store) *ReconciliationEngine {
	return &ReconciliationEngine{store: store}
}

type reconcileResult struct {
	cartID   uuid.UUID
	cart     *cart.Cart
	outcome  cart.ReconciliationOutcome
	imported int
	dropped  int
}

// HandleIdentityChange applies one identity delivery. It is safe to call repeatedly
// with the same identity. A failed sign-in leaves the store anonymous with the
// reconciliation pending, so the next delivery retries it.
func (e *ReconciliationEngine) HandleIdentityChange(ctx context.Context, identity cart.SessionIdentity) error {
	ctx = context.WithoutCancel(ctx)
	userID, ok := identity.UserID()
	if !ok {
		return e.signOut(ctx, false)
	}
	_, err, _ := e.flight.Do(userID.String(), func() (any, error) {
		return nil, e.signIn(ctx, userID)
	})
	return err
}

// SignOut returns the store to an empty anonymous cart and clears the device cache,
// even if the session was already anonymous.
func (e *ReconciliationEngine) SignOut(ctx context.Context) error {
	return e.signOut(context.WithoutCancel(ctx), true)
}

func (e *ReconciliationEngine) signIn(ctx context.Context, userID uuid.UUID) error {
	s := e.store
	target := cart.Authenticated(userID)

	return s.queue.run(func() error {
		current := s.Identity()
		if current.Equal(target) && s.ReconciliationState().IsDone() {
			return nil
		}
		if current.IsAuthenticated() {
			s.logger.Info("session switched user, resetting cart",
				zap.String("previous", current.String()),
				zap.String("user_id", userID.String()),
			)
			s.adopt(cart.Anonymous(), uuid.Nil, cart.NewCart(), cart.ReconciliationPending)
		}

		ctx, span := tracer.Start(ctx, "cart.reconcile")
		defer span.End()
		span.SetAttributes(attribute.String("cart.user_id", userID.String()))

		var result reconcileResult
		err := s.withLoading(func() error {
			return s.carts.run(userID, func() error {
				var err error
				result, err = e.reconcile(ctx, userID)
				return err
			})
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("cart reconciliation failed, staying in local mode",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			s.notify()
			return err
		}

		s.adopt(target, result.cartID, result.cart, cart.ReconciliationDone)
		span.SetAttributes(attribute.String("cart.reconcile.outcome", string(result.outcome)))
		s.logger.Info("cart reconciled",
			zap.String("user_id", userID.String()),
			zap.String("outcome", string(result.outcome)),
			zap.Int("imported", result.imported),
			zap.Int("dropped", result.dropped),
		)
		s.notify()
		s.publish(ctx, cart.NewCartReconciledEvent(userID, result.cartID, result.outcome, result.imported, result.dropped))
		return nil
	})
}

func (e *ReconciliationEngine) reconcile(ctx context.Context, userID uuid.UUID) (reconcileResult, error) {
	s := e.store
	result := reconcileResult{}

	local, err := s.local.Load(ctx)
	if err != nil {
		s.logger.Warn("local cart unavailable, reconciling as empty", zap.Error(err))
		local = cart.NewCart()
	}

	cartID, err := s.remote.EnsureCart(ctx, userID)
	if err != nil {
		return result, shared.ErrRemoteUnavailable.Wrap(err)
	}
	result.cartID = cartID

	items, err := s.remote.ListItems(ctx, cartID)
	if err != nil {
		return result, shared.ErrRemoteUnavailable.Wrap(err)
	}

	switch {
	case len(items) > 0:
		result.outcome = cart.OutcomeRemoteKept
		result.dropped = local.Len()
	case !local.IsEmpty():
		result.outcome = cart.OutcomeImported
		if err := e.importLines(ctx, cartID, local, &result); err != nil {
			e.abortImport(ctx, cartID)
			return result, err
		}
		// Re-read so the adopted cart carries row ids and catalog data.
		if items, err = s.remote.ListItems(ctx, cartID); err != nil {
			return result, shared.ErrRemoteUnavailable.Wrap(err)
		}
	default:
		result.outcome = cart.OutcomeNoop
	}

	if err := s.local.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear local cart after reconciliation", zap.Error(err))
	}

	// Remote rows may predate a stock drop: clamp them before they become the active cart.
	var corrections []correction
	result.cart, corrections = s.refresh(ctx, items)
	s.persistCorrections(ctx, remoteBackend{store: s.remote, userID: userID, cartID: cartID}, corrections)
	return result, nil
}

// importLines copies local lines into the empty remote cart, re-clamping each
// against current stock. Lines for missing or sold-out products are dropped.
func (e *ReconciliationEngine) importLines(ctx context.Context, cartID uuid.UUID, local *cart.Cart, result *reconcileResult) error {
	s := e.store
	for _, line := range local.Lines() {
		product, err := s.lookup(ctx, line.ProductID)
		if errors.Is(err, shared.ErrProductNotFound) {
			result.dropped++
			continue
		}
		if err != nil {
			return err
		}

		quantity := cart.Clamp(line.Quantity, product.Stock)
		if quantity == 0 {
			result.dropped++
			continue
		}
		if _, err := s.remote.UpsertItem(ctx, cartID, line.ProductID, quantity); err != nil {
			return shared.ErrRemoteUnavailable.Wrap(err)
		}
		result.imported++
	}
	return nil
}

// abortImport empties the remote cart after a partial import. The remote cart was
// empty before the import, and the local cache is kept, so the retry starts clean.
func (e *ReconciliationEngine) abortImport(ctx context.Context, cartID uuid.UUID) {
	if err := e.store.remote.ClearItems(ctx, cartID); err != nil {
		e.store.logger.Warn("failed to roll back partial cart import",
			zap.String("cart_id", cartID.String()),
			zap.Error(err),
		)
	}
}

func (e *ReconciliationEngine) signOut(ctx context.Context, force bool) error {
	s := e.store
	return s.queue.run(func() error {
		previous := s.Identity()
		if !force && !previous.IsAuthenticated() {
			// Already anonymous: keep the guest cart.
			return nil
		}

		s.adopt(cart.Anonymous(), uuid.Nil, cart.NewCart(), cart.ReconciliationPending)
		s.notify()

		if err := s.local.Clear(ctx); err != nil {
			s.logger.Error("failed to clear local cart on sign-out", zap.Error(err))
			return shared.ErrLocalCacheUnavailable.Wrap(err)
		}
		s.logger.Info("session signed out", zap.String("previous", previous.String()))
		return nil
	})
}
