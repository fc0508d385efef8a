package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/storefront/backend/internal/domain/cart"
)

// broadcastFeed delivers each published identity to every subscriber in
// subscription order. Handlers run on the publishing goroutine.
type broadcastFeed struct {
	mu       sync.Mutex
	handlers []feedSubscription
	next     int
}

type feedSubscription struct {
	id      int
	handler IdentityHandler
}

// NewIdentityFeed returns an IdentityFeed that fans deliveries out to subscribers
func NewIdentityFeed() IdentityFeed {
	return &broadcastFeed{}
}

// OnChange registers handler and returns its unsubscribe function
func (f *broadcastFeed) OnChange(handler IdentityHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	f.handlers = append(f.handlers, feedSubscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, sub := range f.handlers {
				if sub.id == id {
					f.handlers = append(f.handlers[:i:i], f.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers identity to every subscriber and joins their errors
func (f *broadcastFeed) Publish(ctx context.Context, identity cart.SessionIdentity) error {
	f.mu.Lock()
	subs := make([]feedSubscription, len(f.handlers))
	copy(subs, f.handlers)
	f.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, identity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
