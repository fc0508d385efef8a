package cart

import (
	"sync"

	"github.com/google/uuid"
)

// CartQueues hands out one mutation queue per remote cart, keyed by the owning user.
// Every session signed in as the same user shares that queue, so read-modify-write
// cycles against one cart never interleave across devices. A queue is dropped once
// nothing holds or waits on it.
type CartQueues struct {
	mu     sync.Mutex
	queues map[uuid.UUID]*sharedQueue
}

type sharedQueue struct {
	queue *mutationQueue
	refs  int
}

// NewCartQueues returns an empty set of per-cart queues
func NewCartQueues() *CartQueues {
	return &CartQueues{queues: make(map[uuid.UUID]*sharedQueue)}
}

// run executes fn once every earlier mutation on userID's cart has completed
func (c *CartQueues) run(userID uuid.UUID, fn func() error) error {
	c.mu.Lock()
	q, ok := c.queues[userID]
	if !ok {
		q = &sharedQueue{queue: newMutationQueue()}
		c.queues[userID] = q
	}
	q.refs++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		q.refs--
		if q.refs == 0 {
			delete(c.queues, userID)
		}
		c.mu.Unlock()
	}()
	return q.queue.run(fn)
}

// Len returns the number of carts with a mutation held or waiting
func (c *CartQueues) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queues)
}
