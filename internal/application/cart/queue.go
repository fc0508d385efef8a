package cart

import "sync"

// mutationQueue serializes mutations on one cart in issue order.
// Each call reserves the tail slot on entry and waits for its predecessor
// to finish, so a second mutation observes the first one's result.
type mutationQueue struct {
	mu   sync.Mutex
	tail chan struct{}
}

func newMutationQueue() *mutationQueue {
	ch := make(chan struct{})
	close(ch)
	return &mutationQueue{tail: ch}
}

// run executes fn once every previously issued mutation has completed.
// The slot is released when fn returns, including on panic.
func (q *mutationQueue) run(fn func() error) error {
	q.mu.Lock()
	prev := q.tail
	done := make(chan struct{})
	q.tail = done
	q.mu.Unlock()

	defer close(done)
	<-prev
	return fn()
}
