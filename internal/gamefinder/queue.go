package gamefinder

import (
	"log"
	"sync"
	"time"
)

// EventQueue serializes all mutations of the match graph onto a single
// worker goroutine. Items execute strictly in enqueue order, so the graph
// needs no internal locking.
type EventQueue struct {
	ops  chan func()
	tick time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	stopped   chan struct{}
	wg        sync.WaitGroup
}

// NewEventQueue creates a queue with the given tick interval. A tick item
// is appended to the queue each interval once Start has been called.
func NewEventQueue(tick time.Duration) *EventQueue {
	return &EventQueue{
		ops:     make(chan func(), 64),
		tick:    tick,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the worker and the tick loop. onTick runs on the worker
// like any other queued item.
func (q *EventQueue) Start(onTick func()) {
	q.startOnce.Do(func() {
		q.wg.Add(1)
		go q.run()

		if onTick != nil && q.tick > 0 {
			q.wg.Add(1)
			go q.tickLoop(onTick)
		}
	})
}

// Stop shuts the queue down. Items already enqueued drain before the
// worker exits; items dispatched after Stop are abandoned.
func (q *EventQueue) Stop() {
	q.stopOnce.Do(func() {
		close(q.done)
		q.wg.Wait()
	})
}

// Dispatch enqueues a fire-and-forget item. Returns false if the queue
// has been stopped and the item was abandoned.
func (q *EventQueue) Dispatch(fn func()) bool {
	select {
	case <-q.stopped:
		return false
	default:
	}
	select {
	case q.ops <- fn:
		return true
	case <-q.stopped:
		return false
	}
}

// Serialized enqueues fn and blocks until the worker has executed it.
// Used for reads that must observe a consistent graph. Returns false if
// the queue was stopped before fn could run.
func (q *EventQueue) Serialized(fn func()) bool {
	ran := make(chan struct{})
	ok := q.Dispatch(func() {
		defer close(ran)
		fn()
	})
	if !ok {
		return false
	}
	select {
	case <-ran:
		return true
	case <-q.stopped:
		// Stop drains the queue, so give the item a last chance to finish
		select {
		case <-ran:
			return true
		case <-time.After(time.Second):
			return false
		}
	}
}

// run is the single worker loop
func (q *EventQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case fn := <-q.ops:
			q.exec(fn)
		case <-q.done:
			close(q.stopped)
			// Drain items enqueued before the shutdown
			for {
				select {
				case fn := <-q.ops:
					q.exec(fn)
				default:
					return
				}
			}
		}
	}
}

// exec runs a single item, logging and swallowing panics so one bad
// item cannot take the worker down
func (q *EventQueue) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("EventQueue: recovered from panic in queued item: %v", r)
		}
	}()
	fn()
}

func (q *EventQueue) tickLoop(onTick func()) {
	defer q.wg.Done()
	ticker := time.NewTicker(q.tick)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			q.Dispatch(onTick)
		}
	}
}
