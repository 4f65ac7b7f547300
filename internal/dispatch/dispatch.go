// Package dispatch serializes work per key while keeping distinct keys
// parallel.
//
// Each key gets a lazily created single-consumer queue: messages from one
// user run strictly in submission order, and a message arriving while the
// previous one is mid-flight queues behind it rather than interrupting it.
package dispatch

import "sync"

const defaultQueueDepth = 16

// Dispatcher owns one worker goroutine per key. Workers are created on
// first contact and retained until Close.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[string]chan func()
	wg     sync.WaitGroup
	sends  sync.WaitGroup
	depth  int
	closed bool
}

// New returns a Dispatcher whose per-key queues buffer up to depth tasks;
// depth <= 0 uses a small default. Submitting past the buffer blocks the
// producer, which is the desired backpressure.
func New(depth int) *Dispatcher {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	return &Dispatcher{queues: make(map[string]chan func()), depth: depth}
}

// Submit enqueues task on the key's queue, creating the worker if needed.
// Returns false after Close. A Submit that passed the closed check is
// guaranteed delivery: Close waits for it before closing the queue.
func (d *Dispatcher) Submit(key string, task func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	q, ok := d.queues[key]
	if !ok {
		q = make(chan func(), d.depth)
		d.queues[key] = q
		d.wg.Add(1)
		go d.run(q)
	}
	d.sends.Add(1)
	d.mu.Unlock()

	q <- task
	d.sends.Done()
	return true
}

func (d *Dispatcher) run(q chan func()) {
	defer d.wg.Done()
	for task := range q {
		task()
	}
}

// Close stops accepting work, drains every queue, and waits for workers to
// finish their in-flight tasks. Close and Submit are safe to race: sends
// that were already accepted complete before their queues are closed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	// In-flight Submit sends drain naturally because the workers are still
	// consuming; only once they finish is it safe to close the channels.
	d.sends.Wait()

	d.mu.Lock()
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
