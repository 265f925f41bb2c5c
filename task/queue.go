// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

// Package task provides the engine's worker-thread task queue: a FIFO
// work queue drained by a fixed set of goroutine workers, and a
// separate FIFO message queue drained only by an explicit call to
// DispatchMessages, by convention from the main thread. It is the
// mechanism by which asset imports move bytes from disk, on a worker,
// to GPU-object construction, on the main thread.
package task

import (
	"runtime"
	"sync"
)

// MessageSink is the only way a worker may hand a Message back to the
// main thread. Workers receive one as the argument to Work.Execute; it
// deliberately does not expose DispatchMessages, so a worker cannot
// drain the queue it is supposed to only feed.
type MessageSink interface {
	PushMessage(m Message)
}

// Work is a unit of work run on a worker goroutine.
type Work interface {
	Execute(sink MessageSink)
}

// WorkFunc adapts a plain function to Work.
type WorkFunc func(sink MessageSink)

// Execute implements Work.
func (f WorkFunc) Execute(sink MessageSink) { f(sink) }

// Message is a unit of completion logic run on the main thread by
// DispatchMessages.
type Message interface {
	OnDispatch()
}

// MessageFunc adapts a plain function to Message.
type MessageFunc func()

// OnDispatch implements Message.
func (f MessageFunc) OnDispatch() { f() }

// Queue runs Work on a fixed pool of worker goroutines and buffers
// Messages posted by those workers until the owning thread calls
// DispatchMessages.
type Queue struct {
	workMu   sync.Mutex
	workCond *sync.Cond
	work     []Work
	exiting  bool
	wg       sync.WaitGroup

	msgMu    sync.Mutex
	messages []Message
}

// New starts a Queue with the given number of worker goroutines. A
// count of zero or less defaults to runtime.NumCPU(), with a floor of 4
// per spec §6.4's asset_worker_count default.
func New(workers int) *Queue {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 4 {
			workers = 4
		}
	}
	q := &Queue{}
	q.workCond = sync.NewCond(&q.workMu)
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.runWorker()
	}
	return q
}

// Schedule enqueues work for a worker goroutine. Dispatch order across
// workers is unordered and unfair; callers that need ordering must
// encode it in the messages they post from Execute.
func (q *Queue) Schedule(w Work) {
	q.workMu.Lock()
	q.work = append(q.work, w)
	q.workMu.Unlock()
	q.workCond.Signal()
}

// PushMessage implements MessageSink. It is safe to call concurrently
// from any worker.
func (q *Queue) PushMessage(m Message) {
	q.msgMu.Lock()
	q.messages = append(q.messages, m)
	q.msgMu.Unlock()
}

// DispatchMessages atomically swaps out the message queue and runs each
// message's OnDispatch, in FIFO order, on the calling goroutine. Must
// not be called from a worker goroutine — by convention it is called
// once per frame from the main thread. Messages posted during this call
// (from a worker racing in) are deferred to the next call.
func (q *Queue) DispatchMessages() {
	q.msgMu.Lock()
	pending := q.messages
	q.messages = nil
	q.msgMu.Unlock()

	for _, m := range pending {
		m.OnDispatch()
	}
}

// Shutdown signals every worker to exit once its current work (if any)
// completes, and waits for them to return.
func (q *Queue) Shutdown() {
	q.workMu.Lock()
	q.exiting = true
	q.workMu.Unlock()
	q.workCond.Broadcast()
	q.wg.Wait()
}

// runWorker is the body of each worker goroutine: block until there is
// work or an exit signal, pop exactly one item, run it to completion,
// loop. Works run to completion — there is no cancellation.
func (q *Queue) runWorker() {
	defer q.wg.Done()
	for {
		q.workMu.Lock()
		for len(q.work) == 0 && !q.exiting {
			q.workCond.Wait()
		}
		if q.exiting {
			// Shutdown wins over any remaining backlog: in-flight work
			// already popped before the exit signal runs to completion,
			// but queued-and-not-yet-started work is abandoned.
			q.workMu.Unlock()
			return
		}
		w := q.work[0]
		q.work = q.work[1:]
		q.workMu.Unlock()

		w.Execute(q)
	}
}
