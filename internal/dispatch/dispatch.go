// Package dispatch implements the sharded dispatcher: per-account FIFO
// queues drained by a fixed worker pool, preserving per-account order
// while letting distinct accounts make progress in parallel.
//
// Grounded on original_source/src/{processor.rs,reader.rs,client/queue.rs}:
// a notification channel of account ids (async_channel in the original,
// an unbounded mutex+slice+sync.Cond readySignal here — not a buffered Go
// channel, which would impose a fixed capacity and could block Submit,
// contradicting spec.md §5/§9's "preserve unbounded channels" and
// "the ready signal do[es] not block producers"), one unbounded
// per-account queue lazily created under a coarse lock
// (CQSenders/CQReceivers there, accountQueue here — a mutex-guarded
// append-only slice, the same growable-without-a-fixed-channel-capacity
// shape as readySignal, generalized to carry events instead of account
// ids), and a fixed worker pool draining whatever is already enqueued per
// notification (processor.rs's start_processors loop). The per-account-
// mutex discipline during drain is cross-grounded on
// other_examples/6882270b_KirillZiborov-TxExecutor's ensureAcct pattern.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"

	"github.com/dmalm9/payments-engine/internal/ledger"
	"github.com/dmalm9/payments-engine/internal/telemetry"
)

// rejectLogCacheSize bounds how many distinct (account, reason) pairs are
// remembered for log rate-limiting (see Dispatcher.record). A degenerate
// input — e.g. a million duplicate-id withdrawals on one account — would
// otherwise flood the log sink at debug verbosity; this caps it to one
// debug line per pair while the pair stays in the cache. A pair evicted by
// newer distinct pairs is logged again the next time it occurs.
const rejectLogCacheSize = 4096

// Status mirrors original_source/src/reader.rs's ReadingStatusTypes.
type Status uint8

const (
	NotStarted Status = iota
	InProgress
	Done
	Aborted
)

// accountQueue is an unbounded, mutex-guarded FIFO for one account's
// events. An append-only slice, swapped out whole by popAll, stands in for Rust's
// mpsc::unbounded_channel: Go channels are not natively growable, so the
// queue itself is just a mutex plus a slice, with the shared ready signal
// (Dispatcher.ready) playing the role of the channel's wakeup.
type accountQueue struct {
	mu     sync.Mutex
	events []ledger.Event
}

func (q *accountQueue) push(ev ledger.Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// popAll removes and returns every event currently queued, non-blocking.
// Returns nil if the queue was empty.
func (q *accountQueue) popAll() []ledger.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

func (q *accountQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// readySignal is the shared MPMC "ready" channel of spec.md §4.3: a
// multi-producer/multi-consumer carrier of account ids whose queue has
// had an item enqueued since last drained. It is deliberately unbounded —
// push (from Submit) never blocks regardless of backlog — and duplicate
// account ids are expected and harmless (§4.3 step 3). Implemented as a
// mutex-guarded slice with a sync.Cond wakeup rather than a buffered Go
// channel, because a channel's capacity is fixed at construction and
// would eventually block Submit under enough backlog, which spec.md §5's
// Backpressure clause and §9's "preserve unbounded channels" rule both
// explicitly forbid.
type readySignal struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []uint16
	closed bool
}

func newReadySignal() *readySignal {
	r := &readySignal{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// push appends id and wakes one waiting consumer. Never blocks.
func (r *readySignal) push(id uint16) {
	r.mu.Lock()
	r.queue = append(r.queue, id)
	r.mu.Unlock()
	r.cond.Signal()
}

// pop blocks until an id is available or the signal has been closed and
// fully drained, in which case it returns (0, false).
func (r *readySignal) pop() (uint16, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.queue) == 0 && !r.closed {
		r.cond.Wait()
	}
	if len(r.queue) == 0 {
		return 0, false
	}
	id := r.queue[0]
	r.queue = r.queue[1:]
	return id, true
}

// close marks the signal closed and wakes every blocked consumer. Workers
// observing closed + empty queue exit (spec.md §4.3 Completion).
func (r *readySignal) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Dispatcher is the sharded dispatch engine (spec.md §4.3). Submit is
// called by the input driver (one task); N worker goroutines started by
// Run drain per-account queues.
type Dispatcher struct {
	registry *ledger.Registry
	metrics  *telemetry.Metrics

	queuesMu sync.Mutex
	queues   map[uint16]*accountQueue

	ready *readySignal

	statusMu sync.Mutex
	status   Status

	rejectLog *lru.Cache
}

// New returns a Dispatcher routing events into registry. metrics may be
// nil (telemetry is optional, see SPEC_FULL.md §10).
func New(registry *ledger.Registry, metrics *telemetry.Metrics) *Dispatcher {
	rejectLog, err := lru.New(rejectLogCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// rejectLogCacheSize never is.
		panic(err)
	}
	return &Dispatcher{
		registry:  registry,
		metrics:   metrics,
		queues:    make(map[uint16]*accountQueue),
		rejectLog: rejectLog,
		ready:     newReadySignal(),
	}
}

// queueFor returns (creating if absent) the account's queue, under a
// coarse exclusive guard — the same "lazily created under a coarse
// exclusive guard" shape spec.md §4.3 step 1 requires for queue creation,
// independent of ledger.Registry's own double-checked lookup for account
// state.
func (d *Dispatcher) queueFor(id uint16) *accountQueue {
	d.queuesMu.Lock()
	defer d.queuesMu.Unlock()
	q, ok := d.queues[id]
	if !ok {
		q = &accountQueue{}
		d.queues[id] = q
		if d.metrics != nil {
			d.metrics.AccountsCreated.Inc()
		}
	}
	return q
}

// Submit routes ev onto its account's queue and publishes a ready
// notification. Never blocks, never loses events, per spec.md §4.3.
func (d *Dispatcher) Submit(ev ledger.Event) {
	d.queueFor(ev.AccountID).push(ev)
	d.ready.push(ev.AccountID)
}

// SetStatus transitions the reading-status cell. The input driver calls
// this with Done on normal EOF or Aborted on parser failure, then calls
// Close.
func (d *Dispatcher) SetStatus(s Status) {
	d.statusMu.Lock()
	d.status = s
	d.statusMu.Unlock()
}

func (d *Dispatcher) getStatus() Status {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	return d.status
}

// Close closes the ready signal, letting workers observe completion once
// they drain whatever was already published. Call only after SetStatus
// has been set to Done or Aborted, and only once.
func (d *Dispatcher) Close() {
	d.ready.close()
}

// Run starts n workers and blocks until all of them exit (i.e. until the
// ready signal is closed and drained). This is the "driver joins all
// workers before invoking emission" step of spec.md §4.3.
func (d *Dispatcher) Run(n int) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(worker int) {
			defer wg.Done()
			d.workerLoop(worker)
		}(i)
	}
	wg.Wait()
}

// workerLoop implements spec.md §4.3's worker loop verbatim: pop an
// account id from the ready signal (blocking), drain whatever that
// account's queue already holds under its exclusive handle, repeat until
// the signal is closed and drained.
func (d *Dispatcher) workerLoop(worker int) {
	for {
		id, ok := d.ready.pop()
		if !ok {
			break
		}
		d.drain(id)
	}
	log.Debug("dispatcher worker exiting", "worker", worker)
}

// drain pops every event currently enqueued for id (non-blocking) and
// applies them in order under the account's exclusive handle. A second
// worker racing to drain the same id after the first already emptied the
// queue simply finds nothing to do, which is safe (spec.md §4.3).
func (d *Dispatcher) drain(id uint16) {
	acct := d.registry.GetOrCreate(id)
	acct.Lock()
	defer acct.Unlock()

	events := d.queueFor(id).popAll()
	for _, ev := range events {
		err := acct.Apply(ev)
		d.record(ev, err)
	}
}

func (d *Dispatcher) record(ev ledger.Event, err error) {
	if err == nil {
		if d.metrics != nil {
			d.metrics.EventsProcessed.WithLabelValues(ev.Kind.String()).Inc()
		}
		return
	}
	applyErr, ok := err.(*ledger.ApplyError)
	if !ok {
		return
	}
	if d.metrics != nil {
		d.metrics.EventsRejected.WithLabelValues(applyErr.Reason.String()).Inc()
	}
	d.logRejectionRateLimited(ev.AccountID, applyErr)
}

// logRejectionRateLimited emits one debug log line per distinct
// (account, reason) pair seen so far, using an LRU of recently-logged
// keys to bound memory and log volume (SPEC_FULL.md §7).
func (d *Dispatcher) logRejectionRateLimited(accountID uint16, err *ledger.ApplyError) {
	key := fmt.Sprintf("%d:%s", accountID, err.Reason)
	if _, seen := d.rejectLog.Get(key); seen {
		return
	}
	d.rejectLog.Add(key, struct{}{})
	log.Debug("event rejected", "account", accountID, "tx", err.TxID, "reason", err.Reason)
}

// QueueDepth sums the currently queued event count across all known
// accounts. Nothing in the engine calls it, and the dispatcher does not
// update telemetry's dispatcher_queue_depth gauge.
func (d *Dispatcher) QueueDepth() int {
	d.queuesMu.Lock()
	queues := make([]*accountQueue, 0, len(d.queues))
	for _, q := range d.queues {
		queues = append(queues, q)
	}
	d.queuesMu.Unlock()

	total := 0
	for _, q := range queues {
		total += q.len()
	}
	return total
}
