package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oddsmith/picks-engine/internal/config"
)

// Executor performs the actual upstream call for one request. Injected
// so the scheduler owns ordering and quota without knowing transport.
type Executor func(ctx context.Context, req Request) ([]byte, error)

// Request is one unit of schedulable work.
type Request struct {
	ID       string
	Endpoint string
	Priority int // higher dispatches sooner
	Retries  int
	Params   map[string]string
}

// Result is delivered to the original caller when a request reaches a
// terminal state.
type Result struct {
	Data []byte
	Err  error
}

// requestState tracks the lifecycle of a queued request.
type requestState int

const (
	stateQueued requestState = iota
	stateDispatched
	stateSucceeded
	stateFailed
)

type item struct {
	req      Request
	seq      int64
	state    requestState
	resultCh chan Result
}

// queue orders by descending priority, then ascending sequence number so
// equal priorities dispatch FIFO. Retries reuse negative sequence
// numbers to land at the front of their tier.
type queue []*item

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].req.Priority != q[j].req.Priority {
		return q[i].req.Priority > q[j].req.Priority
	}
	return q[i].seq < q[j].seq
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x interface{}) { *q = append(*q, x.(*item)) }

func (q *queue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

// rateWindow holds the dispatch history for one endpoint.
type rateWindow struct {
	timestamps  []time.Time
	maxRequests int
	window      time.Duration
}

func (w *rateWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	w.timestamps = w.timestamps[i:]
}

// waitFor returns how long dispatch must wait before the window admits
// another request, zero when under budget.
func (w *rateWindow) waitFor(now time.Time) time.Duration {
	w.prune(now)
	if len(w.timestamps) < w.maxRequests {
		return 0
	}
	return w.timestamps[0].Add(w.window).Sub(now)
}

func (w *rateWindow) record(now time.Time) {
	w.timestamps = append(w.timestamps, now)
}

// Stats is a point-in-time view of scheduler activity.
type Stats struct {
	Queued         int   `json:"queued"`
	Dispatched     int64 `json:"dispatched"`
	Succeeded      int64 `json:"succeeded"`
	Failed         int64 `json:"failed"`
	Retried        int64 `json:"retried"`
	RateLimitWaits int64 `json:"rate_limit_waits"`
}

// Scheduler serializes outbound calls to a quota-constrained upstream.
// One dispatch goroutine drains a priority queue, waiting out each
// endpoint's sliding-window budget instead of failing on exhaustion.
type Scheduler struct {
	mu       sync.Mutex
	queue    queue
	seq      int64
	retrySeq int64
	windows  map[string]*rateWindow

	cfg      config.SchedulerConfig
	executor Executor
	logger   *logrus.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	wake   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dispatched     int64
	succeeded      int64
	failed         int64
	retried        int64
	rateLimitWaits int64
}

// New creates a scheduler. Call Start before Execute.
func New(cfg config.SchedulerConfig, executor Executor, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		wake:     make(chan struct{}, 1),
		windows:  make(map[string]*rateWindow),
		cfg:      cfg,
		executor: executor,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the dispatch loop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop halts dispatching. Queued requests are abandoned; their callers
// see the context error from their own Execute call.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Execute queues req and blocks until it reaches a terminal state or ctx
// is done. Requests without an ID are assigned one.
func (s *Scheduler) Execute(ctx context.Context, req Request) ([]byte, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	it := &item{
		req:      req,
		state:    stateQueued,
		resultCh: make(chan Result, 1),
	}

	s.mu.Lock()
	s.seq++
	it.seq = s.seq
	heap.Push(&s.queue, it)
	s.mu.Unlock()
	s.signal()

	s.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"endpoint":   req.Endpoint,
		"priority":   req.Priority,
	}).Debug("Queued request")

	select {
	case res := <-it.resultCh:
		return res.Data, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats returns current scheduler statistics.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Queued:         len(s.queue),
		Dispatched:     s.dispatched,
		Succeeded:      s.succeeded,
		Failed:         s.failed,
		Retried:        s.retried,
		RateLimitWaits: s.rateLimitWaits,
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		it := s.next(ctx)
		if it == nil {
			return
		}
		if !s.dispatch(ctx, it) {
			return
		}
		if s.cfg.DispatchSpacing > 0 {
			if err := s.sleep(ctx, s.cfg.DispatchSpacing); err != nil {
				return
			}
		}
	}
}

// next pops the highest-priority item, blocking until one arrives or ctx
// is done.
func (s *Scheduler) next(ctx context.Context) *item {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			it := heap.Pop(&s.queue).(*item)
			s.mu.Unlock()
			return it
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-ctx.Done():
			return nil
		}
	}
}

// dispatch waits out the endpoint's rate window, runs the executor, and
// either delivers the result or requeues the request at the front of its
// priority tier. Returns false when ctx ended mid-dispatch.
func (s *Scheduler) dispatch(ctx context.Context, it *item) bool {
	w := s.windowFor(it.req.Endpoint)

	for {
		s.mu.Lock()
		wait := w.waitFor(s.now())
		if wait <= 0 {
			w.record(s.now())
			s.mu.Unlock()
			break
		}
		s.rateLimitWaits++
		s.mu.Unlock()

		s.logger.WithFields(logrus.Fields{
			"endpoint": it.req.Endpoint,
			"wait":     wait.String(),
		}).Debug("Rate window at capacity, waiting")
		if err := s.sleep(ctx, wait+s.cfg.RateLimitGrace); err != nil {
			return false
		}
	}

	it.state = stateDispatched
	data, err := s.executor(ctx, it.req)

	s.mu.Lock()
	s.dispatched++
	s.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			it.resultCh <- Result{Err: ctx.Err()}
			return false
		}
		if it.req.Retries > 0 {
			it.req.Retries--
			it.state = stateQueued
			s.mu.Lock()
			s.retried++
			s.retrySeq--
			it.seq = s.retrySeq
			heap.Push(&s.queue, it)
			s.mu.Unlock()
			s.logger.WithFields(logrus.Fields{
				"request_id":   it.req.ID,
				"endpoint":     it.req.Endpoint,
				"retries_left": it.req.Retries,
				"error":        err.Error(),
			}).Warn("Request failed, requeued for retry")
			return true
		}

		it.state = stateFailed
		s.mu.Lock()
		s.failed++
		s.mu.Unlock()
		s.logger.WithFields(logrus.Fields{
			"request_id": it.req.ID,
			"endpoint":   it.req.Endpoint,
			"error":      err.Error(),
		}).Error("Request failed, retries exhausted")
		it.resultCh <- Result{Err: fmt.Errorf("retries exhausted for %s: %w", it.req.Endpoint, err)}
		return true
	}

	it.state = stateSucceeded
	s.mu.Lock()
	s.succeeded++
	s.mu.Unlock()
	it.resultCh <- Result{Data: data}
	return true
}

// windowFor returns the rate window for endpoint, creating it from the
// configured budget (or the default) on first use.
func (s *Scheduler) windowFor(endpoint string) *rateWindow {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.windows[endpoint]; ok {
		return w
	}
	budget, ok := s.cfg.Endpoints[endpoint]
	if !ok {
		budget = s.cfg.DefaultBudget
	}
	w := &rateWindow{
		maxRequests: budget.MaxRequests,
		window:      budget.Window,
	}
	s.windows[endpoint] = w
	return w
}
