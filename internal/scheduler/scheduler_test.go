package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsmith/picks-engine/internal/config"
)

type schedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *schedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *schedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestScheduler wires a scheduler to a fake clock: sleeps advance the
// clock instantly so rate-limit waits are observable without real time.
func newTestScheduler(t *testing.T, cfg config.SchedulerConfig, executor Executor) (*Scheduler, *schedClock) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	s := New(cfg, executor, logger)
	clock := &schedClock{now: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)}
	s.now = clock.Now
	s.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		clock.Advance(d)
		return nil
	}
	return s, clock
}

func defaultBudgetConfig(maxRequests int, window time.Duration) config.SchedulerConfig {
	return config.SchedulerConfig{
		DispatchSpacing: 100 * time.Millisecond,
		RateLimitGrace:  50 * time.Millisecond,
		DefaultBudget:   config.EndpointBudget{MaxRequests: maxRequests, Window: window},
	}
}

// enqueue runs Execute in a goroutine and blocks until the scheduler has
// the request queued, so tests control insertion order.
func enqueue(t *testing.T, s *Scheduler, req Request, results chan<- Result) {
	t.Helper()
	before := s.Stats().Queued
	go func() {
		data, err := s.Execute(context.Background(), req)
		results <- Result{Data: data, Err: err}
	}()
	require.Eventually(t, func() bool {
		return s.Stats().Queued > before
	}, time.Second, time.Millisecond)
}

func TestExecute_PriorityThenFIFO(t *testing.T) {
	var mu sync.Mutex
	var order []string
	executor := func(ctx context.Context, req Request) ([]byte, error) {
		mu.Lock()
		order = append(order, req.ID)
		mu.Unlock()
		return []byte("ok"), nil
	}

	s, _ := newTestScheduler(t, defaultBudgetConfig(100, time.Minute), executor)
	results := make(chan Result, 4)

	enqueue(t, s, Request{ID: "low", Endpoint: "odds", Priority: 1}, results)
	enqueue(t, s, Request{ID: "high", Endpoint: "odds", Priority: 9}, results)
	enqueue(t, s, Request{ID: "mid-a", Endpoint: "odds", Priority: 5}, results)
	enqueue(t, s, Request{ID: "mid-b", Endpoint: "odds", Priority: 5}, results)

	s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 4; i++ {
		res := <-results
		require.NoError(t, res.Err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, order)
}

func TestExecute_RetryRequeuesAtFrontOfTier(t *testing.T) {
	var mu sync.Mutex
	var order []string
	failedOnce := false
	executor := func(ctx context.Context, req Request) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, req.ID)
		if req.ID == "flaky" && !failedOnce {
			failedOnce = true
			return nil, errors.New("transient")
		}
		return []byte("ok"), nil
	}

	s, _ := newTestScheduler(t, defaultBudgetConfig(100, time.Minute), executor)
	results := make(chan Result, 2)

	enqueue(t, s, Request{ID: "flaky", Endpoint: "odds", Priority: 5, Retries: 2}, results)
	enqueue(t, s, Request{ID: "steady", Endpoint: "odds", Priority: 5}, results)

	s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 2; i++ {
		res := <-results
		require.NoError(t, res.Err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"flaky", "flaky", "steady"}, order,
		"retry must dispatch before a same-priority request queued earlier")
	assert.Equal(t, int64(1), s.Stats().Retried)
}

func TestExecute_RetriesExhaustedReportsFailure(t *testing.T) {
	executor := func(ctx context.Context, req Request) ([]byte, error) {
		if req.ID == "doomed" {
			return nil, errors.New("upstream down")
		}
		return []byte("ok"), nil
	}

	s, _ := newTestScheduler(t, defaultBudgetConfig(100, time.Minute), executor)
	results := make(chan Result, 1)

	enqueue(t, s, Request{ID: "doomed", Endpoint: "odds", Priority: 5, Retries: 2}, results)
	s.Start(context.Background())
	defer s.Stop()

	res := <-results
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "retries exhausted")

	// A failing request never blocks the queue.
	data, err := s.Execute(context.Background(), Request{ID: "after", Endpoint: "odds", Priority: 5})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(2), stats.Retried)
}

func TestExecute_RateLimitSlidingWindow(t *testing.T) {
	var mu sync.Mutex
	var dispatchTimes []time.Time

	s, clock := newTestScheduler(t, defaultBudgetConfig(2, time.Second), nil)
	s.executor = func(ctx context.Context, req Request) ([]byte, error) {
		mu.Lock()
		dispatchTimes = append(dispatchTimes, clock.Now())
		mu.Unlock()
		return []byte("ok"), nil
	}

	results := make(chan Result, 6)
	for i := 0; i < 6; i++ {
		enqueue(t, s, Request{Endpoint: "odds", Priority: 1}, results)
	}

	s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 6; i++ {
		res := <-results
		require.NoError(t, res.Err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, dispatchTimes, 6)
	sort.Slice(dispatchTimes, func(i, j int) bool { return dispatchTimes[i].Before(dispatchTimes[j]) })

	// No sliding window of one second may contain more than two dispatches.
	for i := 0; i+2 < len(dispatchTimes); i++ {
		gap := dispatchTimes[i+2].Sub(dispatchTimes[i])
		assert.GreaterOrEqual(t, gap, time.Second,
			"window invariant violated between dispatch %d and %d", i, i+2)
	}
	assert.Greater(t, s.Stats().RateLimitWaits, int64(0))
}

func TestExecute_CallerContextCancellation(t *testing.T) {
	block := make(chan struct{})
	executor := func(ctx context.Context, req Request) ([]byte, error) {
		<-block
		return []byte("ok"), nil
	}

	s, _ := newTestScheduler(t, defaultBudgetConfig(100, time.Minute), executor)
	s.Start(context.Background())
	defer func() {
		close(block)
		s.Stop()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Execute(ctx, Request{Endpoint: "odds", Priority: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecute_AssignsRequestID(t *testing.T) {
	var captured Request
	executor := func(ctx context.Context, req Request) ([]byte, error) {
		captured = req
		return []byte("ok"), nil
	}

	s, _ := newTestScheduler(t, defaultBudgetConfig(100, time.Minute), executor)
	s.Start(context.Background())
	defer s.Stop()

	_, err := s.Execute(context.Background(), Request{Endpoint: "odds", Priority: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, captured.ID)
}
