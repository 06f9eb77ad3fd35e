// Package scheduler implements the external API scheduler (C2): a
// serial FIFO queue fronting one or more token-bucket rate limiters,
// with credential hot-reload, 429 retry, 403 credential-expiry pause,
// and a soft 80%-of-window throttle.
package scheduler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrCredentialExpired is returned for any task rejected while the
// scheduler is HardPaused.
var ErrCredentialExpired = errors.New("scheduler: credential expired")

// ErrShuttingDown is returned for queued tasks that never dispatch
// because the scheduler is closing.
var ErrShuttingDown = errors.New("scheduler: shutting down")

// ErrRateLimited is returned after the final 429 retry is exhausted.
var ErrRateLimited = errors.New("scheduler: rate limited")

// State is the scheduler's dispatcher state.
type State int

const (
	Running State = iota
	SoftPaused
	HardPaused
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case SoftPaused:
		return "SoftPaused"
	case HardPaused:
		return "HardPaused"
	default:
		return "Unknown"
	}
}

// Credential is the capability handle C1 hands to C2. It is read at
// dispatch time, not at enqueue time, so a reload in flight always
// lands on the next dispatch rather than requiring re-enqueue.
type Credential struct {
	Region string
	Secret string
}

// Response is the normalized result of one Execute call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Execute performs one HTTP round trip using the credential secret
// supplied by the scheduler at dispatch time.
type Execute func(ctx context.Context, cred Credential) (*Response, error)

// RateLimitedEvent is emitted out-of-band when a 429 retry budget is
// exhausted.
type RateLimitedEvent struct {
	RetryAfter time.Duration
	Attempts   int
}

// Status is a cheap, lock-protected snapshot for observability, safe
// to read from any goroutine without touching the dispatcher loop.
type Status struct {
	State       State
	WindowUsage float64
	Pending     int
}

// Config configures a Scheduler.
type Config struct {
	Spacing      time.Duration // minimum time between dispatches, default 50ms
	SoftCeiling  int           // soft-throttle ceiling, default 100
	SoftWindow   time.Duration // soft-throttle sliding window, default 120s
	SoftPause    time.Duration // soft-pause duration once triggered, default 30s
	MaxRetries   int           // max 429 retries after the first attempt, default 3
	InitialRate  string        // "N1:S1,N2:S2,..." initial bucket header
	Logger       *zap.Logger
	OnRateLimited func(RateLimitedEvent)
	OnKeyExpired  func()
}

type enqueueMsg struct {
	exec  Execute
	reply chan dispatchResult
}

type reloadMsg struct {
	cred Credential
}

type bucketUpdateMsg struct {
	header string
}

type dispatchResult struct {
	resp *Response
	err  error
}

type pendingTask struct {
	exec  Execute
	reply chan dispatchResult
}

// Scheduler is the C2 actor: a single goroutine owns the queue, the
// rate buckets, the soft-throttle window and the dispatch state.
type Scheduler struct {
	cfg    Config
	logger *zap.Logger

	inbox chan any

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	statusMu sync.RWMutex
	status   Status

	// actor-owned state, touched only from loop().
	queue            []*pendingTask
	buckets          []*RateBucket
	windowDispatches []time.Time
	state            State
	softPausedUntil  time.Time
	lastDispatch     time.Time
	credential       Credential
	keyExpiredFired  bool
}

// New starts a Scheduler actor goroutine and returns immediately.
func New(cfg Config) *Scheduler {
	if cfg.Spacing <= 0 {
		cfg.Spacing = 50 * time.Millisecond
	}
	if cfg.SoftCeiling <= 0 {
		cfg.SoftCeiling = 100
	}
	if cfg.SoftWindow <= 0 {
		cfg.SoftWindow = 120 * time.Second
	}
	if cfg.SoftPause <= 0 {
		cfg.SoftPause = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	s := &Scheduler{
		cfg:     cfg,
		logger:  cfg.Logger,
		inbox:   make(chan any, 1024),
		ctx:     gctx,
		cancel:  cancel,
		group:   group,
		buckets: ParseBuckets(cfg.InitialRate),
		state:   Running,
	}
	s.publishStatus()

	group.Go(func() error {
		s.loop()
		return nil
	})

	return s
}

// Enqueue submits a task and blocks until it dispatches (subject to
// FIFO ordering and rate admission) or the context is cancelled.
// Enqueue rejects immediately with ErrCredentialExpired if the
// scheduler is already HardPaused.
func (s *Scheduler) Enqueue(ctx context.Context, exec Execute) (*Response, error) {
	if s.IsHardPaused() {
		return nil, ErrCredentialExpired
	}

	reply := make(chan dispatchResult, 1)
	msg := enqueueMsg{exec: exec, reply: reply}

	select {
	case s.inbox <- msg:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, ErrShuttingDown
	}

	select {
	case r := <-reply:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReloadKey hot-swaps the credential and returns the scheduler to
// Running if it was HardPaused.
func (s *Scheduler) ReloadKey(cred Credential) {
	select {
	case s.inbox <- reloadMsg{cred: cred}:
	case <-s.ctx.Done():
	}
}

// UpdateRateLimits atomically replaces the bucket set from a server
// "X-App-Rate-Limit"-style header value.
func (s *Scheduler) UpdateRateLimits(header string) {
	select {
	case s.inbox <- bucketUpdateMsg{header: header}:
	case <-s.ctx.Done():
	}
}

// Close stops the dispatcher, rejecting any tasks still queued, and
// waits for the loop goroutine to exit.
func (s *Scheduler) Close() error {
	s.cancel()
	return s.group.Wait()
}

// WindowUsage, IsPaused and Pending are cheap cross-thread reads.
func (s *Scheduler) WindowUsage() float64 {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status.WindowUsage
}

func (s *Scheduler) IsPaused() bool {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status.State != Running
}

func (s *Scheduler) IsHardPaused() bool {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status.State == HardPaused
}

func (s *Scheduler) Pending() int {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status.Pending
}

func (s *Scheduler) StatusSnapshot() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

func (s *Scheduler) publishStatus() {
	usage := 0.0
	if s.cfg.SoftCeiling > 0 {
		usage = float64(len(s.windowDispatches)) / float64(s.cfg.SoftCeiling)
	}
	s.statusMu.Lock()
	s.status = Status{State: s.state, WindowUsage: usage, Pending: len(s.queue)}
	s.statusMu.Unlock()
}

// loop is the single goroutine that owns all scheduler mutable state.
func (s *Scheduler) loop() {
	for {
		if len(s.queue) == 0 {
			select {
			case m := <-s.inbox:
				s.handle(m)
			case <-s.ctx.Done():
				s.drainAll(ErrShuttingDown)
				return
			}
			continue
		}

		wait := s.waitUntilReady(time.Now())
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case m := <-s.inbox:
				timer.Stop()
				s.handle(m)
			case <-timer.C:
				// fall through and re-check readiness next iteration
			case <-s.ctx.Done():
				timer.Stop()
				s.drainAll(ErrShuttingDown)
				return
			}
			continue
		}

		task := s.queue[0]
		s.queue = s.queue[1:]
		s.publishStatus()
		s.dispatch(task)
	}
}

func (s *Scheduler) handle(m any) {
	switch msg := m.(type) {
	case enqueueMsg:
		if s.state == HardPaused {
			msg.reply <- dispatchResult{err: ErrCredentialExpired}
			return
		}
		s.queue = append(s.queue, &pendingTask{exec: msg.exec, reply: msg.reply})
		s.publishStatus()

	case reloadMsg:
		s.credential = msg.cred
		s.state = Running
		s.keyExpiredFired = false
		s.publishStatus()

	case bucketUpdateMsg:
		s.buckets = ParseBuckets(msg.header)
	}
}

// waitUntilReady returns how long the loop must wait before the task
// at the front of the queue may dispatch: 0 means dispatch now.
func (s *Scheduler) waitUntilReady(now time.Time) time.Duration {
	if s.state == HardPaused {
		// Never ready on our own; only a reloadMsg changes this, and
		// the loop will wake on that message regardless of timer.
		return time.Hour
	}

	if s.state == SoftPaused {
		if now.Before(s.softPausedUntil) {
			return s.softPausedUntil.Sub(now)
		}
		s.state = Running
		s.publishStatus()
	}

	if wait := s.cfg.Spacing - now.Sub(s.lastDispatch); wait > 0 {
		return wait
	}

	var maxWait time.Duration
	for _, b := range s.buckets {
		if w := b.WaitTime(now); w > maxWait {
			maxWait = w
		}
	}
	return maxWait
}

// dispatch runs one task to completion, including 429 retries and 403
// hard-pause handling. It is the only place that performs network I/O,
// preserving the "one in-flight dispatch" invariant.
func (s *Scheduler) dispatch(task *pendingTask) {
	now := time.Now()
	for _, b := range s.buckets {
		b.Record(now)
	}
	s.recordWindowDispatch(now)
	s.lastDispatch = now
	s.publishStatus()

	cred := s.credential
	attempts := 0
	for {
		attempts++
		resp, err := task.exec(s.ctx, cred)
		if err != nil {
			task.reply <- dispatchResult{err: err}
			return
		}

		switch {
		case resp.StatusCode == http.StatusForbidden:
			s.handleCredentialExpired(task)
			return

		case resp.StatusCode == http.StatusTooManyRequests:
			if attempts > s.cfg.MaxRetries {
				if s.cfg.OnRateLimited != nil {
					s.cfg.OnRateLimited(RateLimitedEvent{Attempts: attempts})
				}
				task.reply <- dispatchResult{err: ErrRateLimited}
				return
			}
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			select {
			case <-time.After(retryAfter):
			case <-s.ctx.Done():
				task.reply <- dispatchResult{err: ErrShuttingDown}
				return
			}
			continue

		default:
			if limit := resp.Header.Get("X-App-Rate-Limit"); limit != "" {
				s.buckets = ParseBuckets(limit)
			}
			task.reply <- dispatchResult{resp: resp}
			return
		}
	}
}

// handleCredentialExpired flips HardPaused, rejects every queued task
// (the one that just 403'd plus everything still waiting), and fires
// the key-expired signal exactly once until the next reloadKey.
func (s *Scheduler) handleCredentialExpired(task *pendingTask) {
	s.state = HardPaused
	task.reply <- dispatchResult{err: ErrCredentialExpired}

	for _, queued := range s.queue {
		queued.reply <- dispatchResult{err: ErrCredentialExpired}
	}
	s.queue = nil
	s.publishStatus()

	if !s.keyExpiredFired {
		s.keyExpiredFired = true
		if s.cfg.OnKeyExpired != nil {
			s.cfg.OnKeyExpired()
		}
	}
}

func (s *Scheduler) drainAll(err error) {
	for _, queued := range s.queue {
		queued.reply <- dispatchResult{err: err}
	}
	s.queue = nil
	s.publishStatus()
}

func (s *Scheduler) recordWindowDispatch(now time.Time) {
	cutoff := now.Add(-s.cfg.SoftWindow)
	i := 0
	for i < len(s.windowDispatches) && s.windowDispatches[i].Before(cutoff) {
		i++
	}
	s.windowDispatches = append(s.windowDispatches[i:], now)

	if float64(len(s.windowDispatches)) >= 0.8*float64(s.cfg.SoftCeiling) && s.state == Running {
		s.state = SoftPaused
		s.softPausedUntil = now.Add(s.cfg.SoftPause)
	}
	s.publishStatus()
}

func parseRetryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return time.Second
	}
	return time.Duration(secs) * time.Second
}
