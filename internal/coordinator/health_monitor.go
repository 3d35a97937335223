package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/taskfan/internal/cluster"
)

// Health states reported for roster members.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusUnknown   = "unknown"
)

// MemberHealth tracks the health of a single roster member.
// Protected by HealthMonitor's mutex when accessed.
type MemberHealth struct {
	LastCheck        time.Time        // Timestamp of the last check attempt
	LastHealthy      time.Time        // Timestamp of the last successful check
	Endpoint         cluster.Endpoint // Member being checked
	Status           string           // healthy, unhealthy or unknown
	ConsecutiveFails int              // Failed checks since the last success
}

// HealthMonitor periodically checks the /health endpoint of every worker in
// the roster. It never changes the roster: sub-task i still goes to worker i,
// the monitor only reports which workers are likely to fail a dispatch.
// All methods are safe for concurrent use.
type HealthMonitor struct {
	members     map[cluster.Endpoint]*MemberHealth
	httpClient  *http.Client
	checkFunc   func(ctx context.Context, ep cluster.Endpoint) error
	onUnhealthy func(ep cluster.Endpoint)
	logger      *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	endpoints   []cluster.Endpoint
	interval    time.Duration
	timeout     time.Duration
	mu          sync.RWMutex
	wg          sync.WaitGroup
	maxFailures int
}

// NewHealthMonitor creates a monitor for endpoints that checks every interval.
// Members are marked unhealthy after 3 consecutive failures.
//
// Example:
//
//	monitor := NewHealthMonitor(roster.Endpoints(), 5*time.Second, logger)
//	go monitor.Start(ctx)
//	defer monitor.Stop()
func NewHealthMonitor(endpoints []cluster.Endpoint, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	h := &HealthMonitor{
		endpoints:   append([]cluster.Endpoint(nil), endpoints...),
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		members:     make(map[cluster.Endpoint]*MemberHealth, len(endpoints)),
		httpClient:  &http.Client{Timeout: 2 * time.Second},
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, ep := range endpoints {
		h.members[ep] = &MemberHealth{Endpoint: ep, Status: StatusUnknown}
	}
	return h
}

// SetOnUnhealthy sets a callback invoked when a member turns unhealthy.
func (h *HealthMonitor) SetOnUnhealthy(callback func(ep cluster.Endpoint)) {
	h.onUnhealthy = callback
}

// SetCheckFunction replaces the default HTTP check. Used by tests.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(ctx context.Context, ep cluster.Endpoint) error) {
	h.checkFunc = checkFunc
}

// Start checks every member immediately and then every interval, until ctx
// or Stop ends it. It blocks.
func (h *HealthMonitor) Start(ctx context.Context) {
	h.wg.Add(1)
	defer h.wg.Done()

	if ctx == nil {
		ctx = h.ctx
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Info("health monitor started",
		zap.Duration("interval", h.interval),
		zap.Int("workers", len(h.endpoints)))

	h.CheckAll(ctx)

	for {
		select {
		case <-ticker.C:
			h.CheckAll(ctx)
		case <-ctx.Done():
			h.logger.Debug("health monitor stopping: context cancelled")
			return
		case <-h.ctx.Done():
			h.logger.Debug("health monitor stopping: stopped")
			return
		}
	}
}

// Stop ends Start and waits for it to return.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
	h.logger.Info("health monitor stopped")
}

// CheckAll checks every member once, concurrently, and reports how many
// passed.
func (h *HealthMonitor) CheckAll(ctx context.Context) int {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		healthy int
	)
	for _, ep := range h.endpoints {
		ep := ep
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.checkMember(ctx, ep) {
				mu.Lock()
				healthy++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return healthy
}

// checkMember runs one check against ep and records the outcome.
func (h *HealthMonitor) checkMember(ctx context.Context, ep cluster.Endpoint) bool {
	check := h.checkFunc
	if check == nil {
		check = h.defaultHealthCheck
	}
	err := check(ctx, ep)

	h.mu.Lock()
	defer h.mu.Unlock()

	health := h.members[ep]
	health.LastCheck = time.Now()

	if err != nil {
		health.ConsecutiveFails++
		h.logger.Warn("worker health check failed",
			zap.Stringer("worker", ep),
			zap.Int("attempt", health.ConsecutiveFails),
			zap.Int("max_failures", h.maxFailures),
			zap.Error(err))

		if health.ConsecutiveFails >= h.maxFailures && health.Status != StatusUnhealthy {
			health.Status = StatusUnhealthy
			h.logger.Error("worker marked unhealthy",
				zap.Stringer("worker", ep),
				zap.Int("failures", health.ConsecutiveFails))
			if h.onUnhealthy != nil {
				// Run without holding the lock.
				go h.onUnhealthy(ep)
			}
		}
		return false
	}

	if health.Status == StatusUnhealthy {
		h.logger.Info("worker recovered", zap.Stringer("worker", ep))
	}
	health.Status = StatusHealthy
	health.ConsecutiveFails = 0
	health.LastHealthy = health.LastCheck
	return true
}

// defaultHealthCheck GETs the worker process's /health endpoint.
func (h *HealthMonitor) defaultHealthCheck(ctx context.Context, ep cluster.Endpoint) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL()+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// WaitReady checks the whole roster up to attempts times, delay apart, and
// returns nil as soon as every member passes. Otherwise it returns an
// ErrTopology error naming the members that never answered.
//
// The coordinator calls this at startup so that an unreachable worker is
// reported before the first task rather than halfway through it.
func (h *HealthMonitor) WaitReady(ctx context.Context, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if h.CheckAll(ctx) == len(h.endpoints) {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%w: workers not reachable: %v", cluster.ErrTopology, h.failing())
}

func (h *HealthMonitor) failing() []cluster.Endpoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []cluster.Endpoint
	for _, ep := range h.endpoints {
		if h.members[ep].Status != StatusHealthy {
			out = append(out, ep)
		}
	}
	return out
}

// MemberHealth returns a copy of ep's record, or nil if ep is not monitored.
func (h *HealthMonitor) MemberHealth(ep cluster.Endpoint) *MemberHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, ok := h.members[ep]
	if !ok {
		return nil
	}
	cp := *health
	return &cp
}

// Statuses returns the health of every member in roster order.
func (h *HealthMonitor) Statuses() []cluster.MemberStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]cluster.MemberStatus, len(h.endpoints))
	for i, ep := range h.endpoints {
		m := h.members[ep]
		out[i] = cluster.MemberStatus{
			Index:            i,
			Endpoint:         ep,
			Status:           m.Status,
			LastCheck:        m.LastCheck,
			LastHealthy:      m.LastHealthy,
			ConsecutiveFails: m.ConsecutiveFails,
		}
	}
	return out
}
