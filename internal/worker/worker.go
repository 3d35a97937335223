// Package worker implements the Worker service: it executes every request of a
// sub-task concurrently on a bounded pool and returns the sub-task with all
// results filled in, or fails as a whole.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/task"
)

// PlaceholderResult is what the placeholder computation returns for every request.
const PlaceholderResult = "Result(Assume we have calculated the result)"

// ComputeFunc computes the result of a single request.
type ComputeFunc func(ctx context.Context, request string) (string, error)

// Placeholder returns a ComputeFunc that logs the request and acknowledges it
// with PlaceholderResult. Real deployments inject their own function.
func Placeholder(logger *zap.Logger, serviceName string) ComputeFunc {
	return func(_ context.Context, request string) (string, error) {
		logger.Info("processing request", zap.String("service", serviceName), zap.String("request", request))
		return PlaceholderResult, nil
	}
}

// Options configure a Service.
type Options struct {
	Compute     ComputeFunc
	Logger      *zap.Logger
	ServiceName string
	PoolSize    int
}

// Service executes sub-tasks. It satisfies cluster.Worker.
type Service struct {
	pool        *ants.Pool
	compute     ComputeFunc
	logger      *zap.Logger
	serviceName string
}

var _ cluster.Worker = (*Service)(nil)

// New creates a worker with its own pool of opts.PoolSize goroutines.
func New(opts Options) (*Service, error) {
	if opts.PoolSize < 1 {
		return nil, fmt.Errorf("worker pool size must be at least 1, got %d", opts.PoolSize)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Compute == nil {
		opts.Compute = Placeholder(opts.Logger, opts.ServiceName)
	}
	pool, err := ants.NewPool(opts.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Service{
		pool:        pool,
		compute:     opts.Compute,
		logger:      opts.Logger,
		serviceName: opts.ServiceName,
	}, nil
}

// Execute computes every request of t and returns a copy of t with the results
// written back in the task's own order. t itself is not modified.
//
// Execute waits for all scheduled requests. If any of them fails, panics, or
// ctx ends first, the call fails and no partial task is returned.
func (s *Service) Execute(ctx context.Context, t *task.Task) (*task.Task, error) {
	if t.IsEmpty() {
		return nil, fmt.Errorf("%w: worker %s received an empty sub-task", task.ErrInvalidArgument, s.serviceName)
	}
	s.logger.Info("received sub-task",
		zap.String("service", s.serviceName),
		zap.String("task", t.Name()),
		zap.Int("size", t.Size()),
		zap.String("request_id", cluster.RequestID(ctx)))

	requests := t.Requests()
	results := make([]string, len(requests))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, req := range requests {
		i, req := i, req
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			res, err := s.run(ctx, req)
			if err != nil {
				fail(fmt.Errorf("request %q: %w", req, err))
				return
			}
			results[i] = res
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("schedule request %q: %w", req, err))
			break
		}
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		fail(err)
	}

	if firstErr != nil {
		return nil, fmt.Errorf("%w: worker %s, task %s: %w", cluster.ErrDispatch, s.serviceName, t.Name(), firstErr)
	}

	out := t.Clone()
	for i, req := range requests {
		if err := out.SetResult(req, results[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// run invokes the compute function, turning a panic into an error.
func (s *Service) run(ctx context.Context, request string) (res string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("request panicked",
				zap.String("service", s.serviceName),
				zap.String("request", request),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.compute(ctx, request)
}

// ServiceName returns the name the worker is bound under.
func (s *Service) ServiceName() string { return s.serviceName }

// Running returns the number of pool goroutines currently busy.
func (s *Service) Running() int { return s.pool.Running() }

// Close releases the pool. Execute must not be called afterwards.
func (s *Service) Close() {
	s.pool.Release()
}
