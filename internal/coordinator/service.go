package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/task"
)

// DefaultPoolSize bounds concurrent dispatches when Options.PoolSize is unset.
const DefaultPoolSize = 50

// receiptLayout is the timestamp layout of the receipt log line.
const receiptLayout = "2006/01/02 15:04:05"

// Options configure a Service.
type Options struct {
	Roster *Roster
	// Health, if set, is consulted before dispatch. It never changes where a
	// sub-task goes; workers it reports unhealthy are only logged.
	Health   *HealthMonitor
	Logger   *zap.Logger
	Name     string
	PoolSize int
}

// Service is the coordinator: it splits each submitted task across the roster,
// runs the sub-tasks concurrently and merges the results. It satisfies
// cluster.Coordinator.
type Service struct {
	roster   *Roster
	health   *HealthMonitor
	logger   *zap.Logger
	name     string
	poolSize int
}

var _ cluster.Coordinator = (*Service)(nil)

// New creates a coordinator over opts.Roster.
func New(opts Options) (*Service, error) {
	if opts.Roster == nil || opts.Roster.Len() == 0 {
		return nil, fmt.Errorf("%w: no valid worker service found", cluster.ErrTopology)
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = DefaultPoolSize
	}
	if opts.PoolSize < 1 {
		return nil, fmt.Errorf("coordinator pool size must be at least 1, got %d", opts.PoolSize)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		roster:   opts.Roster,
		health:   opts.Health,
		logger:   opts.Logger,
		name:     opts.Name,
		poolSize: opts.PoolSize,
	}, nil
}

// Roster returns the workers the service dispatches to.
func (s *Service) Roster() *Roster { return s.roster }

// Name returns the service name the coordinator is bound under.
func (s *Service) Name() string { return s.name }

// Submit splits t into at most Roster().Len() sub-tasks, sends sub-task i to
// worker i and waits for all of them. The merged task is named
// "[Merged]"+<first sub-task name> and lists every request of t, in t's order,
// with its result.
//
// The first worker failure cancels the remaining calls and fails the submit
// with ErrDispatch; results that did arrive are discarded.
func (s *Service) Submit(ctx context.Context, t *task.Task) (*task.Task, error) {
	if t.IsEmpty() {
		return nil, fmt.Errorf("%w: coordinator received an empty task", task.ErrInvalidArgument)
	}

	started := time.Now()
	submission := uuid.NewString()
	log := s.logger.With(
		zap.String("coordinator", s.name),
		zap.String("submission", submission),
		zap.String("task", t.Name()),
		zap.String("request_id", cluster.RequestID(ctx)))
	log.Info("received task",
		zap.Int("size", t.Size()),
		zap.String("received_at", started.Format(receiptLayout)))

	subTasks, err := Split(t, s.roster.Len())
	if err != nil {
		return nil, err
	}
	log.Debug("split task",
		zap.Int("sub_tasks", len(subTasks)),
		zap.Int("chunk_size", ChunkSize(t.Size(), s.roster.Len())))
	s.warnUnhealthy(log, len(subTasks))

	results, err := s.dispatch(ctx, subTasks)
	if err != nil {
		log.Error("submit failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		return nil, err
	}

	merged, err := Merge(results)
	if err != nil {
		return nil, err
	}
	log.Info("task finished",
		zap.Int("sub_tasks", len(subTasks)),
		zap.Duration("elapsed", time.Since(started)))
	return merged, nil
}

// warnUnhealthy logs every worker among the first n that the health monitor
// last saw failing. The call goes ahead regardless.
func (s *Service) warnUnhealthy(log *zap.Logger, n int) {
	if s.health == nil {
		return
	}
	for i := 0; i < n && i < s.roster.Len(); i++ {
		m, err := s.roster.At(i)
		if err != nil {
			return
		}
		if h := s.health.MemberHealth(m.Endpoint); h != nil && h.Status == StatusUnhealthy {
			log.Warn("dispatching to unhealthy worker",
				zap.Stringer("worker", m.Endpoint),
				zap.Int("consecutive_fails", h.ConsecutiveFails))
		}
	}
}

// dispatch runs every sub-task on its worker, at most poolSize at a time.
func (s *Service) dispatch(ctx context.Context, subTasks []*task.Task) ([]*task.Task, error) {
	members := make([]Member, len(subTasks))
	for i := range subTasks {
		m, err := s.roster.At(i)
		if err != nil {
			return nil, err
		}
		members[i] = m
	}

	results := make([]*task.Task, len(subTasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolSize)

	for i, sub := range subTasks {
		i, sub := i, sub
		m := members[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w: %s to %s not sent: %w", cluster.ErrDispatch, sub.Name(), m.Endpoint, err)
			}
			out, err := m.Worker.Execute(gctx, sub)
			if err != nil {
				return fmt.Errorf("%w: %s on %s: %w", cluster.ErrDispatch, sub.Name(), m.Endpoint, err)
			}
			if !sameKeys(sub, out) {
				return fmt.Errorf("%w: %s on %s: worker returned different requests", cluster.ErrDispatch, sub.Name(), m.Endpoint)
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
