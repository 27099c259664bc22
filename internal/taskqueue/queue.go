package taskqueue

import (
	"context"
	"sync"

	"go-reports/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// TaskKind distinguishes the two chained report tasks
type TaskKind string

const (
	TaskGenerate TaskKind = "generate_report"
	TaskDeliver  TaskKind = "send_report_email"
)

// Task is one unit of queued work, keyed by execution id
type Task struct {
	Kind        TaskKind
	ExecutionID string
}

// Handler processes one task. Handlers must be idempotent: delivery is
// at-least-once and a task may be re-run after a crash.
type Handler func(ctx context.Context, executionID string) error

// Queue is the task-submission port used by the scheduler and the services.
// Enqueue calls are fire-and-forget; failures surface on the execution record,
// never to the caller.
type Queue interface {
	EnqueueGeneration(executionID string)
	EnqueueDelivery(executionID string)
	RegisterHandler(kind TaskKind, handler Handler)
}

type InProcessQueue struct {
	tasks    chan Task
	handlers map[TaskKind]Handler
	mu       sync.RWMutex
	wg       sync.WaitGroup
	workers  int
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewQueue(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &InProcessQueue{
		tasks:    make(chan Task, 256),
		handlers: make(map[TaskKind]Handler),
		workers:  cfg.QueueWorkers,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			q.start()
			return nil
		},
		OnStop: func(context.Context) error {
			q.stop()
			return nil
		},
	})

	return q
}

func (q *InProcessQueue) RegisterHandler(kind TaskKind, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = handler
}

func (q *InProcessQueue) EnqueueGeneration(executionID string) {
	q.enqueue(Task{Kind: TaskGenerate, ExecutionID: executionID})
}

func (q *InProcessQueue) EnqueueDelivery(executionID string) {
	q.enqueue(Task{Kind: TaskDeliver, ExecutionID: executionID})
}

func (q *InProcessQueue) enqueue(task Task) {
	select {
	case q.tasks <- task:
	case <-q.ctx.Done():
		q.log.Warn("queue stopped, dropping task",
			zap.String("kind", string(task.Kind)),
			zap.String("executionId", task.ExecutionID))
	}
}

func (q *InProcessQueue) start() {
	if q.workers <= 0 {
		q.workers = 1
	}
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.log.Info("task queue started", zap.Int("workers", q.workers))
}

func (q *InProcessQueue) stop() {
	q.cancel()
	q.wg.Wait()
}

func (q *InProcessQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			q.mu.RLock()
			handler, ok := q.handlers[task.Kind]
			q.mu.RUnlock()
			if !ok {
				q.log.Error("no handler registered for task kind", zap.String("kind", string(task.Kind)))
				continue
			}

			// A task failure is contained here: it is recorded on the execution
			// record by the handler and never aborts sibling tasks or the workers.
			if err := q.handle(handler, task); err != nil {
				q.log.Error("task handler returned error",
					zap.String("kind", string(task.Kind)),
					zap.String("executionId", task.ExecutionID),
					zap.Error(err))
			}
		}
	}
}

func (q *InProcessQueue) handle(handler Handler, task Task) error {
	return handler(q.ctx, task.ExecutionID)
}
