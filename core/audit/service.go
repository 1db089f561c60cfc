package audit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aulanet/campus/core"
)

var droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "campus",
	Subsystem: "audit",
	Name:      "dropped_total",
	Help:      "Audit entries discarded because the write queue was full.",
})

type Repository interface {
	AppendLog(ctx context.Context, l Log) error
	QueryLogs(ctx context.Context, filter QueryFilter) ([]Log, error)
}

// Service is the security-event sink. Record enqueues onto a buffered
// channel drained by a single background worker; when the buffer is full the
// entry is dropped and counted rather than blocking the caller. Writes never
// propagate failures to the primary operation.
type Service struct {
	repo    Repository
	logger  core.Logger
	queue   chan Log
	done    chan struct{}
	dropped int64
}

var _ core.AuditSink = (*Service)(nil)

const queueSize = 256

func NewService(repo Repository, logger core.Logger) *Service {
	svc := &Service{
		repo:   repo,
		logger: logger,
		queue:  make(chan Log, queueSize),
		done:   make(chan struct{}),
	}
	go svc.worker()
	return svc
}

func (svc *Service) worker() {
	defer close(svc.done)
	for l := range svc.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := svc.repo.AppendLog(ctx, l); err != nil {
			svc.logger.Error(fmt.Sprintf("audit write dropped: %v", err), err)
		}
		cancel()
	}
}

func (svc *Service) Record(_ context.Context, entry core.AuditEntry) {
	l := Log{
		UserID:    entry.UserID,
		Action:    entry.Action,
		Details:   entry.Details,
		IP:        entry.IP,
		UserAgent: entry.UserAgent,
		CreatedAt: time.Now().UTC(),
	}
	select {
	case svc.queue <- l:
	default:
		// Record runs on every request goroutine
		atomic.AddInt64(&svc.dropped, 1)
		droppedTotal.Inc()
		svc.logger.Warn("audit queue full; entry dropped")
	}
}

// Dropped reports how many entries were discarded on a full queue.
func (svc *Service) Dropped() int64 {
	return atomic.LoadInt64(&svc.dropped)
}

// Close drains the queue and stops the worker.
func (svc *Service) Close() {
	close(svc.queue)
	<-svc.done
}

// Query serves the admin-only audit endpoints. Reads go straight to the
// repository; the queue only exists on the write path.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Log, error) {
	return svc.repo.QueryLogs(ctx, filter)
}
