package audit

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/campus/core"
	logsvc "github.com/aulanet/campus/services/logger"
)

type fakeRepo struct {
	mu   sync.Mutex
	logs []Log
}

func (r *fakeRepo) AppendLog(_ context.Context, l Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
	return nil
}

func (r *fakeRepo) QueryLogs(_ context.Context, filter QueryFilter) ([]Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logs := make([]Log, 0, len(r.logs))
	for _, l := range r.logs {
		if filter.UserID != "" && l.UserID != filter.UserID {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func newTestService(repo Repository, size int) *Service {
	// the worker is started by the caller so tests control when the queue drains
	return &Service{
		repo:   repo,
		logger: logsvc.NewStdLogger(log.New(io.Discard, "", 0)),
		queue:  make(chan Log, size),
		done:   make(chan struct{}),
	}
}

func TestService_Record_dropsWhenFull(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := newTestService(repo, 1)

	// concurrent writers against a stalled queue: one entry fits, the rest
	// are dropped without blocking any caller
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Record(ctx, core.AuditEntry{UserID: "usr-1", Action: core.AuditLoginFailed})
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 7, svc.Dropped())

	go svc.worker()
	svc.Close()

	logs, err := repo.QueryLogs(ctx, QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestService_Close_drainsQueue(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := newTestService(repo, 16)

	for i := 0; i < 5; i++ {
		svc.Record(ctx, core.AuditEntry{UserID: "usr-2", Action: core.AuditLoginSuccess})
	}
	go svc.worker()
	svc.Close()

	logs, err := repo.QueryLogs(ctx, QueryFilter{UserID: "usr-2"})
	require.NoError(t, err)
	assert.Len(t, logs, 5)
	assert.Zero(t, svc.Dropped())
}
