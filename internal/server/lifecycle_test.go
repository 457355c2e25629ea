package server

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingService blocks in Start until Stop is called.
type blockingService struct {
	started atomic.Bool
	stopped atomic.Bool
	quit    chan struct{}
	once    sync.Once
}

func newBlockingService() *blockingService {
	return &blockingService{quit: make(chan struct{})}
}

func (s *blockingService) Start() error {
	s.started.Store(true)
	<-s.quit
	return nil
}

func (s *blockingService) Stop() {
	s.stopped.Store(true)
	s.once.Do(func() { close(s.quit) })
}

// failingService returns an error from Start immediately.
type failingService struct {
	stopped atomic.Bool
}

func (s *failingService) Start() error {
	return assert.AnError
}

func (s *failingService) Stop() {
	s.stopped.Store(true)
}

func TestLifecycle_StopsOnContextCancel(t *testing.T) {
	lc := NewLifecycle(zap.NewNop())
	svc := newBlockingService()
	lc.Add("svc", svc)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, lc.Run(ctx))
	assert.True(t, svc.started.Load())
	assert.True(t, svc.stopped.Load())
}

func TestLifecycle_ServiceFailureTriggersShutdown(t *testing.T) {
	lc := NewLifecycle(zap.NewNop())
	failing := &failingService{}
	blocking := newBlockingService()
	lc.Add("blocking", blocking)
	lc.Add("failing", failing)

	done := make(chan struct{})
	go func() {
		_ = lc.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lifecycle did not shut down after service failure")
	}
	assert.True(t, blocking.stopped.Load())
	assert.True(t, failing.stopped.Load())
}

func TestLifecycle_StopsInReverseOrder(t *testing.T) {
	lc := NewLifecycle(zap.NewNop())

	var mu sync.Mutex
	var order []string
	record := func(name string) Service {
		svc := newBlockingService()
		return &orderedService{inner: svc, name: name, mu: &mu, order: &order}
	}
	lc.Add("first", record("first"))
	lc.Add("second", record("second"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, lc.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"second", "first"}, order)
}

type orderedService struct {
	inner *blockingService
	name  string
	mu    *sync.Mutex
	order *[]string
}

func (s *orderedService) Start() error { return s.inner.Start() }

func (s *orderedService) Stop() {
	s.mu.Lock()
	*s.order = append(*s.order, s.name)
	s.mu.Unlock()
	s.inner.Stop()
}
