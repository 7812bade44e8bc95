package stats_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lambda-feedback/wrangler/internal/stats"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
)

type fakePool struct {
	size int
	pids []int
}

func (p *fakePool) Running() bool { return true }
func (p *fakePool) PoolSize() int { return p.size }
func (p *fakePool) Pids() []int   { return p.pids }

type fakeStore struct {
	mu     sync.Mutex
	counts map[taskstore.Status]int
	err    error
	calls  int
}

func (s *fakeStore) CountByStatus(context.Context) (map[taskstore.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	return s.counts, nil
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestReporter_Report(t *testing.T) {
	store := &fakeStore{
		counts: map[taskstore.Status]int{
			taskstore.StatusQueued: 3,
			taskstore.StatusActive: 1,
		},
	}
	pool := &fakePool{size: 2, pids: []int{101, 102}}

	reporter, err := stats.New(stats.Config{}, store, pool, zaptest.NewLogger(t))
	require.NoError(t, err)

	reporter.Report(context.Background())

	assert.Equal(t, 1, store.callCount())
}

func TestReporter_Report_StoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}
	pool := &fakePool{}

	reporter, err := stats.New(stats.Config{}, store, pool, zaptest.NewLogger(t))
	require.NoError(t, err)

	// a failed read is logged, never panics or propagates
	reporter.Report(context.Background())

	assert.Equal(t, 1, store.callCount())
}

func TestReporter_PeriodicReporting(t *testing.T) {
	store := &fakeStore{counts: map[taskstore.Status]int{}}
	pool := &fakePool{}

	reporter, err := stats.New(stats.Config{Interval: 10 * time.Millisecond}, store, pool, zaptest.NewLogger(t))
	require.NoError(t, err)

	reporter.Start()

	require.Eventually(t, func() bool {
		return store.callCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, reporter.Stop())
}
