package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/lambda-feedback/wrangler/internal/runner"
	"github.com/lambda-feedback/wrangler/internal/tasks"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
)

type stubHandler struct {
	kind   string
	schema *gojsonschema.Schema
	run    func(ctx context.Context, args json.RawMessage) error

	mu    sync.Mutex
	calls []json.RawMessage
}

func (h *stubHandler) Kind() string {
	return h.kind
}

func (h *stubHandler) Schema() *gojsonschema.Schema {
	return h.schema
}

func (h *stubHandler) Run(ctx context.Context, args json.RawMessage, _ *zap.Logger) error {
	h.mu.Lock()
	h.calls = append(h.calls, args)
	h.mu.Unlock()

	if h.run == nil {
		return nil
	}

	return h.run(ctx, args)
}

func (h *stubHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func newStore(t *testing.T) *taskstore.Store {
	t.Helper()

	store, err := taskstore.New(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// runUntil starts the runner and blocks until cond holds, then stops the
// runner and waits for it to exit.
func runUntil(t *testing.T, r *runner.Runner, cond func() bool) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()

	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func taskStatus(store *taskstore.Store, id string) func() bool {
	return func() bool {
		task, err := store.Get(context.Background(), id)
		if err != nil {
			return false
		}
		return task.Status == taskstore.StatusCompleted || task.Status == taskstore.StatusFailed
	}
}

func testRunner(t *testing.T, store *taskstore.Store, handlers ...tasks.Handler) *runner.Runner {
	t.Helper()

	registry, err := tasks.NewRegistry(handlers...)
	require.NoError(t, err)

	config := runner.Config{IdleDelay: 5 * time.Millisecond}

	return runner.New(config, store, registry, zap.NewNop())
}

func TestRunner_ExecutesTask(t *testing.T) {
	store := newStore(t)
	handler := &stubHandler{kind: "ok"}
	r := testRunner(t, store, handler)

	task, err := store.Submit(context.Background(), "ok", json.RawMessage(`{"n": 1}`))
	require.NoError(t, err)

	runUntil(t, r, taskStatus(store, task.ID))

	got, err := store.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, taskstore.StatusCompleted, got.Status)
	assert.NotNil(t, got.Completed)
	assert.Nil(t, got.Error)

	require.NotNil(t, got.Pid)
	assert.Equal(t, os.Getpid(), *got.Pid)

	require.Equal(t, 1, handler.callCount())
	assert.JSONEq(t, `{"n": 1}`, string(handler.calls[0]))
}

func TestRunner_FailsTaskOnHandlerError(t *testing.T) {
	store := newStore(t)
	handler := &stubHandler{
		kind: "broken",
		run: func(context.Context, json.RawMessage) error {
			return errors.New("gears jammed")
		},
	}
	r := testRunner(t, store, handler)

	task, err := store.Submit(context.Background(), "broken", nil)
	require.NoError(t, err)

	runUntil(t, r, taskStatus(store, task.ID))

	got, err := store.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, taskstore.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "gears jammed")
}

func TestRunner_FailsTaskOnPanic(t *testing.T) {
	store := newStore(t)
	handler := &stubHandler{
		kind: "volatile",
		run: func(context.Context, json.RawMessage) error {
			panic("boom")
		},
	}
	r := testRunner(t, store, handler)

	task, err := store.Submit(context.Background(), "volatile", nil)
	require.NoError(t, err)

	runUntil(t, r, taskStatus(store, task.ID))

	got, err := store.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, taskstore.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "panicked")
	assert.Contains(t, *got.Error, "boom")
}

func TestRunner_FailsTaskOfUnknownKind(t *testing.T) {
	store := newStore(t)
	r := testRunner(t, store, &stubHandler{kind: "ok"})

	task, err := store.Submit(context.Background(), "transmogrify", nil)
	require.NoError(t, err)

	runUntil(t, r, taskStatus(store, task.ID))

	got, err := store.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, taskstore.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "unknown task kind")
}

func TestRunner_FailsTaskWithInvalidArgs(t *testing.T) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(`{
		"type": "object",
		"properties": {"n": {"type": "number"}},
		"required": ["n"]
	}`))
	require.NoError(t, err)

	store := newStore(t)
	handler := &stubHandler{kind: "typed", schema: schema}
	r := testRunner(t, store, handler)

	task, err := store.Submit(context.Background(), "typed", json.RawMessage(`{"n": "one"}`))
	require.NoError(t, err)

	runUntil(t, r, taskStatus(store, task.ID))

	got, err := store.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, taskstore.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "invalid args")

	// the handler never ran
	assert.Zero(t, handler.callCount())
}

func TestRunner_ExecutesTasksInOrder(t *testing.T) {
	store := newStore(t)
	handler := &stubHandler{kind: "ok"}
	r := testRunner(t, store, handler)

	first, err := store.Submit(context.Background(), "ok", json.RawMessage(`{"seq": 1}`))
	require.NoError(t, err)

	second, err := store.Submit(context.Background(), "ok", json.RawMessage(`{"seq": 2}`))
	require.NoError(t, err)

	runUntil(t, r, func() bool {
		return taskStatus(store, first.ID)() && taskStatus(store, second.ID)()
	})

	require.Equal(t, 2, handler.callCount())
	assert.JSONEq(t, `{"seq": 1}`, string(handler.calls[0]))
	assert.JSONEq(t, `{"seq": 2}`, string(handler.calls[1]))
}

func TestRunner_StopsWhenIdle(t *testing.T) {
	store := newStore(t)
	r := testRunner(t, store, &stubHandler{kind: "ok"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()

	// let the runner settle into its idle loop before stopping it
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}
