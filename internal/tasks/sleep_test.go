package tasks_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lambda-feedback/wrangler/internal/tasks"
)

func TestSleep_Completes(t *testing.T) {
	handler, err := tasks.NewSleep()
	require.NoError(t, err)

	err = handler.Run(context.Background(), json.RawMessage(`{"duration": "10ms"}`), zap.NewNop())
	assert.NoError(t, err)
}

func TestSleep_ContextCancelled(t *testing.T) {
	handler, err := tasks.NewSleep()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = handler.Run(ctx, json.RawMessage(`{"duration": "10s"}`), zap.NewNop())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSleep_InvalidDuration(t *testing.T) {
	handler, err := tasks.NewSleep()
	require.NoError(t, err)

	err = handler.Run(context.Background(), json.RawMessage(`{"duration": "soon"}`), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration")
}
