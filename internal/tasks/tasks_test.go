package tasks_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambda-feedback/wrangler/internal/tasks"
)

func newRegistry(t *testing.T) *tasks.Registry {
	t.Helper()

	registry, err := tasks.Default()
	require.NoError(t, err)

	return registry
}

func TestRegistry_Default(t *testing.T) {
	registry := newRegistry(t)

	assert.Equal(t, []string{"hashcheck", "sleep"}, registry.Kinds())
}

func TestRegistry_Get(t *testing.T) {
	registry := newRegistry(t)

	handler, err := registry.Get("sleep")
	require.NoError(t, err)
	assert.Equal(t, "sleep", handler.Kind())
}

func TestRegistry_Get_UnknownKind(t *testing.T) {
	registry := newRegistry(t)

	_, err := registry.Get("transmogrify")
	assert.ErrorIs(t, err, tasks.ErrUnknownKind)
}

func TestRegistry_DuplicateKind(t *testing.T) {
	first, err := tasks.NewSleep()
	require.NoError(t, err)

	second, err := tasks.NewSleep()
	require.NoError(t, err)

	_, err = tasks.NewRegistry(first, second)
	assert.ErrorIs(t, err, tasks.ErrDuplicateKind)
}

func TestRegistry_Validate(t *testing.T) {
	registry := newRegistry(t)

	tests := []struct {
		name    string
		kind    string
		args    string
		wantErr bool
	}{
		{name: "valid sleep args", kind: "sleep", args: `{"duration": "5s"}`},
		{name: "missing duration", kind: "sleep", args: `{}`, wantErr: true},
		{name: "wrong duration type", kind: "sleep", args: `{"duration": 5}`, wantErr: true},
		{name: "unexpected property", kind: "sleep", args: `{"duration": "5s", "depth": 3}`, wantErr: true},
		{name: "valid hashcheck args", kind: "hashcheck", args: `{"path": "release.tar.gz.sha256"}`},
		{name: "empty path", kind: "hashcheck", args: `{"path": ""}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Validate(tt.kind, json.RawMessage(tt.args))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_Validate_UnknownKind(t *testing.T) {
	registry := newRegistry(t)

	err := registry.Validate("transmogrify", nil)
	assert.ErrorIs(t, err, tasks.ErrUnknownKind)
}

func TestRegistry_Validate_EmptyArgs(t *testing.T) {
	registry := newRegistry(t)

	// empty args are validated as an empty object, which is missing
	// the required duration property
	err := registry.Validate("sleep", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration")
}

func TestRegistry_Validate_ArgsError(t *testing.T) {
	registry := newRegistry(t)

	err := registry.Validate("sleep", json.RawMessage(`{"duration": 5}`))
	require.Error(t, err)

	var argsErr *tasks.ArgsError
	require.True(t, errors.As(err, &argsErr))
	assert.Equal(t, "sleep", argsErr.Kind)
	assert.Contains(t, argsErr.Error(), "sleep")
}
