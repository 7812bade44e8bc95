// Package tasks defines the task handlers workers can execute and the
// registry used to look them up and validate their arguments.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

var (
	// ErrUnknownKind is returned when no handler is registered for a kind.
	ErrUnknownKind = errors.New("unknown task kind")

	// ErrDuplicateKind is returned when two handlers claim the same kind.
	ErrDuplicateKind = errors.New("task kind already registered")
)

// Handler executes tasks of one kind.
type Handler interface {
	// Kind is the unique name tasks of this type are submitted under.
	Kind() string

	// Schema describes the handler's argument document. A nil schema
	// disables argument validation for the kind.
	Schema() *gojsonschema.Schema

	// Run executes a single task. A non-nil error fails the task.
	Run(ctx context.Context, args json.RawMessage, log *zap.Logger) error
}

// Registry maps task kinds to their handlers. It is populated at
// construction time and read-only afterwards.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{
		handlers: make(map[string]Handler, len(handlers)),
	}

	for _, handler := range handlers {
		kind := handler.Kind()

		if _, ok := r.handlers[kind]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
		}

		r.handlers[kind] = handler
	}

	return r, nil
}

// Default returns a registry holding all built-in task handlers.
func Default() (*Registry, error) {
	hashcheck, err := NewHashCheck()
	if err != nil {
		return nil, err
	}

	sleep, err := NewSleep()
	if err != nil {
		return nil, err
	}

	return NewRegistry(hashcheck, sleep)
}

// Get returns the handler registered for kind.
func (r *Registry) Get(kind string) (Handler, error) {
	handler, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	return handler, nil
}

// Kinds returns all registered kinds in lexical order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.handlers))
	for kind := range r.handlers {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	return kinds
}

// Validate checks args against the schema registered for kind. Empty args
// are validated as an empty object.
func (r *Registry) Validate(kind string, args json.RawMessage) error {
	handler, err := r.Get(kind)
	if err != nil {
		return err
	}

	schema := handler.Schema()
	if schema == nil {
		return nil
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return fmt.Errorf("error validating task args: %w", err)
	}

	if res.Valid() {
		return nil
	}

	return &ArgsError{Kind: kind, Result: res}
}

// ArgsError reports schema violations in a task's arguments.
type ArgsError struct {
	Kind   string
	Result *gojsonschema.Result
}

func (e *ArgsError) Error() string {
	msgs := make([]string, 0, len(e.Result.Errors()))
	for _, desc := range e.Result.Errors() {
		msgs = append(msgs, desc.String())
	}

	return fmt.Sprintf("invalid args for task kind %q: %s", e.Kind, strings.Join(msgs, "; "))
}
