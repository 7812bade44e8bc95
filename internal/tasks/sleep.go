package tasks

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

//go:embed sleep.json
var sleepSchema json.RawMessage

// Sleep blocks for a configurable duration. It exists to exercise the
// queue end to end, including the supervisor's task time limit.
type Sleep struct {
	schema *gojsonschema.Schema
}

func NewSleep() (*Sleep, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(sleepSchema))
	if err != nil {
		return nil, fmt.Errorf("error compiling sleep schema: %w", err)
	}

	return &Sleep{schema: schema}, nil
}

func (*Sleep) Kind() string {
	return "sleep"
}

func (s *Sleep) Schema() *gojsonschema.Schema {
	return s.schema
}

type sleepArgs struct {
	Duration string `json:"duration"`
}

func (s *Sleep) Run(ctx context.Context, args json.RawMessage, log *zap.Logger) error {
	var a sleepArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("error parsing sleep args: %w", err)
	}

	duration, err := time.ParseDuration(a.Duration)
	if err != nil {
		return fmt.Errorf("error parsing sleep duration: %w", err)
	}

	log.Info("sleeping", zap.Duration("duration", duration))

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
