package taskstore

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("task not found")
	ErrNoTask   = errors.New("no queued task")
)

type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Task is one unit of queued work. A task is claimed by exactly one worker
// process at a time; the claiming pid is recorded on the task itself.
type Task struct {
	ID        string
	Kind      string
	Args      json.RawMessage
	Status    Status
	Pid       *int
	Started   *time.Time
	Completed *time.Time
	Error     *string
	Created   time.Time
}

// Orphan identifies an ACTIVE task held by a pid outside the worker pool.
type Orphan struct {
	TaskID string
	Pid    int
}

type Config struct {
	// Path is the location of the sqlite database file. The file is
	// shared between the manager and its worker processes.
	Path string `conf:"path"`
}
