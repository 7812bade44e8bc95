// Package procs answers "is this pid alive?" without owning the process.
//
// The answer is a tristate: a pid that exists but belongs to another user
// is reported as Unknown, not Dead. Callers decide how conservative to be
// about Unknown; conflating it with Dead risks discarding bookkeeping for
// a worker that is in fact still running.
package procs

type Status int

const (
	// Unknown means the pid exists but its state could not be
	// determined, typically because it belongs to another user.
	Unknown Status = iota

	// Alive means the pid exists and accepted a zero-effect signal.
	Alive

	// Dead means no process with this pid exists.
	Dead
)

func (s Status) String() string {
	switch s {
	case Alive:
		return "alive"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}
