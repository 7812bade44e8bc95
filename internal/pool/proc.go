package pool

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lambda-feedback/wrangler/internal/procs"
)

// Proc is a handle on one worker subprocess. It answers liveness without
// blocking, and signals the whole process group so that helpers spawned
// by a worker die with it.
type Proc struct {
	pid     int
	started time.Time

	// closed by the launcher's reaper goroutine once the
	// process has been waited on
	exited chan struct{}

	mu          sync.Mutex
	dead        bool
	lastChecked time.Time

	log *zap.Logger
}

func (p *Proc) Pid() int {
	return p.pid
}

func (p *Proc) StartedAt() time.Time {
	return p.started
}

func (p *Proc) LastChecked() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastChecked
}

// Running reports whether the process is still alive. Once it has
// reported false the handle is latched dead and never reports true
// again. A probe the OS refuses counts as not confirmed alive.
func (p *Proc) Running() bool {
	select {
	case <-p.exited:
		return false
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dead || p.pid <= 0 {
		return false
	}

	switch procs.Probe(p.pid) {
	case procs.Alive:
		p.lastChecked = time.Now()
		return true
	case procs.Unknown:
		p.log.Warn("permission error checking process")
		p.dead = true
		return false
	default:
		p.dead = true
		return false
	}
}

// Terminate asks the process group to exit. A process that is already
// gone is not an error.
func (p *Proc) Terminate() error {
	return p.signal(false)
}

// Kill forcefully stops the process group.
func (p *Proc) Kill() error {
	return p.signal(true)
}

func (p *Proc) signal(force bool) error {
	select {
	case <-p.exited:
		p.log.Debug("process already terminated")
		return nil
	default:
	}

	return p.sendSignal(force)
}

// AwaitExit blocks until the process has been reaped, or until timeout
// elapses, in which case it returns ErrStopTimeout. A timeout of zero
// or less waits indefinitely.
func (p *Proc) AwaitExit(timeout time.Duration) error {
	if timeout <= 0 {
		<-p.exited
		return nil
	}

	select {
	case <-p.exited:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}
