package pool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Launcher spawns worker subprocesses.
type Launcher interface {
	Launch(ctx context.Context) (Worker, error)
}

// ExecLauncher launches the configured worker executable as a child
// process in its own process group, detached from the manager's
// terminal signals.
type ExecLauncher struct {
	config WorkerConfig
	log    *zap.Logger
}

func NewExecLauncher(config WorkerConfig, log *zap.Logger) *ExecLauncher {
	return &ExecLauncher{
		config: config,
		log:    log.Named("launcher"),
	}
}

func (l *ExecLauncher) Launch(ctx context.Context) (Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(l.config.Cmd, l.config.Args...)

	if l.config.Cwd != "" {
		cmd.Dir = l.config.Cwd
	}

	cmd.Env = mergeEnv(os.Environ(), l.config.Env)

	// worker output goes to /dev/null unless debug logging is on
	var output *os.File
	if l.config.Debug {
		file, path, err := l.openLogFile()
		if err != nil {
			return nil, fmt.Errorf("opening worker log file: %w", err)
		}
		l.log.Info("worker output will be logged to file", zap.String("path", path))
		output = file
		cmd.Stdout = file
		cmd.Stderr = file
	}

	initCmd(cmd)

	if err := cmd.Start(); err != nil {
		closeQuietly(output)
		return nil, fmt.Errorf("starting worker process: %w", err)
	}

	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		closeQuietly(output)
		return nil, ErrNoPid
	}

	p := &Proc{
		pid:     cmd.Process.Pid,
		started: time.Now(),
		exited:  make(chan struct{}),
		log:     l.log.Named("proc").With(zap.Int("pid", cmd.Process.Pid)),
	}

	go func() {
		// block until the process exits, then release the log file
		// and wake anyone waiting on the handle
		err := cmd.Wait()
		closeQuietly(output)
		p.log.Debug("worker process exited", zap.Error(err))
		close(p.exited)
	}()

	return p, nil
}

func (l *ExecLauncher) openLogFile() (*os.File, string, error) {
	dir := l.config.StateDir
	if dir == "" {
		dir = "state"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", err
	}

	// the manager's own pid in the name disambiguates concurrent
	// manager instances writing to the same state directory
	name := fmt.Sprintf("worker_%s_%d.log", time.Now().UTC().Format("20060102_150405"), os.Getpid())
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return nil, "", err
	}

	return file, path, nil
}

func closeQuietly(f *os.File) {
	if f != nil {
		f.Close()
	}
}

func mergeEnv(parent []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return parent
	}

	env := make([]string, 0, len(parent)+len(overrides))
	for _, kv := range parent {
		if key, _, ok := strings.Cut(kv, "="); ok {
			if _, overridden := overrides[key]; overridden {
				continue
			}
		}
		env = append(env, kv)
	}

	for k, v := range overrides {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	return env
}
