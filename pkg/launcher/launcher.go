package launcher

import (
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultOutputLimit is the default number of bytes kept from each output stream.
	DefaultOutputLimit = 64 * 1024
	// DefaultWaitDelay is how long output is still read once the process exited or was killed.
	DefaultWaitDelay = 500 * time.Millisecond
)

var (
	ErrEmptyCommand = errors.New("command path is empty")
	ErrLaunch       = errors.New("unable to start process")
	ErrExitStatus   = errors.New("process exited with a non-zero status")
)

// Command is a process to launch.
type Command struct {
	Path string
	Args []string
	Dir  string
}

// Result holds the outcome of a launched process.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
}

// Launcher launches commands.
type Launcher interface {
	Launch(ctx context.Context, cmd Command) (*Result, error)
}

// ProcessLauncher launches commands as operating system processes.
type ProcessLauncher struct {
	outputLimit int
	timeout     time.Duration
	waitDelay   time.Duration
}

type Option func(l *ProcessLauncher)

// WithOutputLimit sets how many bytes are kept from stdout and from stderr.
func WithOutputLimit(limit int) Option {
	return func(l *ProcessLauncher) {
		l.outputLimit = limit
	}
}

// WithTimeout kills processes running longer than timeout. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(l *ProcessLauncher) {
		l.timeout = timeout
	}
}

// WithWaitDelay bounds how long Launch waits for the output of processes left running by the
// launched one, such as a background or GUI process.
func WithWaitDelay(delay time.Duration) Option {
	return func(l *ProcessLauncher) {
		l.waitDelay = delay
	}
}

func NewProcessLauncher(opts ...Option) *ProcessLauncher {
	l := &ProcessLauncher{outputLimit: DefaultOutputLimit, waitDelay: DefaultWaitDelay}
	for _, opt := range opts {
		opt(l)
	}

	if l.outputLimit <= 0 {
		l.outputLimit = DefaultOutputLimit
	}

	if l.waitDelay <= 0 {
		l.waitDelay = DefaultWaitDelay
	}

	return l
}

// Launch starts cmd and waits for it to exit.
func (l *ProcessLauncher) Launch(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Path == "" {
		return nil, ErrEmptyCommand
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	proc := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.WaitDelay = l.waitDelay
	setProcessGroup(proc)

	stdout := newLimitedBuffer(l.outputLimit)
	stderr := newLimitedBuffer(l.outputLimit)
	proc.Stdout = stdout
	proc.Stderr = stderr

	err := proc.Start()
	if err != nil {
		return nil, errors.Wrapf(ErrLaunch, "%s: %v", cmd.Path, err)
	}

	err = proc.Wait()

	res := &Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  proc.ProcessState.ExitCode(),
		Truncated: stdout.truncated || stderr.truncated,
	}

	if err != nil && ctx.Err() != nil {
		return res, errors.Wrapf(ctx.Err(), "%s was stopped", cmd.Path)
	}

	// the process exited, only processes it started still hold its output
	if errors.Is(err, exec.ErrWaitDelay) {
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, errors.Wrapf(ErrExitStatus, "%s: exit code %d", cmd.Path, res.ExitCode)
		}

		return res, errors.Wrapf(err, "unable to wait for %s", cmd.Path)
	}

	return res, nil
}

var _ Launcher = (*ProcessLauncher)(nil)
