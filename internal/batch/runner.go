package batch

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/fluidpower-lab/pistonsweep/internal/events"
	"github.com/fluidpower-lab/pistonsweep/internal/mesh"
)

// Runner executes one variant's mesh rescale. The algorithm is identical
// either way; implementations differ only in isolation strategy.
type Runner interface {
	Run(ctx context.Context, scalarConfig, workDir string) Result
}

// DirectRunner runs the rescale in-process. No timeout applies: the
// transform is a finite pass over the source file.
type DirectRunner struct {
	Sink events.Sink
}

func (r *DirectRunner) Run(ctx context.Context, scalarConfig, workDir string) (res Result) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if p := recover(); p != nil {
			res = Result{
				Status:   StatusError,
				Detail:   fmt.Sprintf("panic: %v", p),
				Duration: time.Since(start),
			}
		}
	}()

	if err := mesh.RescaleFile(scalarConfig, r.Sink); err != nil {
		return Result{Status: StatusFailed, Detail: err.Error()}
	}
	return Result{Status: StatusSuccess}
}

// SubprocessRunner runs each rescale as an isolated child process bounded
// by Timeout. Killing a runaway task terminates that process only.
type SubprocessRunner struct {
	// Binary and Args form the command prefix; the scalar-config path is
	// appended as the final argument.
	Binary  string
	Args    []string
	Timeout time.Duration
}

func (r *SubprocessRunner) Run(ctx context.Context, scalarConfig, workDir string) Result {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, r.Args...), scalarConfig)
	cmd := exec.CommandContext(runCtx, r.Binary, args...)
	cmd.Dir = workDir

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{
			Status:   StatusTimeout,
			Detail:   fmt.Sprintf("exceeded %s", timeout),
			Duration: elapsed,
		}
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return Result{
				Status:   StatusFailed,
				Detail:   fmt.Sprintf("exit code %d: %s", exitErr.ExitCode(), firstLine(out)),
				Duration: elapsed,
			}
		}
		return Result{Status: StatusError, Detail: err.Error(), Duration: elapsed}
	}
	return Result{Status: StatusSuccess, Duration: elapsed}
}

func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}
