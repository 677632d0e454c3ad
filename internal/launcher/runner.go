package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/Git-me-Harish/Video-KYC/internal/shared"
)

const waitDelay = 2 * time.Second

// ExitResult captures a finished verification run.
type ExitResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Succeeded reports a zero exit with nothing written to stderr.
func (r ExitResult) Succeeded() bool {
	return r.ExitCode == 0 && r.Stderr == ""
}

// Runner launches the external verification program. A non-nil error means
// the program could not be started or did not finish; a program that ran and
// failed is reported through ExitResult.
type Runner interface {
	RunVerification(ctx context.Context) (ExitResult, error)
}

// ScriptRunner executes a script through an interpreter.
type ScriptRunner struct {
	Interpreter string
	ScriptPath  string
	Timeout     time.Duration
}

// RunVerification runs the script and waits for it to exit.
func (s ScriptRunner) RunVerification(ctx context.Context) (ExitResult, error) {
	if s.Interpreter == "" || s.ScriptPath == "" {
		return ExitResult{}, fmt.Errorf("%w: verification script not configured", shared.ErrUnavailableDependency)
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Interpreter, s.ScriptPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren may hold the output pipes open after a kill.
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	result := ExitResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("%w: verification script: %v", shared.ErrUnavailableDependency, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("%w: start verification script: %v", shared.ErrUnavailableDependency, err)
	}
	return result, nil
}

var _ Runner = ScriptRunner{}
