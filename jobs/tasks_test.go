package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/Git-me-Harish/Video-KYC/internal/jobs"
	"github.com/Git-me-Harish/Video-KYC/internal/launcher"
)

type stubRunner struct {
	calls  int
	result launcher.ExitResult
	err    error
}

func (s *stubRunner) RunVerification(ctx context.Context) (launcher.ExitResult, error) {
	s.calls++
	return s.result, s.err
}

func newTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewVerificationTask(VerificationPayload{RequestedBy: "user-1"})
	require.NoError(t, err)
	return task
}

func TestNewVerificationTaskPayload(t *testing.T) {
	task := newTask(t)
	assert.Equal(t, TaskVerificationRun, task.Type())

	var payload VerificationPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "user-1", payload.RequestedBy)
}

func TestVerificationJobSuccess(t *testing.T) {
	runner := &stubRunner{result: launcher.ExitResult{Stdout: "ok"}}
	job := NewVerificationJob(runner, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	require.NoError(t, job.Handle(context.Background(), newTask(t)))
	assert.Equal(t, 1, runner.calls)
}

func TestVerificationJobStartFailureRetries(t *testing.T) {
	runner := &stubRunner{err: errors.New("exec: not found")}
	job := NewVerificationJob(runner, nil, nil)

	err := job.Handle(context.Background(), newTask(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestVerificationJobScriptFailureSkipsRetry(t *testing.T) {
	for _, result := range []launcher.ExitResult{{ExitCode: 1}, {Stderr: "no camera"}} {
		job := NewVerificationJob(&stubRunner{result: result}, nil, nil)
		err := job.Handle(context.Background(), newTask(t))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	}
}

func TestVerificationJobBadPayload(t *testing.T) {
	runner := &stubRunner{}
	job := NewVerificationJob(runner, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskVerificationRun, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, runner.calls)
}

func TestVerificationJobUnconfigured(t *testing.T) {
	var job *VerificationJob
	assert.Error(t, job.Handle(context.Background(), newTask(t)))
}
