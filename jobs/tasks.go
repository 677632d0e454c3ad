package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Git-me-Harish/Video-KYC/internal/jobs"
	"github.com/Git-me-Harish/Video-KYC/internal/launcher"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskVerificationRun runs the verification script out of band.
	TaskVerificationRun = "kyc:verification:run"
)

// VerificationPayload records who asked for the run.
type VerificationPayload struct {
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewVerificationTask constructs an Asynq task.
func NewVerificationTask(payload VerificationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVerificationRun, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// VerificationJob runs queued verification tasks with the same Runner the
// HTTP launcher uses.
type VerificationJob struct {
	Runner  launcher.Runner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewVerificationJob wires dependencies for the handler.
func NewVerificationJob(runner launcher.Runner, logger *slog.Logger, metrics *jobmetrics.Metrics) *VerificationJob {
	return &VerificationJob{Runner: runner, Logger: logger, Metrics: metrics}
}

// Handle processes TaskVerificationRun tasks. Start failures are retried; a
// script that ran and reported an error is not.
func (j *VerificationJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Runner == nil {
		return errors.New("verification job: runner not configured")
	}
	var payload VerificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskVerificationRun)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("requested_by", payload.RequestedBy))
	result, err := j.Runner.RunVerification(ctx)
	if err != nil {
		logger.Error("verification run", slog.Any("error", err))
		return err
	}
	if !result.Succeeded() {
		logger.Error("verification failed", slog.Int("exit_code", result.ExitCode), slog.String("stderr", result.Stderr))
		return fmt.Errorf("verification exited with code %d: %w", result.ExitCode, asynq.SkipRetry)
	}
	logger.Info("verification finished", slog.String("stdout", result.Stdout), slog.Duration("duration", result.Duration))
	return nil
}

func (j *VerificationJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
