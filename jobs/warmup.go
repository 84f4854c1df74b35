package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/arcollect/internal/collections"
	jobmetrics "github.com/odyssey-erp/arcollect/internal/jobs"
)

// Warmer is the slice of the collections service the warmup job drives.
type Warmer interface {
	LatestMonth(ctx context.Context) (string, error)
	Overview(ctx context.Context, month string) (collections.Overview, error)
	Division(ctx context.Context, division collections.Division, month string) (collections.DivisionView, error)
	Invalidate(ctx context.Context) error
}

// WarmupJob pre-populates the snapshot cache.
type WarmupJob struct {
	Collections Warmer
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Timeout     time.Duration
}

// NewWarmupJob wires dependencies for the warmup handler.
func NewWarmupJob(svc Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{Collections: svc, Logger: logger, Metrics: metrics, Timeout: 30 * time.Second}
}

// Handle processes TaskSnapshotWarmup tasks.
func (j *WarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Collections == nil {
		return errors.New("warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := payload.Validate(); err != nil {
		j.logger().Warn("discard warmup task", slog.Any("error", err))
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskSnapshotWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	return j.Run(ctx, payload)
}

// Run warms the snapshots named by payload.
func (j *WarmupJob) Run(ctx context.Context, payload WarmupPayload) error {
	start := time.Now()
	if payload.Invalidate {
		if err := j.Collections.Invalidate(ctx); err != nil {
			return err
		}
	}
	month := payload.Month
	if month == "" {
		latest, err := j.Collections.LatestMonth(ctx)
		if err != nil {
			return err
		}
		month = latest
	}
	logger := j.logger().With(slog.String("month", month), slog.String("division", payload.Division))
	logger.Info("starting snapshot warmup")

	warmed := 0
	if payload.Division != "" {
		division, err := collections.ParseDivision(payload.Division)
		if err != nil {
			return err
		}
		if _, err := j.Collections.Division(ctx, division, month); err != nil {
			return err
		}
		warmed = 1
	} else {
		if _, err := j.Collections.Overview(ctx, month); err != nil {
			return err
		}
		for _, d := range collections.Divisions() {
			if _, err := j.Collections.Division(ctx, d, month); err != nil {
				return err
			}
			warmed++
		}
	}
	logger.Info("completed snapshot warmup", slog.Int("divisions", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *WarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSnapshotWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSnapshotWarmup))
}
