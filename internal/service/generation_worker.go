package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aozorajuku/scheduler-api/internal/dto"
	"github.com/aozorajuku/scheduler-api/pkg/jobs"
)

type generationRunner interface {
	Generate(ctx context.Context, req dto.GenerateSessionsRequest) (*dto.GenerationSummary, error)
}

// GenerationWorker runs queued template expansions in the background. The
// runner is bound after construction because the session service and the
// worker reference each other.
type GenerationWorker struct {
	queue  *jobs.Queue
	logger *zap.Logger

	mu     sync.RWMutex
	runner generationRunner
}

// NewGenerationWorker constructs the worker and its queue.
func NewGenerationWorker(cfg jobs.QueueConfig, logger *zap.Logger) *GenerationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &GenerationWorker{logger: logger}
	w.queue = jobs.NewQueue(GenerationJobType, w.handle, cfg)
	return w
}

// Bind attaches the runner that executes generation requests.
func (w *GenerationWorker) Bind(runner generationRunner) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.runner = runner
}

// Start launches the queue workers.
func (w *GenerationWorker) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop drains the queue workers.
func (w *GenerationWorker) Stop() {
	w.queue.Stop()
}

// Pending reports queued but unprocessed generation jobs.
func (w *GenerationWorker) Pending() int {
	return w.queue.Pending()
}

// EnqueueGeneration pushes a generation request onto the queue.
func (w *GenerationWorker) EnqueueGeneration(jobID string, req dto.GenerateSessionsRequest) error {
	return w.queue.Enqueue(jobs.Job{ID: jobID, Type: GenerationJobType, Payload: req})
}

func (w *GenerationWorker) handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.GenerateSessionsRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}
	w.mu.RLock()
	runner := w.runner
	w.mu.RUnlock()
	if runner == nil {
		return fmt.Errorf("generation runner not bound")
	}

	summary, err := runner.Generate(ctx, req)
	if err != nil {
		return err
	}
	w.logger.Info("background generation finished",
		zap.String("jobId", job.ID),
		zap.String("branchId", req.BranchID),
		zap.Int("requested", summary.Requested),
		zap.Int("created", summary.Created),
		zap.Int("skipped", len(summary.Skipped)))
	return nil
}
