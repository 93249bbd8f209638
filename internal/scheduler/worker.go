package scheduler

import (
	"context"
	"log/slog"

	"sdr_assistant_backend/platform/config"
	"sdr_assistant_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// LeadCorpusRebuilder rebuilds the lead index from a stored upload.
type LeadCorpusRebuilder interface {
	RebuildLeadCorpus(ctx context.Context, payload RebuildLeadCorpusPayload) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	rebuilder LeadCorpusRebuilder
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, rebuilder LeadCorpusRebuilder, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 2
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		rebuilder: rebuilder,
		log:       log,
	}
	w.mux.HandleFunc(TaskRebuildLeadCorpus, w.handleRebuildLeadCorpus)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleRebuildLeadCorpus(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRebuildLeadCorpusPayload(task)
	if err != nil {
		return err
	}

	w.log.Info("rebuilding lead corpus",
		slog.String("jobId", payload.JobID),
		slog.String("objectKey", payload.ObjectKey),
	)
	return w.rebuilder.RebuildLeadCorpus(ctx, payload)
}
