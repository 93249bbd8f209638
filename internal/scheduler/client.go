package scheduler

import (
	"context"
	"time"

	"sdr_assistant_backend/platform/config"
	"sdr_assistant_backend/platform/redisconn"

	"github.com/hibiken/asynq"
)

const (
	rebuildMaxRetry = 3
	rebuildTimeout  = 10 * time.Minute
)

type Client struct {
	client *asynq.Client
	queue  string
}

// LeadCorpusEnqueuer hands a stored corpus upload to the background worker.
type LeadCorpusEnqueuer interface {
	EnqueueLeadCorpusRebuild(ctx context.Context, payload RebuildLeadCorpusPayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueueLeadCorpusRebuild(ctx context.Context, payload RebuildLeadCorpusPayload) error {
	task, err := NewRebuildLeadCorpusTask(payload)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.Queue(c.queue),
		asynq.MaxRetry(rebuildMaxRetry),
		asynq.Timeout(rebuildTimeout),
	}
	if payload.JobID != "" {
		opts = append(opts, asynq.TaskID(payload.JobID))
	}

	_, err = c.client.EnqueueContext(ctx, task, opts...)
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redisconn.Options(redisURL, tlsInsecure)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
