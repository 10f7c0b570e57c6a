package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-accounts"
)

// AccountFinder resolves the account a job refers to. The lifecycle manager
// satisfies it.
type AccountFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) *accounts.Account
}

// Worker consumes notification jobs from the Redis stream through a consumer
// group and turns them into outbound emails. Messages are only acknowledged
// after the email is handed to the mailer, so delivery is at-least-once.
type Worker struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	finder        AccountFinder
	renderer      *Renderer
	mailer        Mailer
	logger        accounts.Logger
	batchSize     int64
	blockDuration time.Duration
}

// WorkerConfig wires a Worker.
type WorkerConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Finder        AccountFinder
	Renderer      *Renderer
	Mailer        Mailer
	Logger        accounts.Logger
	BatchSize     int64
	BlockDuration time.Duration
}

// NewWorker builds a worker with sane defaults.
func NewWorker(client *redis.Client, config WorkerConfig) *Worker {
	if config.Stream == "" {
		config.Stream = accounts.NotificationQueue
	}
	if config.Group == "" {
		config.Group = "account-notifications"
	}
	if config.Consumer == "" {
		config.Consumer = "worker-1"
	}
	if config.Logger == nil {
		config.Logger = accounts.DefaultLogger()
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}

	return &Worker{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		finder:        config.Finder,
		renderer:      config.Renderer,
		mailer:        config.Mailer,
		logger:        config.Logger,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
	}
}

// Start runs the consume loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	err := w.client.XGroupCreateMkStream(ctx, w.stream, w.group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("notification worker started: stream=%s group=%s consumer=%s", w.stream, w.group, w.consumer)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification worker stopping: %s", w.stream)
			return ctx.Err()
		default:
			if err := w.readJobs(ctx); err != nil {
				w.logger.Error("error reading jobs: %v", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) readJobs(ctx context.Context) error {
	streams, err := w.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.group,
		Consumer: w.consumer,
		Streams:  []string{w.stream, ">"},
		Count:    w.batchSize,
		Block:    w.blockDuration,
	}).Result()

	if err == redis.Nil {
		return nil // no jobs
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			if err := w.processJob(ctx, message); err != nil {
				w.logger.Error("failed to process job %s: %v", message.ID, err)
				// unacked jobs are redelivered
				continue
			}

			if err := w.client.XAck(ctx, w.stream, w.group, message.ID).Err(); err != nil {
				w.logger.Error("failed to ACK job %s: %v", message.ID, err)
			}
		}
	}

	return nil
}

func (w *Worker) processJob(ctx context.Context, message redis.XMessage) error {
	payload, ok := message.Values["job"].(string)
	if !ok {
		return fmt.Errorf("invalid job format")
	}

	var job accounts.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	account := w.finder.GetByID(ctx, job.AccountID)
	if account == nil {
		// account deleted between dispatch and delivery: drop the job
		w.logger.Debug("dropping %s: account %s no longer exists", job.Name, job.AccountID)
		return nil
	}

	email, err := w.renderer.Render(job, account)
	if err != nil {
		return err
	}

	return w.mailer.Send(ctx, email)
}
