package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/distrischool/authservice/internal/logging"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// ProvisioningHandler applies one provisioning request. It must be
// idempotent: the same request may arrive more than once. A returned error
// means the request was not applied and should be delivered again.
type ProvisioningHandler interface {
	HandleProvisioning(ctx context.Context, e ProvisioningEvent) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
	Workers int
	// RetryRound bounds one backoff sequence; rounds repeat until the
	// handler succeeds or the consumer stops.
	RetryRound time.Duration
}

// Consumer reads provisioning requests with at-least-once semantics: an
// offset is committed only after its message was handled or found to be
// undecodable.
type Consumer struct {
	cfg        ConsumerConfig
	handler    ProvisioningHandler
	logger     logging.Logger
	newReader  func() messageReader
	newBackOff func() backoff.BackOff
}

func NewConsumer(cfg ConsumerConfig, h ProvisioningHandler, logger logging.Logger) *Consumer {
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	if cfg.Topic == "" {
		cfg.Topic = TopicUserCreate
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryRound <= 0 {
		cfg.RetryRound = time.Minute
	}

	c := &Consumer{
		cfg:     cfg,
		handler: h,
		logger:  logger.With("module", "provisioning_consumer", "topic", cfg.Topic),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	c.newReader = func() messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}
	return c
}

// Run blocks until ctx is cancelled or a reader fails for good.
func (c *Consumer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < c.cfg.Workers; i++ {
		r := c.newReader()
		worker := i
		g.Go(func() error {
			defer func() { _ = r.Close() }()
			return c.consume(gctx, r, worker)
		})
	}

	c.logger.Info(ctx, "provisioning consumer started", "workers", c.cfg.Workers, "group", c.cfg.GroupID)
	err := g.Wait()
	c.logger.Info(ctx, "provisioning consumer stopped")
	return err
}

func (c *Consumer) consume(ctx context.Context, r messageReader, worker int) error {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d: fetch: %w", worker, err)
		}

		if err := c.process(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d: %w", worker, err)
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d: commit: %w", worker, err)
		}
	}
}

// process returns only when the message is done with or ctx is cancelled.
func (c *Consumer) process(ctx context.Context, m kafka.Message) error {
	var e ProvisioningEvent
	if err := json.Unmarshal(m.Value, &e); err != nil {
		c.logger.Error(ctx, "dropping undecodable message", "partition", m.Partition, "offset", m.Offset, "error", err)
		return nil
	}

	for {
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			if err := c.handler.HandleProvisioning(ctx, e); err != nil {
				c.logger.Warn(ctx, "provisioning failed, will retry", "offset", m.Offset, "error", err)
				return struct{}{}, err
			}
			return struct{}{}, nil
		},
			backoff.WithBackOff(c.newBackOff()),
			backoff.WithMaxElapsedTime(c.cfg.RetryRound),
		)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error(ctx, "provisioning still failing after retry round", "offset", m.Offset, "error", err)
	}
}
