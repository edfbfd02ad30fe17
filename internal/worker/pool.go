package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"rent-reminder/internal/logging"
	"rent-reminder/internal/mailer"
	"rent-reminder/internal/messaging"
	"rent-reminder/internal/metrics"
)

// WorkerPool drains the mail outbox and hands each job to the SMTP mailer.
type WorkerPool struct {
	ch          messaging.Channel
	mail        mailer.Mailer
	workers     int
	sendTimeout time.Duration
	logger      logging.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewWorkerPool(ch messaging.Channel, mail mailer.Mailer, workerCount int, sendTimeout time.Duration, logger logging.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &WorkerPool{
		ch:          ch,
		mail:        mail,
		workers:     workerCount,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Start registers the consumer and runs the workers until ctx is done or
// Stop is called.
func (wp *WorkerPool) Start(ctx context.Context) error {
	if err := wp.ch.Qos(wp.workers, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	msgs, err := wp.ch.Consume(
		messaging.OutboxQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	ctx, wp.cancel = context.WithCancel(ctx)
	wp.logger.WithField("workers", wp.workers).Info("Starting mail outbox workers")
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.run(ctx, msgs)
	}
	return nil
}

func (wp *WorkerPool) run(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer wp.wg.Done()
	metrics.WorkerActive.Inc()
	defer metrics.WorkerActive.Dec()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			wp.handle(ctx, msg)
		}
	}
}

// handle acks delivered jobs and rejects failed ones to the DLQ.
func (wp *WorkerPool) handle(ctx context.Context, msg amqp.Delivery) {
	if err := wp.process(ctx, msg.Body); err != nil {
		wp.logger.WithError(err).Warn("Mail outbox job failed, dead-lettering")
		_ = msg.Reject(false) // send to DLQ
		metrics.OutboxProcessed.WithLabelValues("failed").Inc()
		return
	}
	_ = msg.Ack(false)
	metrics.OutboxProcessed.WithLabelValues("sent").Inc()
}

func (wp *WorkerPool) process(ctx context.Context, body []byte) error {
	job, err := mailer.Decode(body)
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, wp.sendTimeout)
	defer cancel()
	if err := wp.mail.Send(sendCtx, job); err != nil {
		return fmt.Errorf("deliver to %s: %w", job.To, err)
	}
	return nil
}

// Stop halts the workers and waits for in-flight jobs.
func (wp *WorkerPool) Stop() {
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.wg.Wait()
	wp.logger.Info("Mail outbox workers stopped")
}
