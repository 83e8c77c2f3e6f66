package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/liguemed/membership-core/internal/infra/http/middleware"
	"github.com/liguemed/membership-core/internal/resilience"
	"github.com/liguemed/membership-core/internal/usecase"
)

// NoticeSender delivers one decision notice to the agent (SMTP today).
type NoticeSender interface {
	SendPaymentDecision(notice usecase.DecisionNotice) error
}

// Worker consumes decision notices and delivers them through the
// breaker-guarded retry pipeline. Messages that still fail are
// dead-lettered rather than requeued.
type Worker struct {
	Channel *amqp.Channel
	Sender  NoticeSender
	Retry   *resilience.Retrier
	Log     *zap.SugaredLogger
}

func NewWorker(ch *amqp.Channel, sender NoticeSender, retry *resilience.Retrier, log *zap.SugaredLogger) *Worker {
	return &Worker{Channel: ch, Sender: sender, Retry: retry, Log: log}
}

func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	w.Log.Infow("notification worker started", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return amqp.ErrClosed
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var notice usecase.DecisionNotice
	if err := json.Unmarshal(d.Body, &notice); err != nil {
		w.Log.Errorw("malformed decision notice, dead-lettering", "err", err)
		middleware.RecordNotificationFailure()
		d.Nack(false, false)
		return
	}

	err := w.Retry.Do(ctx, func(ctx context.Context) error {
		return w.Sender.SendPaymentDecision(notice)
	})
	if err != nil {
		w.Log.Warnw("decision notice delivery failed, dead-lettering",
			"agent_id", notice.AgentID, "err", err)
		middleware.RecordNotificationFailure()
		d.Nack(false, false)
		return
	}

	w.Log.Infow("decision notice delivered", "agent_id", notice.AgentID, "status", notice.Status)
	d.Ack(false)
}
