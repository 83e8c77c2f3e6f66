package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/liguemed/membership-core/internal/usecase"
)

// Producer publishes decision notices for the delivery worker. It
// implements usecase.NotificationDispatcher; the workflows treat every
// publish as fire-and-forget.
type Producer struct {
	Ch *amqp.Channel
}

func NewProducer(ch *amqp.Channel) *Producer {
	return &Producer{Ch: ch}
}

func (p *Producer) DispatchDecision(ctx context.Context, notice usecase.DecisionNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encoding decision notice: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing decision notice: %w", err)
	}
	return nil
}
