package rabbit

import (
	"context"
	"encoding/json"
	"sync"

	"referral-purchase-service/internal/model"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// InsertedMessage es el sobre publicado en el exchange por cada compra nueva.
type InsertedMessage struct {
	CorrelationID string               `json:"correlation_id"`
	Exchange      string               `json:"exchange"`
	RoutingKey    string               `json:"routing_key"`
	Message       model.PurchaseRecord `json:"message"`
}

type Publisher struct {
	mu sync.Mutex
	ch *amqp091.Channel
}

func NewPublisher(ch *amqp091.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) PublishInserted(ctx context.Context, rec model.PurchaseRecord) error {
	body, err := encodeInserted(rec)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx,
		ExchangePurchasesInserted,
		"", // fanout ignora routing key
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         body,
		},
	)
}

func encodeInserted(rec model.PurchaseRecord) ([]byte, error) {
	return json.Marshal(InsertedMessage{
		CorrelationID: uuid.NewString(),
		Exchange:      ExchangePurchasesInserted,
		Message:       rec,
	})
}

func decodeInserted(body []byte) (model.PurchaseRecord, error) {
	var msg InsertedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return model.PurchaseRecord{}, err
	}
	return msg.Message, nil
}
