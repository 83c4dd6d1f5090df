package rabbit

import (
	"context"
	"sync"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/model"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Feed abre una cola exclusiva por suscriptor, enlazada al exchange de compras.
type Feed struct {
	conn *amqp091.Connection
}

func NewFeed(conn *amqp091.Connection) *Feed {
	return &Feed{conn: conn}
}

type FeedSubscription struct {
	ch   *amqp091.Channel
	once sync.Once
	done chan struct{}
}

// Unsubscribe cierra el canal; la cola exclusiva se borra con él.
func (s *FeedSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		err = s.ch.Close()
		<-s.done
	})
	return err
}

func (f *Feed) Subscribe(ctx context.Context, fn func(model.PurchaseRecord)) (backend.Subscription, error) {
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, err
	}

	// 1. Cola anónima, exclusiva y con auto-delete
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}

	// 2. Bindear al exchange fanout
	if err := ch.QueueBind(q.Name, "", ExchangePurchasesInserted, false, nil); err != nil {
		ch.Close()
		return nil, err
	}

	// 3. Consumir
	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}

	sub := &FeedSubscription{ch: ch, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for m := range msgs {
			rec, err := decodeInserted(m.Body)
			if err != nil {
				log.Error().Err(err).Str("queue", q.Name).Msg("mensaje de compra ilegible")
				continue
			}
			fn(rec)
		}
	}()

	log.Debug().Str("queue", q.Name).Msg("suscrito al feed de compras")
	return sub, nil
}
