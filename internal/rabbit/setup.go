// setup.go
package rabbit

import (
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Exchange fanout por el que viaja cada compra insertada.
const ExchangePurchasesInserted = "purchases.inserted"

// Setup declara el exchange del feed. Es idempotente.
func Setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangePurchasesInserted,
		"fanout",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}
	log.Info().Str("exchange", ExchangePurchasesInserted).Msg("exchange de compras declarado")
	return nil
}
