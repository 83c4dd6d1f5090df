package backend

import (
	"context"
	"fmt"

	"referral-purchase-service/internal/model"

	"github.com/rs/zerolog/log"
)

type PurchaseRepository interface {
	Insert(ctx context.Context, p model.NewPurchase) (model.PurchaseRecord, error)
	FindAll(ctx context.Context, orderBy string, desc bool) ([]model.PurchaseRecord, error)
}

type InsertPublisher interface {
	PublishInserted(ctx context.Context, rec model.PurchaseRecord) error
}

type InsertFeed interface {
	Subscribe(ctx context.Context, fn func(model.PurchaseRecord)) (Subscription, error)
}

// PurchasesTable es la tabla purchases: persistencia en el repositorio y
// eventos de inserción por el feed.
type PurchasesTable struct {
	repo PurchaseRepository
	pub  InsertPublisher
	feed InsertFeed
}

func NewPurchasesTable(repo PurchaseRepository, pub InsertPublisher, feed InsertFeed) *PurchasesTable {
	return &PurchasesTable{repo: repo, pub: pub, feed: feed}
}

func (t *PurchasesTable) Select(ctx context.Context, table, orderBy string, desc bool) ([]model.PurchaseRecord, error) {
	if table != TablePurchases {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return t.repo.FindAll(ctx, orderBy, desc)
}

// Insert persiste la compra y publica el evento. Si la publicación falla la
// compra ya está guardada: se registra y no se devuelve error.
func (t *PurchasesTable) Insert(ctx context.Context, table string, p model.NewPurchase) (model.PurchaseRecord, error) {
	if table != TablePurchases {
		return model.PurchaseRecord{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	rec, err := t.repo.Insert(ctx, p)
	if err != nil {
		return model.PurchaseRecord{}, err
	}
	if err := t.pub.PublishInserted(ctx, rec); err != nil {
		log.Error().Err(err).Str("id", rec.ID).Msg("no se pudo publicar la compra insertada")
	}
	return rec, nil
}

func (t *PurchasesTable) SubscribeToInserts(ctx context.Context, table string, fn func(model.PurchaseRecord)) (Subscription, error) {
	if table != TablePurchases {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return t.feed.Subscribe(ctx, fn)
}
