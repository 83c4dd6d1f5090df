// Package backend declara lo que el formulario y el panel necesitan del backend:
// sesiones de administrador, almacenamiento de archivos y la tabla purchases con
// su feed de inserciones. Client agrupa las tres APIs y se pasa explícitamente.
package backend

import (
	"context"
	"errors"

	"referral-purchase-service/internal/model"
)

const (
	TablePurchases = "purchases"
	OrderCreatedAt = "created_at"
)

var ErrUnknownTable = errors.New("tabla desconocida")

// SessionChange se entrega en cada transición de sesión. Session nil = sin sesión.
type SessionChange struct {
	Session *model.Session
}

// Unsubscribe libera una suscripción; llamarla más de una vez no tiene efecto.
type Unsubscribe func()

type Sessions interface {
	CurrentSession(ctx context.Context) (*model.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context) error
	OnSessionChange(fn func(SessionChange)) Unsubscribe
}

type Storage interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) error
	PublicURL(bucket, path string) string
}

type Subscription interface {
	Unsubscribe() error
}

type Table interface {
	Select(ctx context.Context, table, orderBy string, desc bool) ([]model.PurchaseRecord, error)
	Insert(ctx context.Context, table string, p model.NewPurchase) (model.PurchaseRecord, error)
	SubscribeToInserts(ctx context.Context, table string, fn func(model.PurchaseRecord)) (Subscription, error)
}

type Client struct {
	Sessions Sessions
	Storage  Storage
	Table    Table
}
