package dashboard

import (
	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/model"
)

// Event es todo lo que modifica el estado del panel. Solo el reductor los aplica.
type Event interface {
	event()
}

// SessionChanged llega de la consulta inicial y de cada notificación de sesión.
type SessionChanged struct {
	Session *model.Session
}

// RecordsLoaded es el resultado de la carga inicial de una época de sesión.
type RecordsLoaded struct {
	Generation int
	Records    []model.PurchaseRecord
	Err        error
}

// RecordInserted es un evento del feed de inserciones.
type RecordInserted struct {
	Generation int
	Record     model.PurchaseRecord
}

type SubscriptionOpened struct {
	Generation   int
	Subscription backend.Subscription
	Err          error
}

type SearchChanged struct {
	Term string
}

type ImageOpened struct {
	RecordID string
}

type ImageClosed struct{}

type SignInRequested struct {
	Email    string
	Password string
}

type SignInFailed struct {
	Err error
}

func (SessionChanged) event()     {}
func (RecordsLoaded) event()      {}
func (RecordInserted) event()     {}
func (SubscriptionOpened) event() {}
func (SearchChanged) event()      {}
func (ImageOpened) event()        {}
func (ImageClosed) event()        {}
func (SignInRequested) event()    {}
func (SignInFailed) event()       {}
