// Package dashboard es el panel de revisión de compras para un administrador
// conectado. Sesión, carga inicial, feed en vivo, búsqueda y visor de
// comprobantes se reducen en una sola goroutine a partir de eventos tipados.
//
// Cada entrada en estado autenticado abre una época nueva (Generation). Los
// resultados de una época anterior se descartan, así un cierre de sesión seguido
// de otro inicio vuelve a cargar todo desde cero.
package dashboard

import (
	"context"
	"sync"
	"time"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/export"
	"referral-purchase-service/internal/model"
	"referral-purchase-service/internal/service"

	"github.com/rs/zerolog/log"
)

const MsgCredenciales = "Credenciales incorrectas"

type Status string

const (
	StatusLoading         Status = "loading"
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticated   Status = "authenticated"
)

// State es una foto inmutable del panel.
type State struct {
	Status        Status                 `json:"status"`
	Error         string                 `json:"error,omitempty"`
	Session       *model.Session         `json:"session,omitempty"`
	Records       []model.PurchaseRecord `json:"-"`
	Filtered      []model.PurchaseRecord `json:"compras"`
	Search        string                 `json:"search"`
	Total         int                    `json:"total"`
	Today         int                    `json:"hoy"`
	SelectedImage string                 `json:"selectedImage,omitempty"`
}

type Options struct {
	Location *time.Location
	Now      func() time.Time
}

type Dashboard struct {
	client backend.Client
	loc    *time.Location
	now    func() time.Time

	events  chan Event
	updates chan State
	done    chan struct{}
	stopped chan struct{}

	startOnce sync.Once
	closeOnce sync.Once

	// pushMu separa los envíos en curso del vaciado final de events
	pushMu sync.RWMutex
	closed bool

	snapMu sync.RWMutex
	snap   State

	// propiedad de la goroutine del reductor
	state        State
	generation   int
	sub          backend.Subscription
	unsubSession backend.Unsubscribe
}

func New(client backend.Client, opts Options) *Dashboard {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	d := &Dashboard{
		client:  client,
		loc:     opts.Location,
		now:     opts.Now,
		events:  make(chan Event, 64),
		updates: make(chan State, 16),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		state:   State{Status: StatusLoading},
	}
	d.snap = d.state
	return d
}

// Start se suscribe a los cambios de sesión, consulta la sesión actual y arranca el reductor.
func (d *Dashboard) Start() {
	d.startOnce.Do(func() {
		d.unsubSession = d.client.Sessions.OnSessionChange(func(ch backend.SessionChange) {
			d.push(SessionChanged{Session: ch.Session})
		})
		go d.run()
		go func() {
			s, err := d.client.Sessions.CurrentSession(context.Background())
			if err != nil {
				log.Error().Err(err).Msg("no se pudo consultar la sesión actual")
			}
			d.push(SessionChanged{Session: s})
		}()
	})
}

// Close libera la suscripción de sesión y la del feed. Es seguro llamarlo varias veces.
func (d *Dashboard) Close() {
	d.closeOnce.Do(func() { close(d.done) })
	d.startOnce.Do(func() { close(d.stopped) })
	<-d.stopped
}

// Updates entrega fotos del estado; si el lector se atrasa solo recibe la última.
func (d *Dashboard) Updates() <-chan State {
	return d.updates
}

func (d *Dashboard) State() State {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	return d.snap
}

// SignIn delega en el backend. El cambio a autenticado lo trae la notificación de sesión.
func (d *Dashboard) SignIn(email, password string) {
	d.push(SignInRequested{Email: email, Password: password})
}

func (d *Dashboard) SignOut() {
	go func() {
		if err := d.client.Sessions.SignOut(context.Background()); err != nil {
			log.Error().Err(err).Msg("error cerrando sesión")
		}
	}()
}

func (d *Dashboard) Search(term string) {
	d.push(SearchChanged{Term: term})
}

func (d *Dashboard) OpenImage(recordID string) {
	d.push(ImageOpened{RecordID: recordID})
}

func (d *Dashboard) CloseImage() {
	d.push(ImageClosed{})
}

// Export arma la planilla con todas las compras cargadas, sin aplicar la búsqueda.
func (d *Dashboard) Export() (string, []byte, error) {
	s := d.State()
	return export.Build(s.Records, d.now(), d.loc)
}

func (d *Dashboard) push(ev Event) bool {
	d.pushMu.RLock()
	defer d.pushMu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.events <- ev:
		return true
	case <-d.done:
		return false
	}
}

func (d *Dashboard) run() {
	defer close(d.stopped)
	for {
		select {
		case ev := <-d.events:
			d.apply(ev)
			d.publish()
		case <-d.done:
			d.teardown()
			return
		}
	}
}

func (d *Dashboard) teardown() {
	if d.unsubSession != nil {
		d.unsubSession()
	}

	// desde aquí push no encola nada; lo que quedó en el buffer se descarta,
	// salvo las suscripciones abiertas, que se liberan
	d.pushMu.Lock()
	d.closed = true
	d.pushMu.Unlock()
	d.drain()

	d.closeSubscription()
	close(d.updates)
}

func (d *Dashboard) drain() {
	for {
		select {
		case ev := <-d.events:
			if op, ok := ev.(SubscriptionOpened); ok && op.Subscription != nil {
				if err := op.Subscription.Unsubscribe(); err != nil {
					log.Error().Err(err).Msg("error cerrando el feed de compras")
				}
			}
		default:
			return
		}
	}
}

func (d *Dashboard) apply(ev Event) {
	switch ev := ev.(type) {
	case SessionChanged:
		if ev.Session == nil {
			d.leaveAuthenticated()
			return
		}
		if d.state.Status == StatusAuthenticated && d.state.Session != nil && d.state.Session.ID == ev.Session.ID {
			d.state.Session = ev.Session
			return
		}
		d.enterAuthenticated(ev.Session)

	case SignInRequested:
		d.state.Error = ""
		go func() {
			if _, err := d.client.Sessions.SignInWithPassword(context.Background(), ev.Email, ev.Password); err != nil {
				d.push(SignInFailed{Err: err})
			}
		}()

	case SignInFailed:
		log.Warn().Err(ev.Err).Msg("inicio de sesión rechazado")
		d.state.Error = MsgCredenciales

	case RecordsLoaded:
		if ev.Generation != d.generation {
			return
		}
		if ev.Err != nil {
			log.Error().Err(ev.Err).Msg("error cargando compras")
			return
		}
		d.state.Records = mergeLoaded(d.state.Records, ev.Records)

	case RecordInserted:
		if ev.Generation != d.generation || d.state.Status != StatusAuthenticated {
			return
		}
		if containsID(d.state.Records, ev.Record.ID) {
			return
		}
		d.state.Records = append([]model.PurchaseRecord{ev.Record}, d.state.Records...)

	case SubscriptionOpened:
		if ev.Err != nil {
			log.Error().Err(ev.Err).Msg("no se pudo abrir el feed de compras")
			return
		}
		if ev.Generation != d.generation || d.state.Status != StatusAuthenticated {
			_ = ev.Subscription.Unsubscribe()
			return
		}
		d.sub = ev.Subscription

	case SearchChanged:
		d.state.Search = ev.Term

	case ImageOpened:
		for _, r := range d.state.Records {
			if r.ID == ev.RecordID {
				d.state.SelectedImage = r.ComprobanteURL
				return
			}
		}

	case ImageClosed:
		d.state.SelectedImage = ""
	}
}

func (d *Dashboard) enterAuthenticated(s *model.Session) {
	d.closeSubscription()
	d.generation++
	gen := d.generation
	d.state.Status = StatusAuthenticated
	d.state.Session = s
	d.state.Error = ""
	d.state.Records = nil
	d.state.SelectedImage = ""

	go func() {
		recs, err := d.client.Table.Select(context.Background(), backend.TablePurchases, backend.OrderCreatedAt, true)
		d.push(RecordsLoaded{Generation: gen, Records: recs, Err: err})
	}()

	go func() {
		sub, err := d.client.Table.SubscribeToInserts(context.Background(), backend.TablePurchases, func(rec model.PurchaseRecord) {
			d.push(RecordInserted{Generation: gen, Record: rec})
		})
		if !d.push(SubscriptionOpened{Generation: gen, Subscription: sub, Err: err}) && sub != nil {
			_ = sub.Unsubscribe()
		}
	}()
}

func (d *Dashboard) leaveAuthenticated() {
	d.closeSubscription()
	d.generation++
	d.state = State{Status: StatusUnauthenticated, Error: d.state.Error}
}

func (d *Dashboard) closeSubscription() {
	if d.sub == nil {
		return
	}
	if err := d.sub.Unsubscribe(); err != nil {
		log.Error().Err(err).Msg("error cerrando el feed de compras")
	}
	d.sub = nil
}

func (d *Dashboard) publish() {
	s := d.state
	s.Filtered = service.Filter(s.Records, s.Search)
	s.Total = len(s.Records)
	s.Today = service.CountToday(s.Records, d.now(), d.loc)

	d.snapMu.Lock()
	d.snap = s
	d.snapMu.Unlock()

	select {
	case d.updates <- s:
	default:
		select {
		case <-d.updates:
		default:
		}
		select {
		case d.updates <- s:
		default:
		}
	}
}

// mergeLoaded pone delante los eventos en vivo que llegaron antes de la carga y
// no están en ella, y luego la carga completa.
func mergeLoaded(live, loaded []model.PurchaseRecord) []model.PurchaseRecord {
	seen := make(map[string]bool, len(loaded))
	for _, r := range loaded {
		seen[r.ID] = true
	}
	out := make([]model.PurchaseRecord, 0, len(live)+len(loaded))
	for _, r := range live {
		if !seen[r.ID] {
			out = append(out, r)
			seen[r.ID] = true
		}
	}
	return append(out, loaded...)
}

func containsID(records []model.PurchaseRecord, id string) bool {
	for _, r := range records {
		if r.ID == id {
			return true
		}
	}
	return false
}
