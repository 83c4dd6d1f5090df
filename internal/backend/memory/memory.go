// Package memory implementa en memoria las APIs del backend para tests y desarrollo local.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/model"
	"referral-purchase-service/internal/repository"
	"referral-purchase-service/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInjected = errors.New("fallo simulado")

// ── Admins ───────────────────────────────────────────────────────────────────

type Admins struct {
	mu     sync.Mutex
	byMail map[string]*model.Admin
}

func NewAdmins() *Admins {
	return &Admins{byMail: make(map[string]*model.Admin)}
}

// Add registra un admin habilitado con la contraseña dada.
func (a *Admins) Add(email, password string) *model.Admin {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	adm := &model.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
	}
	a.mu.Lock()
	a.byMail[email] = adm
	a.mu.Unlock()
	return adm
}

func (a *Admins) FindByEmail(_ context.Context, email string) (*model.Admin, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	adm, ok := a.byMail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *adm
	return &cp, nil
}

// ── Sessions ─────────────────────────────────────────────────────────────────

type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
	subs     map[int]chan string
	nextID   int
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]time.Time), subs: make(map[int]chan string)}
}

func (s *SessionStore) Save(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	s.sessions[sess.ID] = sess.ExpiresAt
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.sessions[id]
	return ok && time.Now().Before(exp), nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	for _, ch := range s.subs {
		select {
		case ch <- id:
		default:
		}
	}
	return nil
}

func (s *SessionStore) Revocations(_ context.Context) (<-chan string, func()) {
	ch := make(chan string, 16)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// ── Storage ──────────────────────────────────────────────────────────────────

type Object struct {
	ContentType string
	Data        []byte
}

type Storage struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]Object
	uploads int

	// FailUploads hace fallar cada Upload.
	FailUploads bool
}

func NewStorage(baseURL string) *Storage {
	return &Storage{baseURL: baseURL, objects: make(map[string]Object)}
}

func (s *Storage) Upload(_ context.Context, bucket, path, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	if s.FailUploads {
		return ErrInjected
	}
	key := bucket + "/" + path
	if _, dup := s.objects[key]; dup {
		return fmt.Errorf("el archivo %s ya existe", key)
	}
	s.objects[key] = Object{ContentType: contentType, Data: append([]byte(nil), data...)}
	return nil
}

func (s *Storage) PublicURL(bucket, path string) string {
	return storage.PublicURL(s.baseURL, bucket, path)
}

func (s *Storage) Object(bucket, path string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[bucket+"/"+path]
	return o, ok
}

// Open sirve un archivo guardado, como lo hace el storage GridFS.
func (s *Storage) Open(_ context.Context, bucket, path string) (*storage.Object, error) {
	o, ok := s.Object(bucket, path)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{
		ReadCloser:  io.NopCloser(bytes.NewReader(o.Data)),
		ContentType: o.ContentType,
		Size:        int64(len(o.Data)),
	}, nil
}

func (s *Storage) Uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// ── Table ────────────────────────────────────────────────────────────────────

type Table struct {
	mu      sync.Mutex
	records []model.PurchaseRecord
	subs    map[int]func(model.PurchaseRecord)
	nextID  int
	inserts int
	selects int

	// Now fija created_at; por defecto time.Now.
	Now         func() time.Time
	FailInserts bool
	FailSelects bool
}

func NewTable() *Table {
	return &Table{subs: make(map[int]func(model.PurchaseRecord)), Now: time.Now}
}

func (t *Table) Select(_ context.Context, table, orderBy string, desc bool) ([]model.PurchaseRecord, error) {
	if table != backend.TablePurchases {
		return nil, backend.ErrUnknownTable
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selects++
	if t.FailSelects {
		return nil, ErrInjected
	}
	if orderBy != backend.OrderCreatedAt {
		return nil, fmt.Errorf("orden no soportado: %s", orderBy)
	}
	out := append([]model.PurchaseRecord(nil), t.records...)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *Table) Insert(_ context.Context, table string, p model.NewPurchase) (model.PurchaseRecord, error) {
	if table != backend.TablePurchases {
		return model.PurchaseRecord{}, backend.ErrUnknownTable
	}
	t.mu.Lock()
	t.inserts++
	if t.FailInserts {
		t.mu.Unlock()
		return model.PurchaseRecord{}, ErrInjected
	}
	rec := model.PurchaseRecord{
		ID:             uuid.NewString(),
		Nombre:         p.Nombre,
		Email:          p.Email,
		CodigoReferido: p.CodigoReferido,
		ComprobanteURL: p.ComprobanteURL,
		CreatedAt:      t.Now().UTC(),
	}
	t.records = append(t.records, rec)
	t.mu.Unlock()

	t.Emit(rec)
	return rec, nil
}

// Emit entrega rec a los suscriptores sin guardarlo, como un evento repetido del feed.
func (t *Table) Emit(rec model.PurchaseRecord) {
	t.mu.Lock()
	fns := make([]func(model.PurchaseRecord), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(rec)
	}
}

// Seed guarda registros ya existentes sin emitir eventos.
func (t *Table) Seed(recs ...model.PurchaseRecord) {
	t.mu.Lock()
	t.records = append(t.records, recs...)
	t.mu.Unlock()
}

type subscription struct {
	t    *Table
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.t.mu.Lock()
		delete(s.t.subs, s.id)
		s.t.mu.Unlock()
	})
	return nil
}

func (t *Table) SubscribeToInserts(_ context.Context, table string, fn func(model.PurchaseRecord)) (backend.Subscription, error) {
	if table != backend.TablePurchases {
		return nil, backend.ErrUnknownTable
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	return &subscription{t: t, id: id}, nil
}

func (t *Table) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (t *Table) Inserts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inserts
}

func (t *Table) Selects() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selects
}
