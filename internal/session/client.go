// Package session implementa la API de sesiones del backend para una conexión
// (una pestaña del panel). Cada cambio de sesión, propio o causado por otra
// pestaña que cerró la misma sesión, se notifica a los suscriptores.
package session

import (
	"context"
	"errors"
	"sync"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/model"
	"referral-purchase-service/internal/service"

	"github.com/rs/zerolog/log"
)

type Client struct {
	auth *service.AuthService

	mu        sync.Mutex
	token     string
	current   *model.Session
	resolved  bool
	listeners map[int]func(backend.SessionChange)
	nextID    int

	stopWatch func()
	watchDone chan struct{}
}

// NewClient crea el cliente. token puede venir de otra pestaña para retomar su sesión.
func NewClient(auth *service.AuthService, token string) *Client {
	c := &Client{
		auth:      auth,
		token:     token,
		listeners: make(map[int]func(backend.SessionChange)),
		watchDone: make(chan struct{}),
	}
	revoked, stop := auth.Revocations(context.Background())
	c.stopWatch = stop
	go c.watch(revoked)
	return c
}

func (c *Client) watch(revoked <-chan string) {
	defer close(c.watchDone)
	for id := range revoked {
		c.mu.Lock()
		hit := c.current != nil && c.current.ID == id
		if hit {
			c.current = nil
			c.token = ""
		}
		c.mu.Unlock()
		if hit {
			log.Debug().Str("session", id).Msg("sesión cerrada desde otra conexión")
			c.emit(backend.SessionChange{})
		}
	}
}

// Close deja de escuchar cierres de sesión. No cierra la sesión.
func (c *Client) Close() {
	c.stopWatch()
	<-c.watchDone
}

func (c *Client) CurrentSession(ctx context.Context) (*model.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.resolved {
		c.resolved = true
		if c.token != "" {
			s, err := c.auth.ValidateToken(ctx, c.token)
			if err != nil {
				c.token = ""
				if !errors.Is(err, service.ErrInvalidSession) {
					return nil, err
				}
			} else {
				c.current = s
			}
		}
	}
	return copySession(c.current), nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	s, err := c.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.resolved = true
	c.current = s
	c.token = s.Token
	c.mu.Unlock()

	c.emit(backend.SessionChange{Session: copySession(s)})
	return copySession(s), nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.token = ""
	c.mu.Unlock()
	if s == nil {
		return nil
	}

	err := c.auth.SignOut(ctx, s.Token)
	c.emit(backend.SessionChange{})
	return err
}

func (c *Client) OnSessionChange(fn func(backend.SessionChange)) backend.Unsubscribe {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) emit(ch backend.SessionChange) {
	c.mu.Lock()
	fns := make([]func(backend.SessionChange), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}

func copySession(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
