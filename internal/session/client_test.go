package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/backend/memory"
	"referral-purchase-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T) *service.AuthService {
	t.Helper()
	admins := memory.NewAdmins()
	admins.Add("admin@example.com", "clave")
	return service.NewAuthService(admins, memory.NewSessionStore(), "secret", time.Hour)
}

type recorder struct {
	mu      sync.Mutex
	changes []backend.SessionChange
}

func (r *recorder) add(ch backend.SessionChange) {
	r.mu.Lock()
	r.changes = append(r.changes, ch)
	r.mu.Unlock()
}

func (r *recorder) get() []backend.SessionChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]backend.SessionChange(nil), r.changes...)
}

func TestCurrentSession_NoToken(t *testing.T) {
	c := NewClient(newAuth(t), "")
	defer c.Close()

	s, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSignInAndOut_Notifies(t *testing.T) {
	c := NewClient(newAuth(t), "")
	defer c.Close()
	rec := &recorder{}
	unsub := c.OnSessionChange(rec.add)

	s, err := c.SignInWithPassword(context.Background(), "admin@example.com", "clave")
	require.NoError(t, err)

	cur, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.ID, cur.ID)

	require.NoError(t, c.SignOut(context.Background()))
	cur, err = c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cur)

	changes := rec.get()
	require.Len(t, changes, 2)
	assert.Equal(t, s.ID, changes[0].Session.ID)
	assert.Nil(t, changes[1].Session)

	// sin suscriptor no llegan más cambios
	unsub()
	_, err = c.SignInWithPassword(context.Background(), "admin@example.com", "clave")
	require.NoError(t, err)
	assert.Len(t, rec.get(), 2)
}

func TestSignIn_Failure_NoNotification(t *testing.T) {
	c := NewClient(newAuth(t), "")
	defer c.Close()
	rec := &recorder{}
	c.OnSessionChange(rec.add)

	_, err := c.SignInWithPassword(context.Background(), "admin@example.com", "mala")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	assert.Empty(t, rec.get())
}

func TestSignOut_WithoutSession(t *testing.T) {
	c := NewClient(newAuth(t), "")
	defer c.Close()
	assert.NoError(t, c.SignOut(context.Background()))
}

func TestResumeFromToken_AndRevocationFromOtherClient(t *testing.T) {
	auth := newAuth(t)
	first := NewClient(auth, "")
	defer first.Close()
	s, err := first.SignInWithPassword(context.Background(), "admin@example.com", "clave")
	require.NoError(t, err)

	second := NewClient(auth, s.Token)
	defer second.Close()
	cur, err := second.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, s.ID, cur.ID)

	rec := &recorder{}
	second.OnSessionChange(rec.add)
	require.NoError(t, first.SignOut(context.Background()))

	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, rec.get()[0].Session)
	cur, err = second.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestResumeFromToken_Invalid(t *testing.T) {
	c := NewClient(newAuth(t), "basura")
	defer c.Close()

	s, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}
