package service_test

import (
	"context"
	"testing"
	"time"

	"referral-purchase-service/internal/backend/memory"
	"referral-purchase-service/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T) (*service.AuthService, *memory.Admins, *memory.SessionStore) {
	t.Helper()
	admins := memory.NewAdmins()
	store := memory.NewSessionStore()
	return service.NewAuthService(admins, store, "test-secret", time.Hour), admins, store
}

func TestSignIn_Success(t *testing.T) {
	auth, admins, store := newAuth(t)
	adm := admins.Add("admin@example.com", "clave")

	s, err := auth.SignInWithPassword(context.Background(), "  Admin@Example.com ", "clave")
	require.NoError(t, err)

	assert.Equal(t, adm.ID, s.UserID)
	assert.Equal(t, "admin@example.com", s.Email)
	assert.NotEmpty(t, s.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, 5*time.Second)

	ok, err := store.Exists(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	auth, admins, _ := newAuth(t)
	admins.Add("admin@example.com", "clave")

	_, err := auth.SignInWithPassword(context.Background(), "admin@example.com", "otra")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = auth.SignInWithPassword(context.Background(), "nadie@example.com", "clave")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestSignIn_DisabledAdmin(t *testing.T) {
	auth, admins, _ := newAuth(t)
	admins.Add("admin@example.com", "clave").Enabled = false

	_, err := auth.SignInWithPassword(context.Background(), "admin@example.com", "clave")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestValidateToken(t *testing.T) {
	auth, admins, _ := newAuth(t)
	admins.Add("admin@example.com", "clave")
	s, err := auth.SignInWithPassword(context.Background(), "admin@example.com", "clave")
	require.NoError(t, err)

	got, err := auth.ValidateToken(context.Background(), s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.UserID, got.UserID)
	assert.Equal(t, s.Email, got.Email)

	_, err = auth.ValidateToken(context.Background(), "basura")
	assert.ErrorIs(t, err, service.ErrInvalidSession)

	other := service.NewAuthService(memory.NewAdmins(), memory.NewSessionStore(), "otra-clave", time.Hour)
	_, err = other.ValidateToken(context.Background(), s.Token)
	assert.ErrorIs(t, err, service.ErrInvalidSession)
}

func TestValidateToken_RejectsAlgNone(t *testing.T) {
	auth, _, _ := newAuth(t)
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sid": "x", "exp": time.Now().Add(time.Hour).Unix()})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.ValidateToken(context.Background(), raw)
	assert.ErrorIs(t, err, service.ErrInvalidSession)
}

func TestValidateToken_Expired(t *testing.T) {
	admins := memory.NewAdmins()
	admins.Add("admin@example.com", "clave")
	auth := service.NewAuthService(admins, memory.NewSessionStore(), "test-secret", -time.Minute)

	s, err := auth.SignInWithPassword(context.Background(), "admin@example.com", "clave")
	require.NoError(t, err)

	_, err = auth.ValidateToken(context.Background(), s.Token)
	assert.ErrorIs(t, err, service.ErrInvalidSession)
}

func TestSignOut_RevokesAndNotifies(t *testing.T) {
	auth, admins, _ := newAuth(t)
	admins.Add("admin@example.com", "clave")
	s, err := auth.SignInWithPassword(context.Background(), "admin@example.com", "clave")
	require.NoError(t, err)

	revoked, stop := auth.Revocations(context.Background())
	defer stop()

	require.NoError(t, auth.SignOut(context.Background(), s.Token))

	select {
	case id := <-revoked:
		assert.Equal(t, s.ID, id)
	case <-time.After(time.Second):
		t.Fatal("no llegó la revocación")
	}
	_, err = auth.ValidateToken(context.Background(), s.Token)
	assert.ErrorIs(t, err, service.ErrInvalidSession)

	// cerrar con un token inválido no es un error
	assert.NoError(t, auth.SignOut(context.Background(), "basura"))
}

func TestHashPassword(t *testing.T) {
	hash, err := service.HashPassword("clave")
	require.NoError(t, err)
	assert.NotEqual(t, "clave", hash)
	assert.Equal(t, "a@b.com", service.NormalizeEmail("  A@B.com\t"))
}
