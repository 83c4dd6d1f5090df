package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"referral-purchase-service/internal/model"
	"referral-purchase-service/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("credenciales incorrectas")
	ErrInvalidSession     = errors.New("sesión inválida o expirada")
)

type AdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)
}

// SessionStore guarda las sesiones vivas; Delete debe avisar por Revocations.
type SessionStore interface {
	Save(ctx context.Context, s *model.Session) error
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Revocations(ctx context.Context) (<-chan string, func())
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Servicio de autenticación de administradores: email + contraseña, sesión firmada con JWT.
type AuthService struct {
	admins AdminRepository
	store  SessionStore
	secret []byte
	ttl    time.Duration
}

func NewAuthService(admins AdminRepository, store SessionStore, secret string, ttl time.Duration) *AuthService {
	return &AuthService{admins: admins, store: store, secret: []byte(secret), ttl: ttl}
}

func (a *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	admin, err := a.admins.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("buscar admin: %w", err)
	}
	if !admin.Enabled {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	s := &model.Session{
		ID:        uuid.NewString(),
		UserID:    admin.ID,
		Email:     admin.Email,
		ExpiresAt: now.Add(a.ttl),
	}
	claims := sessionClaims{
		SessionID: s.ID,
		Email:     s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	s.Token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("firmar token: %w", err)
	}
	if err := a.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("guardar sesión: %w", err)
	}
	return s, nil
}

// ValidateToken verifica la firma, la expiración y que la sesión siga abierta.
func (a *AuthService) ValidateToken(ctx context.Context, token string) (*model.Session, error) {
	claims, err := a.parse(token)
	if err != nil {
		return nil, ErrInvalidSession
	}
	ok, err := a.store.Exists(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("consultar sesión: %w", err)
	}
	if !ok {
		return nil, ErrInvalidSession
	}
	return &model.Session{
		ID:        claims.SessionID,
		UserID:    claims.Subject,
		Email:     claims.Email,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SignOut cierra la sesión del token. Un token inválido o vencido ya no tiene sesión que cerrar.
func (a *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := a.parse(token)
	if err != nil {
		return nil
	}
	return a.store.Delete(ctx, claims.SessionID)
}

func (a *AuthService) Revocations(ctx context.Context) (<-chan string, func()) {
	return a.store.Revocations(ctx)
}

func (a *AuthService) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !tok.Valid || claims.SessionID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// HashPassword genera el hash bcrypt que guarda cmd/seedadmin.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
