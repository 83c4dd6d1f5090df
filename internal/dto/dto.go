// dto.go
package dto

import (
	"time"

	"referral-purchase-service/internal/model"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Email       string    `json:"email"`
}

type SessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	Session       *model.Session `json:"session,omitempty"`
}

type SubmitResponse struct {
	Message string                `json:"message"`
	Compra  *model.PurchaseRecord `json:"compra,omitempty"`
}

type StatsResponse struct {
	Total int `json:"total"`
	Hoy   int `json:"hoy"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
