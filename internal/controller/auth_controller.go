package controller

import (
	"errors"
	"net/http"

	"referral-purchase-service/internal/dto"
	"referral-purchase-service/internal/middleware"
	"referral-purchase-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const msgCredenciales = "Credenciales incorrectas"

type AuthController struct {
	Auth *service.AuthService
}

func NewAuthController(auth *service.AuthService) *AuthController {
	return &AuthController{Auth: auth}
}

// POST /auth/login - cualquier fallo responde lo mismo, sin decir qué campo falló
func (ctl *AuthController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		log.Debug().Err(err).Interface("fields", invalidFields(err)).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("login con datos inválidos")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: msgCredenciales})
		return
	}

	s, err := ctl.Auth.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("error en inicio de sesión")
		}
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: msgCredenciales})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken: s.Token,
		TokenType:   "bearer",
		ExpiresAt:   s.ExpiresAt,
		Email:       s.Email,
	})
}

// POST /auth/logout - requiere token
func (ctl *AuthController) Logout(c *gin.Context) {
	s := middleware.GetSession(c)
	if err := ctl.Auth.SignOut(c.Request.Context(), s.Token); err != nil {
		log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("error cerrando sesión")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Error al cerrar sesión"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sesión cerrada"})
}

// GET /auth/session - sin token responde authenticated=false
func (ctl *AuthController) Session(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		c.JSON(http.StatusOK, dto.SessionResponse{})
		return
	}
	s, err := ctl.Auth.ValidateToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidSession) {
			log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("error consultando sesión")
		}
		c.JSON(http.StatusOK, dto.SessionResponse{})
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{Authenticated: true, Session: s})
}
