// models.go
package model

import "time"

// PurchaseRecord es una compra registrada. Solo se inserta, nunca se modifica.
type PurchaseRecord struct {
	ID             string    `bson:"_id" json:"id"`
	Nombre         *string   `bson:"nombre" json:"nombre"`
	Email          *string   `bson:"email" json:"email"`
	CodigoReferido string    `bson:"codigo_referido" json:"codigo_referido"`
	ComprobanteURL string    `bson:"comprobante_url" json:"comprobante_url"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// NewPurchase son los datos que envía el formulario; id y created_at los asigna la tabla.
type NewPurchase struct {
	Nombre         *string
	Email          *string
	CodigoReferido string
	ComprobanteURL string
}

type Admin struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Enabled      bool      `bson:"enabled" json:"enabled"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

// Session es una sesión de administrador autenticada. No hay roles: estar logueado alcanza.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}
