package service

import (
	"context"
	"strings"
	"time"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/dto"
	"referral-purchase-service/internal/model"
)

// Consultas del panel por HTTP: las mismas reglas de búsqueda y de "hoy" que usa el panel en vivo.
type PurchaseService struct {
	table backend.Table
	loc   *time.Location
	now   func() time.Time
}

func NewPurchaseService(table backend.Table, loc *time.Location) *PurchaseService {
	return &PurchaseService{table: table, loc: loc, now: time.Now}
}

// List devuelve las compras más recientes primero, filtradas por term si no está vacío.
func (s *PurchaseService) List(ctx context.Context, term string) ([]model.PurchaseRecord, error) {
	records, err := s.table.Select(ctx, backend.TablePurchases, backend.OrderCreatedAt, true)
	if err != nil {
		return nil, err
	}
	return Filter(records, term), nil
}

func (s *PurchaseService) All(ctx context.Context) ([]model.PurchaseRecord, error) {
	return s.table.Select(ctx, backend.TablePurchases, backend.OrderCreatedAt, true)
}

func (s *PurchaseService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.StatsResponse{
		Total: len(records),
		Hoy:   CountToday(records, s.now(), s.loc),
	}, nil
}

func (s *PurchaseService) Location() *time.Location {
	return s.loc
}

// Filter busca term sin distinguir mayúsculas en el código de referido, el nombre o el email.
func Filter(records []model.PurchaseRecord, term string) []model.PurchaseRecord {
	if term == "" {
		return records
	}
	t := strings.ToLower(term)
	out := make([]model.PurchaseRecord, 0, len(records))
	for _, r := range records {
		if matches(r, t) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r model.PurchaseRecord, t string) bool {
	if strings.Contains(strings.ToLower(r.CodigoReferido), t) {
		return true
	}
	if r.Nombre != nil && strings.Contains(strings.ToLower(*r.Nombre), t) {
		return true
	}
	return r.Email != nil && strings.Contains(strings.ToLower(*r.Email), t)
}

// CountToday cuenta las compras cuyo día calendario en loc coincide con el de now.
func CountToday(records []model.PurchaseRecord, now time.Time, loc *time.Location) int {
	y, m, d := now.In(loc).Date()
	n := 0
	for _, r := range records {
		ry, rm, rd := r.CreatedAt.In(loc).Date()
		if ry == y && rm == m && rd == d {
			n++
		}
	}
	return n
}
