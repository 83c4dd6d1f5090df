package service

import (
	"context"
	"testing"
	"time"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Stub de la tabla ─────────────────────────────────────────────────────────

type stubTable struct {
	records []model.PurchaseRecord
	err     error
	calls   []string
}

func (s *stubTable) Select(_ context.Context, table, orderBy string, desc bool) ([]model.PurchaseRecord, error) {
	s.calls = append(s.calls, table+"/"+orderBy)
	if !desc {
		return nil, assert.AnError
	}
	return s.records, s.err
}

func (s *stubTable) Insert(context.Context, string, model.NewPurchase) (model.PurchaseRecord, error) {
	panic("no se usa")
}

func (s *stubTable) SubscribeToInserts(context.Context, string, func(model.PurchaseRecord)) (backend.Subscription, error) {
	panic("no se usa")
}

func str(s string) *string { return &s }

func sample() []model.PurchaseRecord {
	return []model.PurchaseRecord{
		{ID: "1", CodigoReferido: "ABC123", Nombre: str("Ana Pérez"), Email: str("ana@x.com")},
		{ID: "2", CodigoReferido: "XYZ", Nombre: str("Luis")},
		{ID: "3", CodigoReferido: "QQQ", Email: str("LUIS@corp.com")},
	}
}

func ids(records []model.PurchaseRecord) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	cases := []struct {
		term string
		want []string
	}{
		{"", []string{"1", "2", "3"}},
		{"abc", []string{"1"}},
		{"ana", []string{"1"}},
		{"luis", []string{"2", "3"}},
		{"CORP", []string{"3"}},
		{"xyz", []string{"2"}},
		{"nada", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.term, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Filter(sample(), tc.term)))
		})
	}
}

func TestCountToday_DateOnlyInLocation(t *testing.T) {
	loc := time.FixedZone("BOT", -4*3600)
	now := time.Date(2024, 3, 15, 22, 0, 0, 0, loc) // ya es 16 en UTC
	records := []model.PurchaseRecord{
		{ID: "a", CreatedAt: time.Date(2024, 3, 15, 4, 0, 0, 0, time.UTC)},  // 00:00 local
		{ID: "b", CreatedAt: time.Date(2024, 3, 16, 3, 59, 0, 0, time.UTC)}, // 23:59 local
		{ID: "c", CreatedAt: time.Date(2024, 3, 15, 3, 59, 0, 0, time.UTC)}, // 14 local
		{ID: "d", CreatedAt: time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC)}, // otro año
	}

	assert.Equal(t, 2, CountToday(records, now, loc))
	assert.Equal(t, 1, CountToday(records, now, time.UTC))
}

func TestPurchaseService_ListAndStats(t *testing.T) {
	tbl := &stubTable{records: sample()}
	svc := NewPurchaseService(tbl, time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	tbl.records[0].CreatedAt = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	list, err := svc.List(context.Background(), "luis")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(list))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Hoy)

	assert.Equal(t, []string{"purchases/created_at", "purchases/created_at"}, tbl.calls)
}

func TestPurchaseService_SelectError(t *testing.T) {
	svc := NewPurchaseService(&stubTable{err: assert.AnError}, time.UTC)

	_, err := svc.List(context.Background(), "")
	assert.ErrorIs(t, err, assert.AnError)
	_, err = svc.Stats(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
