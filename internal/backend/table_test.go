package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"referral-purchase-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Stubs ────────────────────────────────────────────────────────────────────

type stubRepo struct {
	inserted  []model.NewPurchase
	insertErr error
	orderBy   string
	desc      bool
}

func (r *stubRepo) Insert(_ context.Context, p model.NewPurchase) (model.PurchaseRecord, error) {
	if r.insertErr != nil {
		return model.PurchaseRecord{}, r.insertErr
	}
	r.inserted = append(r.inserted, p)
	return model.PurchaseRecord{
		ID:             "id-1",
		CodigoReferido: p.CodigoReferido,
		ComprobanteURL: p.ComprobanteURL,
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (r *stubRepo) FindAll(_ context.Context, orderBy string, desc bool) ([]model.PurchaseRecord, error) {
	r.orderBy, r.desc = orderBy, desc
	return []model.PurchaseRecord{{ID: "x"}}, nil
}

type stubPublisher struct {
	published []model.PurchaseRecord
	err       error
}

func (p *stubPublisher) PublishInserted(_ context.Context, rec model.PurchaseRecord) error {
	p.published = append(p.published, rec)
	return p.err
}

type stubSub struct{ closed bool }

func (s *stubSub) Unsubscribe() error {
	s.closed = true
	return nil
}

type stubFeed struct {
	fn  func(model.PurchaseRecord)
	sub *stubSub
}

func (f *stubFeed) Subscribe(_ context.Context, fn func(model.PurchaseRecord)) (Subscription, error) {
	f.fn = fn
	f.sub = &stubSub{}
	return f.sub, nil
}

func newTable() (*PurchasesTable, *stubRepo, *stubPublisher, *stubFeed) {
	repo, pub, feed := &stubRepo{}, &stubPublisher{}, &stubFeed{}
	return NewPurchasesTable(repo, pub, feed), repo, pub, feed
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestInsert_PersistsThenPublishes(t *testing.T) {
	tbl, repo, pub, _ := newTable()

	rec, err := tbl.Insert(context.Background(), TablePurchases, model.NewPurchase{CodigoReferido: "ABC", ComprobanteURL: "u"})

	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.ID)
	require.Len(t, repo.inserted, 1)
	require.Len(t, pub.published, 1)
	assert.Equal(t, rec, pub.published[0])
}

func TestInsert_PublishFailureStillReturnsRecord(t *testing.T) {
	tbl, _, pub, _ := newTable()
	pub.err = errors.New("canal cerrado")

	rec, err := tbl.Insert(context.Background(), TablePurchases, model.NewPurchase{CodigoReferido: "ABC"})

	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.ID)
}

func TestInsert_RepoFailureDoesNotPublish(t *testing.T) {
	tbl, repo, pub, _ := newTable()
	repo.insertErr = errors.New("mongo caído")

	_, err := tbl.Insert(context.Background(), TablePurchases, model.NewPurchase{CodigoReferido: "ABC"})

	assert.ErrorIs(t, err, repo.insertErr)
	assert.Empty(t, pub.published)
}

func TestUnknownTable(t *testing.T) {
	tbl, _, _, _ := newTable()

	_, err := tbl.Select(context.Background(), "users", OrderCreatedAt, true)
	assert.ErrorIs(t, err, ErrUnknownTable)
	_, err = tbl.Insert(context.Background(), "users", model.NewPurchase{})
	assert.ErrorIs(t, err, ErrUnknownTable)
	_, err = tbl.SubscribeToInserts(context.Background(), "users", func(model.PurchaseRecord) {})
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestSelect_PassesOrdering(t *testing.T) {
	tbl, repo, _, _ := newTable()

	recs, err := tbl.Select(context.Background(), TablePurchases, OrderCreatedAt, true)

	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, OrderCreatedAt, repo.orderBy)
	assert.True(t, repo.desc)
}

func TestSubscribeToInserts_UsesFeed(t *testing.T) {
	tbl, _, _, feed := newTable()
	var got []string

	sub, err := tbl.SubscribeToInserts(context.Background(), TablePurchases, func(r model.PurchaseRecord) {
		got = append(got, r.ID)
	})
	require.NoError(t, err)

	feed.fn(model.PurchaseRecord{ID: "a"})
	assert.Equal(t, []string{"a"}, got)

	require.NoError(t, sub.Unsubscribe())
	assert.True(t, feed.sub.closed)
}
