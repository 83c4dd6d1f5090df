package repository

import (
	"context"
	"errors"
	"time"

	"referral-purchase-service/internal/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("registro no encontrado")

// Mongo implementation
type MongoPurchaseRepository struct {
	col *mongo.Collection
}

func NewMongoPurchaseRepository(db *mongo.Database) *MongoPurchaseRepository {
	return &MongoPurchaseRepository{col: db.Collection("purchases")}
}

// EnsureIndexes crea el índice por fecha usado por el listado ordenado.
func (m *MongoPurchaseRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	return err
}

// Insert asigna id y created_at. Los campos ya asignados no se tocan después.
func (m *MongoPurchaseRepository) Insert(ctx context.Context, p model.NewPurchase) (model.PurchaseRecord, error) {
	rec := model.PurchaseRecord{
		ID:             uuid.NewString(),
		Nombre:         p.Nombre,
		Email:          p.Email,
		CodigoReferido: p.CodigoReferido,
		ComprobanteURL: p.ComprobanteURL,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := m.col.InsertOne(ctx, rec); err != nil {
		return model.PurchaseRecord{}, err
	}
	return rec, nil
}

func (m *MongoPurchaseRepository) FindAll(ctx context.Context, orderBy string, desc bool) ([]model.PurchaseRecord, error) {
	dir := 1
	if desc {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: orderBy, Value: dir}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []model.PurchaseRecord{}
	for cur.Next(ctx) {
		var v model.PurchaseRecord
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, cur.Err()
}

type MongoAdminRepository struct {
	col *mongo.Collection
}

func NewMongoAdminRepository(db *mongo.Database) *MongoAdminRepository {
	return &MongoAdminRepository{col: db.Collection("admins")}
}

func (m *MongoAdminRepository) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var res model.Admin
	err := m.col.FindOne(ctx, bson.M{"email": email}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Save hace upsert por email; usado por cmd/seedadmin.
func (m *MongoAdminRepository) Save(ctx context.Context, a *model.Admin) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	filter := bson.M{"email": a.Email}
	update := bson.M{
		"$set": bson.M{
			"password_hash": a.PasswordHash,
			"enabled":       a.Enabled,
		},
		"$setOnInsert": bson.M{
			"_id":        a.ID,
			"created_at": a.CreatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := m.col.UpdateOne(ctx, filter, update, opts)
	return err
}
