package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincatalog "homeease/internal/domain/catalog"
)

type CatalogRepository struct {
	col *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{col: db.Collection("catalog_service")}
}

func (r *CatalogRepository) ByID(ctx context.Context, id domaincatalog.ServiceID) (*domaincatalog.Service, error) {
	var doc serviceDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaincatalog.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CatalogRepository) ListByProvider(ctx context.Context, providerID string) ([]*domaincatalog.Service, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"provider_id": providerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	out := make([]*domaincatalog.Service, 0)
	for cursor.Next(ctx) {
		var doc serviceDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

func (r *CatalogRepository) Save(ctx context.Context, s *domaincatalog.Service) error {
	doc := newServiceDocument(s)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type serviceDocument struct {
	ID          string        `bson:"_id"`
	Name        string        `bson:"name"`
	Description string        `bson:"description,omitempty"`
	Category    string        `bson:"category,omitempty"`
	ProviderID  string        `bson:"provider_id"`
	UnitPrice   moneyDocument `bson:"unit_price"`
	Active      bool          `bson:"active"`
	CreatedAt   int64         `bson:"created_at"`
	UpdatedAt   int64         `bson:"updated_at"`
}

func newServiceDocument(s *domaincatalog.Service) serviceDocument {
	return serviceDocument{
		ID:          string(s.ID),
		Name:        s.Name,
		Description: s.Description,
		Category:    s.Category,
		ProviderID:  s.ProviderID,
		UnitPrice:   newMoneyDocument(s.UnitPrice),
		Active:      s.Active,
		CreatedAt:   s.CreatedAt.UnixMilli(),
		UpdatedAt:   s.UpdatedAt.UnixMilli(),
	}
}

func (d serviceDocument) toAggregate() *domaincatalog.Service {
	return &domaincatalog.Service{
		ID:          domaincatalog.ServiceID(d.ID),
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		ProviderID:  d.ProviderID,
		UnitPrice:   d.UnitPrice.toMoney(),
		Active:      d.Active,
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
	}
}
