package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainprovider "homeease/internal/domain/provider"
)

type ProviderRepository struct {
	col *mongo.Collection
}

func NewProviderRepository(db *mongo.Database) *ProviderRepository {
	return &ProviderRepository{col: db.Collection("agg_provider")}
}

func (r *ProviderRepository) ByID(ctx context.Context, id string) (*domainprovider.Provider, error) {
	var doc providerDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainprovider.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ProviderRepository) Save(ctx context.Context, p *domainprovider.Provider) error {
	doc := newProviderDocument(p)
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	doc.Version = p.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	p.Version = doc.Version
	return nil
}

// UpdateLedger replaces only the ledger snapshot, leaving the profile fields
// alone. The recompute path owns the whole snapshot, so it is written without
// a version guard and the last write wins.
func (r *ProviderRepository) UpdateLedger(ctx context.Context, id string, ledger domainprovider.Ledger) error {
	update := bson.M{
		"$set": bson.M{
			"ledger": newLedgerDocument(ledger),
		},
		"$inc": bson.M{"version": int64(1)},
	}
	res, err := r.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainprovider.ErrNotFound
	}
	return nil
}

type ledgerDocument struct {
	CompletedServiceCount int           `bson:"completed_service_count"`
	LifetimeEarnings      moneyDocument `bson:"lifetime_earnings"`
	LastServiceDate       int64         `bson:"last_service_date,omitempty"`
}

func newLedgerDocument(l domainprovider.Ledger) ledgerDocument {
	doc := ledgerDocument{
		CompletedServiceCount: l.CompletedServiceCount,
		LifetimeEarnings:      newMoneyDocument(l.LifetimeEarnings),
	}
	if !l.LastServiceDate.IsZero() {
		doc.LastServiceDate = l.LastServiceDate.UnixMilli()
	}
	return doc
}

func (d ledgerDocument) toLedger() domainprovider.Ledger {
	l := domainprovider.Ledger{
		CompletedServiceCount: d.CompletedServiceCount,
		LifetimeEarnings:      d.LifetimeEarnings.toMoney(),
	}
	if d.LastServiceDate != 0 {
		l.LastServiceDate = timestampToTime(d.LastServiceDate)
	}
	return l
}

type providerDocument struct {
	ID        string         `bson:"_id"`
	Name      string         `bson:"name"`
	Phone     string         `bson:"phone,omitempty"`
	Skills    []string       `bson:"skills,omitempty"`
	Ledger    ledgerDocument `bson:"ledger"`
	CreatedAt int64          `bson:"created_at"`
	UpdatedAt int64          `bson:"updated_at"`
	Version   int64          `bson:"version"`
}

func newProviderDocument(p *domainprovider.Provider) providerDocument {
	return providerDocument{
		ID:        p.ID,
		Name:      p.Name,
		Phone:     p.Phone,
		Skills:    p.Skills,
		Ledger:    newLedgerDocument(p.Ledger),
		CreatedAt: p.CreatedAt.UnixMilli(),
		UpdatedAt: p.UpdatedAt.UnixMilli(),
		Version:   p.Version,
	}
}

func (d providerDocument) toAggregate() *domainprovider.Provider {
	return &domainprovider.Provider{
		ID:        d.ID,
		Name:      d.Name,
		Phone:     d.Phone,
		Skills:    d.Skills,
		Ledger:    d.Ledger.toLedger(),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}
