package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "homeease/internal/domain/booking"
	domaincatalog "homeease/internal/domain/catalog"
	"homeease/internal/domain/pricing"
	"homeease/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("agg_booking")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"customer_id": customerID})
}

func (r *BookingRepository) ListByProvider(ctx context.Context, providerID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"line_items.provider_id": providerID})
}

func (r *BookingRepository) ListCompletedByProvider(ctx context.Context, providerID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{
		"provider_id": providerID,
		"status":      string(domainbooking.StatusCompleted),
	})
}

// SetRating is a single conditional update: the filter admits only a
// completed, unrated booking, so of any concurrent attempts exactly one
// matches. The follow-up read disambiguates why the filter missed.
func (r *BookingRepository) SetRating(ctx context.Context, id domainbooking.BookingID, rating domainbooking.Rating) (*domainbooking.Booking, error) {
	filter := bson.M{
		"_id":    string(id),
		"status": string(domainbooking.StatusCompleted),
		"rating": nil,
	}
	update := bson.M{
		"$set": bson.M{
			"rating": &ratingDocument{
				Stars:   rating.Stars,
				Comment: rating.Comment,
				RatedAt: rating.RatedAt.UnixMilli(),
			},
			"updated_at": rating.RatedAt.UnixMilli(),
		},
		"$inc": bson.M{"version": int64(1)},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bookingDocument
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toAggregate(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	var current bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&current); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	if current.Status != string(domainbooking.StatusCompleted) {
		return nil, domainbooking.ErrNotCompleted
	}
	return nil, domainbooking.ErrAlreadyRated
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode booking: %w", err)
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type lineItemDocument struct {
	ServiceID  string        `bson:"service_id"`
	Name       string        `bson:"name"`
	ProviderID string        `bson:"provider_id"`
	Quantity   int           `bson:"quantity"`
	UnitPrice  moneyDocument `bson:"unit_price"`
}

type historyEntryDocument struct {
	Status string `bson:"status"`
	At     int64  `bson:"at"`
	Actor  string `bson:"actor"`
	Notes  string `bson:"notes,omitempty"`
}

type ratingDocument struct {
	Stars   int    `bson:"stars"`
	Comment string `bson:"comment,omitempty"`
	RatedAt int64  `bson:"rated_at"`
}

type promoDocument struct {
	Code           string        `bson:"code"`
	DiscountAmount moneyDocument `bson:"discount_amount"`
}

type paymentDocument struct {
	Method        string `bson:"method"`
	Status        string `bson:"status"`
	TransactionID string `bson:"transaction_id,omitempty"`
	PaidAt        int64  `bson:"paid_at,omitempty"`
}

type bookingDocument struct {
	ID                 string                 `bson:"_id"`
	CustomerID         string                 `bson:"customer_id"`
	ProviderID         string                 `bson:"provider_id"`
	LineItems          []lineItemDocument     `bson:"line_items"`
	Date               int64                  `bson:"date"`
	Slot               string                 `bson:"slot"`
	CustomerName       string                 `bson:"customer_name"`
	Phone              string                 `bson:"phone"`
	Email              string                 `bson:"email"`
	AddressLine1       string                 `bson:"address_line1"`
	AddressLine2       string                 `bson:"address_line2,omitempty"`
	City               string                 `bson:"city"`
	State              string                 `bson:"state,omitempty"`
	Pincode            string                 `bson:"pincode"`
	Subtotal           moneyDocument          `bson:"subtotal"`
	ServiceCharges     moneyDocument          `bson:"service_charges"`
	Discount           moneyDocument          `bson:"discount"`
	Total              moneyDocument          `bson:"total"`
	Promo              *promoDocument         `bson:"promo,omitempty"`
	Payment            paymentDocument        `bson:"payment"`
	Status             string                 `bson:"status"`
	ServiceStatus      string                 `bson:"service_status"`
	History            []historyEntryDocument `bson:"service_status_history"`
	Rating             *ratingDocument        `bson:"rating"`
	CompletedAt        int64                  `bson:"completed_at,omitempty"`
	CancelledAt        int64                  `bson:"cancelled_at,omitempty"`
	CancellationReason string                 `bson:"cancellation_reason,omitempty"`
	CreatedAt          int64                  `bson:"created_at"`
	UpdatedAt          int64                  `bson:"updated_at"`
	Version            int64                  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	lines := make([]lineItemDocument, 0, len(b.LineItems))
	for _, line := range b.LineItems {
		lines = append(lines, lineItemDocument{
			ServiceID:  string(line.ServiceID),
			Name:       line.Name,
			ProviderID: line.ProviderID,
			Quantity:   line.Quantity,
			UnitPrice:  newMoneyDocument(line.UnitPrice),
		})
	}
	history := make([]historyEntryDocument, 0, len(b.ServiceStatusHistory))
	for _, entry := range b.ServiceStatusHistory {
		history = append(history, historyEntryDocument{
			Status: string(entry.Status),
			At:     entry.At.UnixMilli(),
			Actor:  entry.Actor,
			Notes:  entry.Notes,
		})
	}
	doc := bookingDocument{
		ID:                 string(b.ID),
		CustomerID:         b.CustomerID,
		ProviderID:         b.ProviderID,
		LineItems:          lines,
		Date:               b.Scheduling.Date.UnixMilli(),
		Slot:               b.Scheduling.Slot,
		CustomerName:       b.CustomerInfo.Name,
		Phone:              b.CustomerInfo.Phone,
		Email:              b.CustomerInfo.Email,
		AddressLine1:       b.Address.Line1,
		AddressLine2:       b.Address.Line2,
		City:               b.Address.City,
		State:              b.Address.State,
		Pincode:            b.Address.Pincode,
		Subtotal:           newMoneyDocument(b.Pricing.Subtotal),
		ServiceCharges:     newMoneyDocument(b.Pricing.ServiceCharges),
		Discount:           newMoneyDocument(b.Pricing.Discount),
		Total:              newMoneyDocument(b.Pricing.Total),
		Payment: paymentDocument{
			Method:        string(b.Payment.Method),
			Status:        string(b.Payment.Status),
			TransactionID: b.Payment.TransactionID,
		},
		Status:             string(b.Status),
		ServiceStatus:      string(b.ServiceStatus),
		History:            history,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.UnixMilli(),
		UpdatedAt:          b.UpdatedAt.UnixMilli(),
		Version:            b.Version,
	}
	if b.PromoApplied != nil {
		doc.Promo = &promoDocument{
			Code:           b.PromoApplied.Code,
			DiscountAmount: newMoneyDocument(b.PromoApplied.DiscountAmount),
		}
	}
	if !b.Payment.PaidAt.IsZero() {
		doc.Payment.PaidAt = b.Payment.PaidAt.UnixMilli()
	}
	if b.Rating != nil {
		doc.Rating = &ratingDocument{
			Stars:   b.Rating.Stars,
			Comment: b.Rating.Comment,
			RatedAt: b.Rating.RatedAt.UnixMilli(),
		}
	}
	if !b.CompletedAt.IsZero() {
		doc.CompletedAt = b.CompletedAt.UnixMilli()
	}
	if !b.CancelledAt.IsZero() {
		doc.CancelledAt = b.CancelledAt.UnixMilli()
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	lines := make([]domainbooking.LineItem, 0, len(d.LineItems))
	for _, line := range d.LineItems {
		lines = append(lines, domainbooking.LineItem{
			ServiceID:  domaincatalog.ServiceID(line.ServiceID),
			Name:       line.Name,
			ProviderID: line.ProviderID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice.toMoney(),
		})
	}
	history := make([]domainbooking.HistoryEntry, 0, len(d.History))
	for _, entry := range d.History {
		history = append(history, domainbooking.HistoryEntry{
			Status: domainbooking.ServiceStatus(entry.Status),
			At:     timestampToTime(entry.At),
			Actor:  entry.Actor,
			Notes:  entry.Notes,
		})
	}
	agg := &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		CustomerID: d.CustomerID,
		ProviderID: d.ProviderID,
		LineItems:  lines,
		Scheduling: domainbooking.Scheduling{Date: timestampToTime(d.Date), Slot: d.Slot},
		CustomerInfo: domainbooking.CustomerInfo{
			Name:  d.CustomerName,
			Phone: d.Phone,
			Email: d.Email,
		},
		Address: domainbooking.Address{
			Line1:   d.AddressLine1,
			Line2:   d.AddressLine2,
			City:    d.City,
			State:   d.State,
			Pincode: d.Pincode,
		},
		Pricing: pricing.Quote{
			Subtotal:       d.Subtotal.toMoney(),
			ServiceCharges: d.ServiceCharges.toMoney(),
			Discount:       d.Discount.toMoney(),
			Total:          d.Total.toMoney(),
		},
		Payment: domainbooking.Payment{
			Method:        domainbooking.PaymentMethod(d.Payment.Method),
			Status:        domainbooking.PaymentStatus(d.Payment.Status),
			TransactionID: d.Payment.TransactionID,
		},
		Status:               domainbooking.Status(d.Status),
		ServiceStatus:        domainbooking.ServiceStatus(d.ServiceStatus),
		ServiceStatusHistory: history,
		CancellationReason:   d.CancellationReason,
		CreatedAt:            timestampToTime(d.CreatedAt),
		UpdatedAt:            timestampToTime(d.UpdatedAt),
		Version:              d.Version,
	}
	if d.Promo != nil {
		agg.PromoApplied = &pricing.PromoApplied{
			Code:           d.Promo.Code,
			DiscountAmount: d.Promo.DiscountAmount.toMoney(),
		}
	}
	if d.Payment.PaidAt != 0 {
		agg.Payment.PaidAt = timestampToTime(d.Payment.PaidAt)
	}
	if d.Rating != nil {
		agg.Rating = &domainbooking.Rating{
			Stars:   d.Rating.Stars,
			Comment: d.Rating.Comment,
			RatedAt: timestampToTime(d.Rating.RatedAt),
		}
	}
	if d.CompletedAt != 0 {
		agg.CompletedAt = timestampToTime(d.CompletedAt)
	}
	if d.CancelledAt != 0 {
		agg.CancelledAt = timestampToTime(d.CancelledAt)
	}
	return agg
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
