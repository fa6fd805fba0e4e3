package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/payment"
)

type paymentDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	CampusID         string             `bson:"campus_id"`
	StudentID        string             `bson:"student_id"`
	Amount           int64              `bson:"amount"`
	Currency         string             `bson:"currency"`
	Purpose          string             `bson:"purpose"`
	Gateway          string             `bson:"gateway"`
	GatewayOrderID   string             `bson:"gateway_order_id"`
	GatewayPaymentID string             `bson:"gateway_payment_id,omitempty"`
	Status           string             `bson:"status"`
	Receipt          string             `bson:"receipt"`
	IsDeleted        bool               `bson:"is_deleted"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
	SettledAt        time.Time          `bson:"settled_at,omitempty"`
}

func newPaymentDoc(pmt payment.Payment) (paymentDoc, error) {
	id, err := oid(pmt.ID)
	if err != nil {
		return paymentDoc{}, err
	}
	return paymentDoc{
		ID:               id,
		CampusID:         pmt.CampusID,
		StudentID:        pmt.StudentID,
		Amount:           pmt.Amount,
		Currency:         pmt.Currency,
		Purpose:          pmt.Purpose,
		Gateway:          pmt.Gateway,
		GatewayOrderID:   pmt.GatewayOrderID,
		GatewayPaymentID: pmt.GatewayPaymentID,
		Status:           pmt.Status,
		Receipt:          pmt.Receipt,
		IsDeleted:        pmt.IsDeleted,
		CreatedAt:        pmt.CreatedAt,
		UpdatedAt:        pmt.UpdatedAt,
		SettledAt:        pmt.SettledAt,
	}, nil
}

func (d paymentDoc) toPayment() payment.Payment {
	return payment.Payment{
		ID:               hexID(d.ID),
		CampusID:         d.CampusID,
		StudentID:        d.StudentID,
		Amount:           d.Amount,
		Currency:         d.Currency,
		Purpose:          d.Purpose,
		Gateway:          d.Gateway,
		GatewayOrderID:   d.GatewayOrderID,
		GatewayPaymentID: d.GatewayPaymentID,
		Status:           d.Status,
		Receipt:          d.Receipt,
		IsDeleted:        d.IsDeleted,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		SettledAt:        d.SettledAt,
	}
}

type paymentRepository struct {
	coll *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) payment.Repository {
	return &paymentRepository{coll: db.Collection("payments")}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment) (payment.Payment, error) {
	doc, err := newPaymentDoc(pmt)
	if err != nil {
		return payment.Payment{}, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = repo.coll.InsertOne(ctx, doc); err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return doc.toPayment(), nil
}

func (repo *paymentRepository) GetPayment(ctx context.Context, campusID, id string) (payment.Payment, error) {
	obj, err := oid(id)
	if err != nil {
		return payment.Payment{}, payment.ErrNotFound
	}

	var doc paymentDoc
	err = repo.coll.FindOne(ctx, bson.M{"_id": obj, "campus_id": campusID, "is_deleted": false}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return payment.Payment{}, payment.ErrNotFound
		}
		return payment.Payment{}, errors.Wrap(err, "getting payment")
	}
	return doc.toPayment(), nil
}

func (repo *paymentRepository) GetPaymentByOrderID(ctx context.Context, gateway, orderID string) (payment.Payment, error) {
	var doc paymentDoc
	err := repo.coll.FindOne(ctx, bson.M{
		"gateway":          gateway,
		"gateway_order_id": orderID,
		"is_deleted":       false,
	}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return payment.Payment{}, payment.ErrNotFound
		}
		return payment.Payment{}, errors.Wrap(err, "getting payment by order ID")
	}
	return doc.toPayment(), nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	query := bson.M{"is_deleted": false}
	if filter != nil {
		if filter.CampusID != "" {
			query["campus_id"] = filter.CampusID
		}
		if filter.StudentID != "" {
			query["student_id"] = filter.StudentID
		}
		if filter.Gateway != "" {
			query["gateway"] = filter.Gateway
		}
		if filter.Status != "" {
			query["status"] = filter.Status
		}
		if !filter.From.IsZero() || !filter.To.IsZero() {
			rng := bson.M{}
			if !filter.From.IsZero() {
				rng["$gte"] = filter.From
			}
			if !filter.To.IsZero() {
				rng["$lte"] = filter.To
			}
			query["created_at"] = rng
		}
	}

	cursor, err := repo.coll.Find(ctx, query, options.Find().SetSort(sortDoc(ordering)))
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var pmts []payment.Payment
	for cursor.Next(ctx) {
		var doc paymentDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding payment")
		}
		pmts = append(pmts, doc.toPayment())
	}
	return pmts, errors.Wrap(cursor.Err(), "iterating payments")
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, pmt payment.Payment) error {
	doc, err := newPaymentDoc(pmt)
	if err != nil {
		return payment.ErrNotFound
	}

	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return errors.Wrap(err, "updating payment")
	}
	if res.MatchedCount == 0 {
		return payment.ErrNotFound
	}
	return nil
}

type auditEventDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	EventID   string             `bson:"event_id"`
	Kind      string             `bson:"kind"`
	Severity  string             `bson:"severity"`
	CampusID  string             `bson:"campus_id,omitempty"`
	PaymentID string             `bson:"payment_id,omitempty"`
	Gateway   string             `bson:"gateway,omitempty"`
	Actor     string             `bson:"actor,omitempty"`
	IP        string             `bson:"ip,omitempty"`
	Metadata  map[string]string  `bson:"metadata,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d auditEventDoc) toAuditEvent() payment.AuditEvent {
	return payment.AuditEvent{
		ID:        hexID(d.ID),
		EventID:   d.EventID,
		Kind:      d.Kind,
		Severity:  d.Severity,
		CampusID:  d.CampusID,
		PaymentID: d.PaymentID,
		Gateway:   d.Gateway,
		Actor:     d.Actor,
		IP:        d.IP,
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
	}
}

type auditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) payment.AuditRepository {
	return &auditRepository{coll: db.Collection("audit_events")}
}

func (repo *auditRepository) CreateAuditEvent(ctx context.Context, ev payment.AuditEvent) (payment.AuditEvent, error) {
	id, err := oid(ev.ID)
	if err != nil {
		return payment.AuditEvent{}, err
	}
	if id.IsZero() {
		id = primitive.NewObjectID()
	}
	doc := auditEventDoc{
		ID:        id,
		EventID:   ev.EventID,
		Kind:      ev.Kind,
		Severity:  ev.Severity,
		CampusID:  ev.CampusID,
		PaymentID: ev.PaymentID,
		Gateway:   ev.Gateway,
		Actor:     ev.Actor,
		IP:        ev.IP,
		Metadata:  ev.Metadata,
		CreatedAt: ev.CreatedAt,
	}
	if _, err = repo.coll.InsertOne(ctx, doc); err != nil {
		return payment.AuditEvent{}, errors.Wrap(err, "inserting audit event")
	}
	return doc.toAuditEvent(), nil
}

func (repo *auditRepository) QueryAuditEvents(ctx context.Context, filter *payment.AuditQueryFilter, ordering []core.DBOrdering) ([]payment.AuditEvent, error) {
	query := bson.M{}
	if filter != nil {
		if filter.CampusID != "" {
			query["campus_id"] = filter.CampusID
		}
		if filter.Kind != "" {
			query["kind"] = filter.Kind
		}
		if filter.Severity != "" {
			query["severity"] = filter.Severity
		}
		if filter.IP != "" {
			query["ip"] = filter.IP
		}
		if !filter.From.IsZero() || !filter.To.IsZero() {
			rng := bson.M{}
			if !filter.From.IsZero() {
				rng["$gte"] = filter.From
			}
			if !filter.To.IsZero() {
				rng["$lte"] = filter.To
			}
			query["created_at"] = rng
		}
	}

	cursor, err := repo.coll.Find(ctx, query, options.Find().SetSort(sortDoc(ordering)))
	if err != nil {
		return nil, errors.Wrap(err, "querying audit events")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var evs []payment.AuditEvent
	for cursor.Next(ctx) {
		var doc auditEventDoc
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding audit event")
		}
		evs = append(evs, doc.toAuditEvent())
	}
	return evs, errors.Wrap(cursor.Err(), "iterating audit events")
}
