package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/payment"
)

type paymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment) (payment.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if pmt.ID == "" {
		pmt.ID = newID()
	}
	repo.db.payments[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *paymentRepository) GetPayment(ctx context.Context, campusID, id string) (payment.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	pmt, ok := repo.db.payments[id]
	if !ok || pmt.IsDeleted || pmt.CampusID != campusID {
		return payment.Payment{}, payment.ErrNotFound
	}
	return *pmt, nil
}

func (repo *paymentRepository) GetPaymentByOrderID(ctx context.Context, gateway, orderID string) (payment.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, pmt := range repo.db.payments {
		if pmt.Gateway == gateway && pmt.GatewayOrderID == orderID && !pmt.IsDeleted {
			return *pmt, nil
		}
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var pmts []payment.Payment
	for _, pmt := range repo.db.payments {
		if pmt.IsDeleted {
			continue
		}
		if filter != nil {
			if filter.CampusID != "" && pmt.CampusID != filter.CampusID {
				continue
			}
			if filter.StudentID != "" && pmt.StudentID != filter.StudentID {
				continue
			}
			if filter.Gateway != "" && pmt.Gateway != filter.Gateway {
				continue
			}
			if filter.Status != "" && pmt.Status != filter.Status {
				continue
			}
			if !filter.From.IsZero() && pmt.CreatedAt.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && pmt.CreatedAt.After(filter.To) {
				continue
			}
		}
		pmts = append(pmts, *pmt)
	}
	sort.Slice(pmts, func(i, j int) bool { return pmts[i].CreatedAt.Before(pmts[j].CreatedAt) })
	return pmts, nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, pmt payment.Payment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.payments[pmt.ID]; !ok {
		return payment.ErrNotFound
	}
	repo.db.payments[pmt.ID] = &pmt
	return nil
}

type auditRepository struct {
	db *DB
}

func NewAuditRepository(db *DB) payment.AuditRepository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateAuditEvent(ctx context.Context, ev payment.AuditEvent) (payment.AuditEvent, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if ev.ID == "" {
		ev.ID = newID()
	}
	repo.db.auditEvents[ev.ID] = &ev
	return ev, nil
}

func (repo *auditRepository) QueryAuditEvents(ctx context.Context, filter *payment.AuditQueryFilter, ordering []core.DBOrdering) ([]payment.AuditEvent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var evs []payment.AuditEvent
	for _, ev := range repo.db.auditEvents {
		if filter != nil {
			if filter.CampusID != "" && ev.CampusID != filter.CampusID {
				continue
			}
			if filter.Kind != "" && ev.Kind != filter.Kind {
				continue
			}
			if filter.Severity != "" && ev.Severity != filter.Severity {
				continue
			}
			if filter.IP != "" && ev.IP != filter.IP {
				continue
			}
			if !filter.From.IsZero() && ev.CreatedAt.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ev.CreatedAt.After(filter.To) {
				continue
			}
		}
		evs = append(evs, *ev)
	}
	sort.Slice(evs, func(i, j int) bool { return evs[i].CreatedAt.Before(evs[j].CreatedAt) })
	return evs, nil
}
