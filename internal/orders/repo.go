package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/db"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/pagination"
)

const (
	sessionConstraint = "orders_external_session_id_key"
	numberConstraint  = "orders_order_number_key"
)

var (
	// ErrDuplicateSession is returned when an order already exists for the gateway session.
	ErrDuplicateSession = errors.New("order already recorded for session")
	// ErrDuplicateNumber is returned when the generated order number collides.
	ErrDuplicateNumber = errors.New("order number already taken")
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	switch {
	case err == nil:
		return nil
	case isViolationOf(err, sessionConstraint, "external_session_id"):
		return ErrDuplicateSession
	case isViolationOf(err, numberConstraint, "order_number"):
		return ErrDuplicateNumber
	}
	return err
}

// isViolationOf matches postgres by constraint name and sqlite by column.
func isViolationOf(err error, constraint, column string) bool {
	return db.IsUniqueViolation(err, constraint) || db.IsUniqueViolation(err, "orders."+column)
}

func (r *repository) FindByNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*models.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("tenant_id = ? AND order_number = ?", tenantID, orderNumber))
}

func (r *repository) first(q *gorm.DB) (*models.Order, error) {
	var order models.Order
	err := q.First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, limit int, cursor *pagination.Cursor, filters ListFilters) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.Email != "" {
		q = q.Where("customer_email = ?", filters.Email)
	}
	var rows []models.Order
	err := q.Scopes(pagination.Keyset(cursor, limit)).Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}
