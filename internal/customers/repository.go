package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByEmail expects email already lower-cased.
func (r *Repository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.Customer, error) {
	var c models.Customer
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND email = ?", tenantID, email).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, c *models.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) Save(ctx context.Context, c *models.Customer) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// EachOrderBatch streams countable orders (anything not cancelled) in primary
// key order.
func (r *Repository) EachOrderBatch(ctx context.Context, size int, fn func([]models.Order) error) error {
	var batch []models.Order
	return r.db.WithContext(ctx).
		Select("id", "tenant_id", "customer_email", "customer_name", "total", "created_at").
		Where("status <> ?", enums.OrderStatusCancelled).
		FindInBatches(&batch, size, func(*gorm.DB, int) error {
			return fn(batch)
		}).Error
}

// WithRecordedOrders returns customers whose counters show at least one order.
func (r *Repository) WithRecordedOrders(ctx context.Context) ([]models.Customer, error) {
	var out []models.Customer
	err := r.db.WithContext(ctx).Where("total_orders > 0").Find(&out).Error
	return out, err
}
