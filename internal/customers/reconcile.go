package customers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
)

const reconcileBatchSize = 500

type customerKey struct {
	tenantID uuid.UUID
	email    string
}

type orderTotals struct {
	name  string
	count int
	spent decimal.Decimal
	last  time.Time
}

// ReconcileTotals rebuilds order counters from the orders table and returns
// how many customers were repaired. Purchase recording after checkout is
// best-effort, so counters can drift from the orders that exist.
func (s *Service) ReconcileTotals(ctx context.Context) (int64, error) {
	totals := map[customerKey]*orderTotals{}
	err := s.repo.EachOrderBatch(ctx, reconcileBatchSize, func(batch []models.Order) error {
		for _, o := range batch {
			key := customerKey{tenantID: o.TenantID, email: NormalizeEmail(o.CustomerEmail)}
			if key.email == "" {
				continue
			}
			t, ok := totals[key]
			if !ok {
				t = &orderTotals{spent: decimal.Zero}
				totals[key] = t
			}
			t.count++
			t.spent = t.spent.Add(o.Total)
			if o.CreatedAt.After(t.last) {
				t.last = o.CreatedAt
				t.name = strings.TrimSpace(o.CustomerName)
			}
		}
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan orders")
	}

	var repaired int64
	for key, t := range totals {
		existing, err := s.repo.FindByEmail(ctx, key.tenantID, key.email)
		if err != nil {
			return repaired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}
		if existing != nil && matches(existing, t) {
			continue
		}
		err = s.upsert(ctx, key.tenantID, key.email, enums.CustomerSourceCheckout, func(c *models.Customer, _ bool) {
			c.TotalOrders = t.count
			c.TotalSpent = t.spent
			last := t.last
			c.LastOrderDate = &last
			if (c.Name == nil || *c.Name == "") && t.name != "" {
				name := t.name
				c.Name = &name
			}
		})
		if err != nil {
			return repaired, err
		}
		repaired++
	}

	stale, err := s.repo.WithRecordedOrders(ctx)
	if err != nil {
		return repaired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customers")
	}
	for i := range stale {
		c := &stale[i]
		if _, ok := totals[customerKey{tenantID: c.TenantID, email: c.Email}]; ok {
			continue
		}
		c.TotalOrders = 0
		c.TotalSpent = decimal.Zero
		c.LastOrderDate = nil
		if err := s.repo.Save(ctx, c); err != nil {
			return repaired, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reset customer totals")
		}
		repaired++
	}
	return repaired, nil
}

func matches(c *models.Customer, t *orderTotals) bool {
	if c.TotalOrders != t.count || !c.TotalSpent.Equal(t.spent) {
		return false
	}
	if c.LastOrderDate == nil {
		return false
	}
	return c.LastOrderDate.Truncate(time.Second).Equal(t.last.Truncate(time.Second))
}
