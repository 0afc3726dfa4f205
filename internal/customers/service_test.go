package customers

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidsites/storefront/pkg/db"
	"github.com/rapidsites/storefront/pkg/db/dbtest"
	"github.com/rapidsites/storefront/pkg/enums"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/types"
)

func TestRecordPurchaseCreatesThenAccumulates(t *testing.T) {
	conn := dbtest.Open(t)
	tenant := dbtest.SeedTenant(t, conn, "opals")
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn))
	require.NoError(t, err)
	ctx := context.Background()

	first := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.RecordPurchase(ctx, Purchase{
		TenantID: tenant.ID,
		Email:    "Jane@Example.com ",
		Name:     "Jane Doe",
		Total:    decimal.RequireFromString("250.00"),
		Address:  types.Address{Line1: "1 Opal St", City: "Coober Pedy", State: "SA", PostalCode: "5723"},
		At:       first,
	}))

	second := first.Add(48 * time.Hour)
	require.NoError(t, svc.RecordPurchase(ctx, Purchase{
		TenantID: tenant.ID,
		Email:    "jane@example.com",
		Phone:    "+61 400 111 222",
		Total:    decimal.RequireFromString("99.50"),
		Address:  types.Address{Line1: "2 Gem Rd", City: "Lightning Ridge", Country: "au"},
		At:       second,
	}))

	c, err := svc.Get(ctx, tenant.ID, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", c.Email)
	assert.Equal(t, enums.CustomerSourceCheckout, c.Source)
	assert.Equal(t, 2, c.TotalOrders)
	assert.True(t, decimal.RequireFromString("349.50").Equal(c.TotalSpent), c.TotalSpent.String())
	require.NotNil(t, c.Name)
	assert.Equal(t, "Jane Doe", *c.Name)
	require.NotNil(t, c.Phone)
	require.NotNil(t, c.LastOrderDate)
	assert.True(t, second.Equal(*c.LastOrderDate))
	require.NotNil(t, c.DefaultAddress)
	assert.Equal(t, "2 Gem Rd", c.DefaultAddress.Line1)
	assert.Equal(t, "AU", c.DefaultAddress.Country)
}

func TestRecordPurchaseRequiresEmail(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn))
	require.NoError(t, err)

	err = svc.RecordPurchase(context.Background(), Purchase{Email: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSubscribeOutcomes(t *testing.T) {
	conn := dbtest.Open(t)
	tenant := dbtest.SeedTenant(t, conn, "opals")
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn))
	require.NoError(t, err)
	ctx := context.Background()

	res, err := svc.Subscribe(ctx, tenant.ID, "new@example.com", "Newbie")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubscribed, res.Outcome)
	assert.Equal(t, MsgSubscribed, res.Message)

	res, err = svc.Subscribe(ctx, tenant.ID, "NEW@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadySubscribed, res.Outcome)

	require.NoError(t, svc.RecordPurchase(ctx, Purchase{TenantID: tenant.ID, Email: "buyer@example.com", Total: decimal.NewFromInt(10)}))
	res, err = svc.Subscribe(ctx, tenant.ID, "buyer@example.com", "Buyer")
	require.NoError(t, err)
	assert.Equal(t, OutcomeResubscribed, res.Outcome)
	assert.Equal(t, MsgWelcomeBack, res.Message)

	c, err := svc.Get(ctx, tenant.ID, "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, c.SubscribedToNewsletter)
	assert.NotNil(t, c.SubscribedAt)
	assert.Equal(t, enums.CustomerSourceCheckout, c.Source)
}

func TestGetMissingCustomer(t *testing.T) {
	conn := dbtest.Open(t)
	tenant := dbtest.SeedTenant(t, conn, "opals")
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), tenant.ID, "nobody@example.com")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
