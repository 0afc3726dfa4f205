package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/db"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Newsletter outcome messages shown to the subscriber.
const (
	MsgAlreadySubscribed = "You're already subscribed to our newsletter."
	MsgWelcomeBack       = "Welcome back! You've been re-subscribed to our newsletter."
	MsgSubscribed        = "Thank you for subscribing! Check your email for confirmation."
)

// SubscribeOutcome describes what a newsletter signup changed.
type SubscribeOutcome string

const (
	OutcomeAlreadySubscribed SubscribeOutcome = "already_subscribed"
	OutcomeResubscribed      SubscribeOutcome = "resubscribed"
	OutcomeSubscribed        SubscribeOutcome = "subscribed"
)

type SubscribeResult struct {
	Outcome SubscribeOutcome `json:"outcome"`
	Message string           `json:"message"`
}

// Purchase is a completed order folded into the customer record.
type Purchase struct {
	TenantID uuid.UUID
	Email    string
	Name     string
	Phone    string
	Total    decimal.Decimal
	Address  types.Address
	At       time.Time
}

type Service struct {
	repo *Repository
	tx   txRunner
	now  func() time.Time
}

func NewService(repo *Repository, tx txRunner) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Service{repo: repo, tx: tx, now: time.Now}, nil
}

// NormalizeEmail is the identity key for customers within a tenant.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RecordPurchase creates or updates the customer behind a paid order,
// incrementing order count and lifetime spend.
func (s *Service) RecordPurchase(ctx context.Context, p Purchase) error {
	email := NormalizeEmail(p.Email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	at := p.At
	if at.IsZero() {
		at = s.now()
	}
	addr := p.Address.Normalized()

	apply := func(c *models.Customer) {
		if name := strings.TrimSpace(p.Name); name != "" {
			c.Name = &name
		}
		if phone := strings.TrimSpace(p.Phone); phone != "" {
			c.Phone = &phone
		}
		c.TotalOrders++
		c.TotalSpent = c.TotalSpent.Add(p.Total)
		c.LastOrderDate = &at
		c.DefaultAddress = &addr
	}

	return s.upsert(ctx, p.TenantID, email, enums.CustomerSourceCheckout, func(c *models.Customer, _ bool) {
		apply(c)
	})
}

// Subscribe opts email into the tenant newsletter.
func (s *Service) Subscribe(ctx context.Context, tenantID uuid.UUID, email, name string) (SubscribeResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return SubscribeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	now := s.now()
	var result SubscribeResult

	err := s.upsert(ctx, tenantID, email, enums.CustomerSourceNewsletter, func(c *models.Customer, existed bool) {
		switch {
		case existed && c.SubscribedToNewsletter:
			result = SubscribeResult{Outcome: OutcomeAlreadySubscribed, Message: MsgAlreadySubscribed}
			return
		case existed:
			result = SubscribeResult{Outcome: OutcomeResubscribed, Message: MsgWelcomeBack}
		default:
			result = SubscribeResult{Outcome: OutcomeSubscribed, Message: MsgSubscribed}
		}
		c.SubscribedToNewsletter = true
		c.SubscribedAt = &now
		if n := strings.TrimSpace(name); n != "" && (c.Name == nil || *c.Name == "") {
			c.Name = &n
		}
	})
	if err != nil {
		return SubscribeResult{}, err
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, tenantID uuid.UUID, email string) (*models.Customer, error) {
	c, err := s.repo.FindByEmail(ctx, tenantID, NormalizeEmail(email))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return c, nil
}

// upsert loads or creates the customer row inside a transaction. A concurrent
// insert of the same email is retried once as an update.
func (s *Service) upsert(ctx context.Context, tenantID uuid.UUID, email string, source enums.CustomerSource, mutate func(c *models.Customer, existed bool)) error {
	attempt := func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			existing, err := repo.FindByEmail(ctx, tenantID, email)
			if err != nil {
				return err
			}
			if existing != nil {
				mutate(existing, true)
				return repo.Save(ctx, existing)
			}
			c := &models.Customer{
				TenantID:   tenantID,
				Email:      email,
				Source:     source,
				TotalSpent: decimal.Zero,
			}
			mutate(c, false)
			return repo.Create(ctx, c)
		})
	}

	err := attempt()
	if err != nil && db.IsUniqueViolation(err, "") {
		err = attempt()
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save customer")
	}
	return nil
}
