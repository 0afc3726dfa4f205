package newsletter

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rapidsites/storefront/internal/customers"
	"github.com/rapidsites/storefront/pkg/db/models"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/mailer"
)

type subscriber interface {
	Subscribe(ctx context.Context, tenantID uuid.UUID, email, name string) (customers.SubscribeResult, error)
}

type Service struct {
	customers subscriber
	mail      mailer.Sender
	logg      *logger.Logger
}

func NewService(customers subscriber, mail mailer.Sender, logg *logger.Logger) (*Service, error) {
	if customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer service required")
	}
	if mail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mailer required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{customers: customers, mail: mail, logg: logg}, nil
}

// Subscribe records the opt-in and, for new or returning subscribers, sends a
// welcome email. Delivery failures are logged and do not fail the request.
func (s *Service) Subscribe(ctx context.Context, tenant *models.Tenant, email, name string) (customers.SubscribeResult, error) {
	if tenant == nil {
		return customers.SubscribeResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	res, err := s.customers.Subscribe(ctx, tenant.ID, email, name)
	if err != nil {
		return customers.SubscribeResult{}, err
	}
	if res.Outcome == customers.OutcomeAlreadySubscribed {
		return res, nil
	}

	if err := s.mail.Send(ctx, welcomeMessage(tenant, customers.NormalizeEmail(email), name)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "newsletter welcome email not sent")
	}
	return res, nil
}

func welcomeMessage(tenant *models.Tenant, email, name string) mailer.Message {
	greeting := "Hi there,"
	if n := strings.TrimSpace(name); n != "" {
		greeting = fmt.Sprintf("Hi %s,", n)
	}
	msg := mailer.Message{
		From:    mailer.Address{Name: tenant.Name},
		To:      mailer.Address{Name: strings.TrimSpace(name), Email: email},
		Subject: fmt.Sprintf("Welcome to the %s newsletter", tenant.Name),
		Text: fmt.Sprintf("%s\n\nThanks for subscribing to %s. We'll let you know about new arrivals and special offers.\n\n%s\n",
			greeting, tenant.Name, tenant.Name),
	}
	if tenant.EmailFrom != nil {
		msg.From.Email = *tenant.EmailFrom
	}
	return msg
}
