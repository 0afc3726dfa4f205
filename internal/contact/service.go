package contact

import (
	"context"
	"fmt"
	"strings"

	"github.com/rapidsites/storefront/pkg/db/models"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/mailer"
)

const (
	MsgSent       = "Thank you for your message. We'll be in touch soon!"
	MsgSendFailed = "Failed to send message. Please try again."
)

// Input is a validated contact form submission.
type Input struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=40"`
	Message string `json:"message" validate:"required,min=10,max=1000"`
}

type Service struct {
	mail mailer.Sender
	logg *logger.Logger
}

func NewService(mail mailer.Sender, logg *logger.Logger) (*Service, error) {
	if mail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mailer required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{mail: mail, logg: logg}, nil
}

// Submit relays the enquiry to the tenant's contact address with the visitor
// as reply-to.
func (s *Service) Submit(ctx context.Context, tenant *models.Tenant, in Input) error {
	if tenant == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	to := strings.TrimSpace(tenant.ContactEmail)
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, MsgSendFailed)
	}

	msg := mailer.Message{
		From:    mailer.Address{Name: tenant.Name},
		To:      mailer.Address{Name: tenant.Name, Email: to},
		ReplyTo: &mailer.Address{Name: strings.TrimSpace(in.Name), Email: strings.TrimSpace(in.Email)},
		Subject: fmt.Sprintf("New enquiry from %s", strings.TrimSpace(in.Name)),
		Text:    body(tenant, in),
	}
	if tenant.EmailFrom != nil {
		msg.From.Email = *tenant.EmailFrom
	}

	if err := s.mail.Send(ctx, msg); err != nil {
		s.logg.Error(s.logg.WithTenant(ctx, tenant.Slug), "contact email failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, MsgSendFailed)
	}
	return nil
}

func body(tenant *models.Tenant, in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New contact form submission for %s\n\n", tenant.Name)
	fmt.Fprintf(&b, "Name: %s\n", strings.TrimSpace(in.Name))
	fmt.Fprintf(&b, "Email: %s\n", strings.TrimSpace(in.Email))
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", phone)
	}
	fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(in.Message))
	return b.String()
}
