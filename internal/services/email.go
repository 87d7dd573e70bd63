package services

import (
	"context"
	"fmt"
	"log/slog"

	"schoolevents/internal/domain"
)

type emailService struct {
	logger   *slog.Logger
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns a Notifier that delivers intents as emails using the given
// Mailer and template renderer.
func NewEmailService(logger *slog.Logger, mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.Notifier {
	return &emailService{logger: logger, mailer: mailer, renderer: renderer}
}

func (s *emailService) Notify(ctx context.Context, intent domain.NotificationIntent) error {
	switch intent.Kind {
	case domain.NotificationRegistrationConfirmed:
		return s.sendRegistrationConfirmed(ctx, intent)
	default:
		return fmt.Errorf("%w: unknown notification kind %q", domain.ErrInvalidInput, intent.Kind)
	}
}

// sendRegistrationConfirmed sends the confirmation email using the "registration_confirmed" template.
func (s *emailService) sendRegistrationConfirmed(ctx context.Context, intent domain.NotificationIntent) error {
	if intent.Email == "" {
		return fmt.Errorf("%w: no email address for user %s", domain.ErrInvalidInput, intent.UserID)
	}
	data := &domain.RegistrationConfirmedEmailData{
		Email:         intent.Email,
		Name:          intent.Name,
		EventTitle:    intent.EventTitle,
		EventLocation: intent.EventLocation,
		EventDate:     intent.EventStartsAt.Format("Monday, 2 January 2006"),
		EventTime:     intent.EventStartsAt.Format("15:04"),
	}
	subject, htmlBody, textBody, err := s.renderer.Render(string(domain.NotificationRegistrationConfirmed), data)
	if err != nil {
		return fmt.Errorf("%w: render registration_confirmed template: %w", domain.ErrInvalidInput, err)
	}
	if err := s.mailer.Send(ctx, data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send registration confirmation: %w", err)
	}
	s.logger.InfoContext(ctx, "registration confirmation sent",
		"registration_id", intent.RegistrationID, "to", data.Email)
	return nil
}
