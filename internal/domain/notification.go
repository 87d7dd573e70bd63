package domain

import (
	"context"
	"time"
)

// NotificationKind identifies the message to deliver.
type NotificationKind string

const NotificationRegistrationConfirmed NotificationKind = "registration_confirmed"

// NotificationIntent is a snapshot taken at enqueue time. It carries everything
// needed for delivery so the dispatcher never reads registration state.
type NotificationIntent struct {
	Kind           NotificationKind
	UserID         string
	EventID        string
	RegistrationID string
	Email          string
	Name           string
	EventTitle     string
	EventLocation  string
	EventStartsAt  time.Time
	CreatedAt      time.Time
}

// NotificationQueue accepts intents without blocking. It returns false when the intent was dropped.
type NotificationQueue interface {
	Enqueue(intent NotificationIntent) bool
}

// Notifier delivers a single intent.
type Notifier interface {
	Notify(ctx context.Context, intent NotificationIntent) error
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// RegistrationConfirmedEmailData holds data for the registration confirmation email.
type RegistrationConfirmedEmailData struct {
	Email         string
	Name          string
	EventTitle    string
	EventLocation string
	EventDate     string
	EventTime     string
}
