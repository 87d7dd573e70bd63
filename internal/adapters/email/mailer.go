package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"

	"schoolevents/internal/domain"
)

const (
	ProviderSES  = "ses"
	ProviderNoop = "noop"
)

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	InsecureSkipVerify bool
	// Endpoint overrides the SES endpoint (local emulators, tests).
	Endpoint string
}

// MailerConfig selects and configures the outgoing mail provider.
type MailerConfig struct {
	Provider    string
	FromAddress string
	FromName    string
	SES         SESConfig
}

// SES error codes that will fail again no matter how often they are retried.
var permanentSESCodes = map[string]bool{
	"MessageRejected":                    true,
	"MailFromDomainNotVerifiedException": true,
	"ConfigurationSetDoesNotExist":       true,
	"InvalidParameterValue":              true,
}

// NewMailer returns the mailer for config.Provider. Unknown providers fall back
// to noop so a misconfigured dev box still serves registrations.
func NewMailer(logger *slog.Logger, config MailerConfig) (domain.Mailer, error) {
	switch config.Provider {
	case ProviderSES:
		return newSESMailer(logger, config)
	case ProviderNoop:
	default:
		logger.Warn("unknown email provider, using noop", "provider", config.Provider)
	}
	return &noopMailer{logger: logger}, nil
}

type sesMailer struct {
	logger *slog.Logger
	client *ses.Client
	source string
}

func newSESMailer(logger *slog.Logger, config MailerConfig) (*sesMailer, error) {
	c := config.SES
	if c.Region == "" {
		return nil, errors.New("ses mailer: region is required")
	}
	if config.FromAddress == "" {
		return nil, errors.New("ses mailer: from address is required")
	}
	from := mail.Address{Name: config.FromName, Address: config.FromAddress}
	source := from.Address
	if from.Name != "" {
		source = fmt.Sprintf("%s <%s>", from.Name, from.Address)
	}

	if c.InsecureSkipVerify {
		logger.Warn("TLS certificate verification is disabled for SES, use only in development")
	}
	awsCfg := aws.Config{
		Region: c.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		),
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: c.InsecureSkipVerify,
					MinVersion:         tls.VersionTLS12,
				},
			},
		},
	}
	client := ses.NewFromConfig(awsCfg, func(o *ses.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	})
	return &sesMailer{logger: logger, client: client, source: source}, nil
}

func utf8Content(s string) *types.Content {
	if s == "" {
		return nil
	}
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

// Send delivers one message. Rejections SES will never accept are wrapped in
// domain.ErrInvalidInput so the dispatcher does not retry them.
func (s *sesMailer) Send(ctx context.Context, to, subject, html, text string) error {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(s.source),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: utf8Content(subject),
			Body:    &types.Body{Html: utf8Content(html), Text: utf8Content(text)},
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && permanentSESCodes[apiErr.ErrorCode()] {
			return fmt.Errorf("%w: ses rejected message: %w", domain.ErrInvalidInput, err)
		}
		return fmt.Errorf("send email via SES: %w", err)
	}
	s.logger.InfoContext(ctx, "email sent via SES", "message_id", aws.ToString(out.MessageId))
	return nil
}

type noopMailer struct {
	logger *slog.Logger
}

func (n *noopMailer) Send(ctx context.Context, to, subject, _, _ string) error {
	n.logger.InfoContext(ctx, "email not sent, noop mailer", "to", to, "subject", subject)
	return nil
}
