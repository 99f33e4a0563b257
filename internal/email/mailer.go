// Package email renders and delivers outbound mail: news digests, welcome
// notes, and preference confirmations.
package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a message. Implementations must be safe for concurrent
// use; the digest sweep sends from several goroutines.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SESMailer sends through Amazon SES.
type SESMailer struct {
	client *sesv2.Client
	sender string
	log    zerolog.Logger
}

// NewSESMailer builds a mailer using the ambient AWS credential chain.
func NewSESMailer(ctx context.Context, sender string, log zerolog.Logger) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{client: sesv2.NewFromConfig(cfg), sender: sender, log: log}, nil
}

// Send delivers one email via SES.
func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML)},
					Text: &types.Content{Data: aws.String(msg.Text)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", msg.To, err)
	}
	m.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// NopMailer drops mail. Used in tests and when no sender is configured.
type NopMailer struct{}

func (NopMailer) Send(context.Context, Message) error { return nil }
