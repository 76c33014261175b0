package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI is the subset of the SES v2 client used by SES
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES sends notifications through Amazon SES
type SES struct {
	client SESAPI
}

// NewSES creates an SES notifier
func NewSES(client SESAPI) *SES {
	return &SES{client: client}
}

// NewSESFromConfig creates an SES notifier from an AWS config
func NewSESFromConfig(cfg aws.Config) *SES {
	return NewSES(sesv2.NewFromConfig(cfg))
}

// Send sends the message as a simple HTML + text email
func (s *SES) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	text, err := PlainText(msg.HTML)
	if err != nil {
		return err
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sending ses email: %w", err)
	}

	slog.Info("Email notification sent", "to", msg.To, "message_id", aws.ToString(out.MessageId))
	return nil
}
