// ABOUTME: Amazon SES v2 sender
// ABOUTME: Sends multipart text and HTML messages through SendEmail
package delivery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI is the subset of the SES v2 client used for sending.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESSender struct {
	client SESAPI
}

// NewSES wraps an SES client.
func NewSES(client SESAPI) *SESSender {
	return &SESSender{client: client}
}

// NewSESFromEnv builds an SES client from the default AWS credential chain.
func NewSESFromEnv(ctx context.Context, region string) (*SESSender, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSES(sesv2.NewFromConfig(cfg)), nil
}

func (s *SESSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := validate(msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(HTMLBody(msg.Body)), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: ses: %w", ErrDelivery, err)
	}
	return aws.ToString(out.MessageId), nil
}
