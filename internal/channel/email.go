package channel

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/keiracom/agencyos/internal/config"
	"github.com/keiracom/agencyos/internal/dispatch"
)

// EmailAdapter sends outreach email through AWS SES v2, threading
// follow-ups via the In-Reply-To/References headers when inReplyTo is
// set (spec.md §4.7: "For email follow-ups, the adapter is passed
// in_reply_to = previous provider_message_id").
type EmailAdapter struct {
	client   *sesv2.Client
	fromName string
	fromAddr string
}

// NewEmailAdapter builds an EmailAdapter from static SES credentials,
// mirroring the teacher's SESSender construction.
func NewEmailAdapter(ctx context.Context, cfg config.SESConfig, fromName, fromAddr string) (*EmailAdapter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &EmailAdapter{
		client:   sesv2.NewFromConfig(awsCfg),
		fromName: fromName,
		fromAddr: fromAddr,
	}, nil
}

// Send implements dispatch.ChannelAdapter. content is treated as the
// email body; the subject line is expected to be the content's first
// line, matching the teacher's convention of rendering subject and body
// from the same template.
func (a *EmailAdapter) Send(ctx context.Context, to, content, inReplyTo string) (dispatch.SendResult, error) {
	subject, body := splitSubjectBody(content)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", a.fromName, a.fromAddr)),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if inReplyTo != "" {
		input.Content.Simple.Headers = []types.MessageHeader{
			{Name: aws.String("In-Reply-To"), Value: aws.String(inReplyTo)},
			{Name: aws.String("References"), Value: aws.String(inReplyTo)},
		}
	}

	out, err := a.client.SendEmail(ctx, input)
	if err != nil {
		return dispatch.SendResult{}, fmt.Errorf("ses send: %w", err)
	}
	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	return dispatch.SendResult{ProviderMessageID: messageID, DeliverabilityHint: "accepted"}, nil
}

func splitSubjectBody(content string) (string, string) {
	for i, r := range content {
		if r == '\n' {
			return content[:i], content[i+1:]
		}
	}
	return content, content
}
