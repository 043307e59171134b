package aws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

func GetSESClient(ctx context.Context) (*ses.Client, error) {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return ses.NewFromConfig(*cfg), nil
}

// SESSendRawMessage sends a complete MIME message, attachments included.
func SESSendRawMessage(ctx context.Context, from string, to []string, raw []byte) (*string, error) {
	c, err := GetSESClient(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(from),
		Destinations: to,
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		log.Printf("Error sending email: %s\n", err.Error())
		return nil, err
	}
	log.Printf("Sent email with id: %s\n", *out.MessageId)
	return out.MessageId, nil
}
