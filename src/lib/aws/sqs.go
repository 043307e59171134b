package aws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func GetSQSClient(ctx context.Context) (*sqs.Client, error) {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(*cfg), nil
}

func SQSProduceMessage(ctx context.Context, queue string, body string) error {
	client, err := GetSQSClient(ctx)
	if err != nil {
		return err
	}
	qurl, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queue),
	})
	if err != nil {
		log.Printf("Failed to retrieve queue URL for %s: %s\n", queue, err.Error())
		return err
	}
	out, err := client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    qurl.QueueUrl,
		MessageBody: aws.String(body),
	})
	if err != nil {
		log.Printf("[SQS] Error sending message to %s: %s\n", queue, err.Error())
		return err
	}
	log.Printf("[SQS] Queued message %s on %s\n", *out.MessageId, queue)
	return nil
}
