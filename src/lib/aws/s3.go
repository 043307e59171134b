package aws

import (
	"bytes"
	"context"
	"errors"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const PresignExpiry = 3600 * time.Second

func GetS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(*cfg), nil
}

// S3UploadAsset stores body under key and returns a presigned GET URL.
func S3UploadAsset(ctx context.Context, bucket string, key string, body []byte, contentType string) (*string, error) {
	client, err := GetS3Client(ctx)
	if err != nil {
		return nil, err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Printf("Could not put object to S3 bucket: %s\n", err.Error())
		return nil, err
	}
	err = s3.NewObjectExistsWaiter(client).Wait(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, time.Minute)
	if err != nil {
		log.Printf("Failed attempt to wait for object %s to exist: %s\n", key, err.Error())
		return nil, err
	}
	log.Printf("Added object '%s' to bucket '%s'", key, bucket)
	return s3Presign(ctx, client, bucket, key)
}

// S3PresignAsset returns a presigned URL for an existing object, or nil when
// the object does not exist.
func S3PresignAsset(ctx context.Context, bucket string, key string) (*string, error) {
	client, err := GetS3Client(ctx)
	if err != nil {
		return nil, err
	}
	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return s3Presign(ctx, client, bucket, key)
}

func s3Presign(ctx context.Context, client *s3.Client, bucket string, key string) (*string, error) {
	pre := s3.NewPresignClient(client)
	r, err := pre.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = PresignExpiry
	})
	if err != nil {
		log.Printf("Could not generate presigned URL for object [%s]: %s\n", key, err.Error())
		return nil, err
	}
	return &r.URL, nil
}
