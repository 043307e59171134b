package aws

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// LoadConfig loads the default AWS config. When AWS_IAM_ROLE_ARN is set the
// returned config assumes that role.
func LoadConfig(ctx context.Context) (*aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("Could not load default config: %s\n", err.Error())
		return nil, err
	}
	iamRole := os.Getenv("AWS_IAM_ROLE_ARN")
	if iamRole == "" {
		return &cfg, nil
	}
	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), iamRole, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = "ticketbroker"
	})
	cfg.Credentials = aws.NewCredentialsCache(provider)
	return &cfg, nil
}
