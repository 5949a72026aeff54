package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/farm-telemetry/internal/config"
	"github.com/farm-telemetry/internal/domain"
)

// NewClient creates a DynamoDB client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint so all traffic goes to the local instance.
// SDK retries are capped at cfg.AWSMaxAttempts; redelivery belongs to the trigger runtime.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSMaxAttempts > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(cfg.AWSMaxAttempts))
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %v: %w", err, domain.ErrMisconfigured)
	}

	clientOpts := []func(*dynamodb.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}

	return dynamodb.NewFromConfig(awsCfg, clientOpts...), nil
}
