package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/farm-telemetry/internal/config"
	"github.com/farm-telemetry/internal/domain"
)

// groupNameAttribute lets topic subscriptions filter on the destination group.
const groupNameAttribute = "groupName"

type publishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher fans change notifications out through an SNS topic.
type Publisher struct {
	client   publishAPI
	topicARN string
}

// NewPublisher builds an SNS client for cfg.SNSRegion, honouring the same
// endpoint override and retry cap as the DynamoDB client.
func NewPublisher(ctx context.Context, cfg *config.Config) (*Publisher, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SNSRegion),
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
	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return newPublisher(sns.NewFromConfig(awsCfg, clientOpts...), cfg.SNSTopicARN), nil
}

func newPublisher(client publishAPI, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

// Publish sends the full notification, groupName included, as the message body.
func (p *Publisher) Publish(ctx context.Context, n domain.ChangeNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			groupNameAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.GroupName),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w: %v", n.GroupName, domain.ErrUnavailable, err)
	}
	return nil
}
