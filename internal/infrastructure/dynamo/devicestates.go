package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/farm-telemetry/internal/domain"
)

// itemAPI is the subset of *dynamodb.Client the device-state repo uses.
type itemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DeviceStateRepo provides typed DynamoDB operations for the device-state table.
type DeviceStateRepo struct {
	client    itemAPI
	tableName string
}

func NewDeviceStateRepo(client itemAPI, tableName string) *DeviceStateRepo {
	return &DeviceStateRepo{client: client, tableName: tableName}
}

// Upsert overwrites whatever is stored under (group_id, device_id).
func (r *DeviceStateRepo) Upsert(ctx context.Context, s *domain.DeviceState) error {
	if s.DeviceID == "" || s.GroupID == "" {
		return fmt.Errorf("device state requires device_id and group_id: %w", domain.ErrBadRequest)
	}
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal device state: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put device state %s/%s: %w: %v", s.GroupID, s.DeviceID, domain.ErrUnavailable, err)
	}
	return nil
}

// Get reads one device. The partition key must be known up front.
func (r *DeviceStateRepo) Get(ctx context.Context, groupID, deviceID string) (*domain.DeviceState, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey(fieldGroupID, groupID, fieldDeviceID, deviceID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get device state %s/%s: %w: %v", groupID, deviceID, domain.ErrUnavailable, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("device %s not found: %w", deviceID, domain.ErrNotFound)
	}
	var s domain.DeviceState
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, fmt.Errorf("unmarshal device state: %w", err)
	}
	return &s, nil
}

// ListByGroup returns every device in a group. A failure on any page fails
// the whole call; partial results are never returned.
func (r *DeviceStateRepo) ListByGroup(ctx context.Context, groupID string) ([]domain.DeviceState, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("#g = :g"),
		ExpressionAttributeNames: map[string]string{
			"#g": fieldGroupID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":g": &types.AttributeValueMemberS{Value: groupID},
		},
	})
	states := []domain.DeviceState{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query group %s: %w: %v", groupID, domain.ErrUnavailable, err)
		}
		var batch []domain.DeviceState
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal group %s: %w", groupID, err)
		}
		states = append(states, batch...)
	}
	return states, nil
}
