package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/farm-telemetry/internal/config"
)

// tableCreator is the subset of *dynamodb.Client Bootstrap uses.
type tableCreator interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Bootstrap creates the device-state table if it doesn't already exist.
// Safe to call on every startup; existing tables are left alone.
//
// Items are partitioned by group_id and sorted by device_id. The table streams
// NEW_IMAGE records, which drive the change propagator. When a legacy table
// name is configured, the device-keyed legacy table is created too so the
// migration can run against a local endpoint.
func Bootstrap(ctx context.Context, client tableCreator, tables config.DynamoTables) {
	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.DeviceState),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(fieldGroupID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(fieldDeviceID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldGroupID), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(fieldDeviceID), KeyType: types.KeyTypeRange},
		},
		StreamSpecification: &types.StreamSpecification{
			StreamEnabled:  aws.Bool(true),
			StreamViewType: types.StreamViewTypeNewImage,
		},
	})

	if tables.LegacyDeviceState == "" {
		return
	}
	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.LegacyDeviceState),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(fieldLegacyID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldLegacyID), KeyType: types.KeyTypeHash},
		},
	})
}

func createTable(ctx context.Context, client tableCreator, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			slog.Warn("could not create table", "table", *input.TableName, "err", err)
		}
	} else {
		slog.Info("created table", "table", *input.TableName)
	}
}
