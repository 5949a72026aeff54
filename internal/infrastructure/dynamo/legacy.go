package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/farm-telemetry/internal/domain"
)

// LegacyDeviceState is one item of the device-keyed table that predates
// group partitioning. Coordinates were already sign-corrected on write.
type LegacyDeviceState struct {
	ID                 string           `dynamodbav:"id"`
	FarmID             string           `dynamodbav:"farmID,omitempty"`
	Timestamp          string           `dynamodbav:"timestamp"`
	ConnectionDeviceID string           `dynamodbav:"connectionDeviceId,omitempty"`
	Location           *domain.Location `dynamodbav:"location,omitempty"`
	BatteryLevel       *float64         `dynamodbav:"battery_level,omitempty"`
	RSRP               *float64         `dynamodbav:"rsrp,omitempty"`
	CSQ                *float64         `dynamodbav:"csq,omitempty"`
	Bands              []string         `dynamodbav:"bands,omitempty"`
	WakeupReason       *string          `dynamodbav:"wakeup_reason,omitempty"`
	GNSSSatnum         *int             `dynamodbav:"gnss_satnum,omitempty"`
	AppVersion         *string          `dynamodbav:"app_version,omitempty"`
	IDESim             *string          `dynamodbav:"idESim,omitempty"`
	MigratedToGroup    string           `dynamodbav:"migrated_to_group,omitempty"`
}

// ToDeviceState converts the legacy item into the group-partitioned shape.
func (l *LegacyDeviceState) ToDeviceState(groupID string, now time.Time) (*domain.DeviceState, error) {
	observed, err := time.Parse(time.RFC3339Nano, l.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("legacy item %s timestamp %q: %w", l.ID, l.Timestamp, domain.ErrMalformedInput)
	}
	s := &domain.DeviceState{
		DeviceID:           l.ID,
		GroupID:            groupID,
		ObservedAt:         observed.UTC(),
		ConnectionDeviceID: l.ConnectionDeviceID,
		BatteryLevel:       l.BatteryLevel,
		SignalQuality:      l.CSQ,
		UpdatedAt:          now,
	}
	if !l.Location.IsEmpty() {
		s.Location = l.Location
	}
	extra := &domain.Extra{
		Bands:           l.Bands,
		WakeReason:      l.WakeupReason,
		SatelliteCount:  l.GNSSSatnum,
		FirmwareVersion: l.AppVersion,
		SIMID:           l.IDESim,
		RSRP:            l.RSRP,
	}
	if !extra.IsEmpty() {
		s.Extra = extra
	}
	return s, nil
}

// legacyAPI is the subset of *dynamodb.Client the legacy repo uses.
type legacyAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// LegacyDeviceStateRepo reads the device-keyed table during migration.
type LegacyDeviceStateRepo struct {
	client    legacyAPI
	tableName string
}

func NewLegacyDeviceStateRepo(client legacyAPI, tableName string) *LegacyDeviceStateRepo {
	return &LegacyDeviceStateRepo{client: client, tableName: tableName}
}

// ScanPages walks the legacy table page by page. Items that fail to decode are
// reported through onBadItem and skipped; fn errors stop the scan.
func (r *LegacyDeviceStateRepo) ScanPages(ctx context.Context, fn func([]LegacyDeviceState) error, onBadItem func(id string, err error)) error {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("attribute_not_exists(#m)"),
		ExpressionAttributeNames: map[string]string{
			"#m": fieldMigratedToGrp,
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("scan legacy table: %w: %v", domain.ErrUnavailable, err)
		}
		items := make([]LegacyDeviceState, 0, len(page.Items))
		for _, raw := range page.Items {
			var l LegacyDeviceState
			if err := attributevalue.UnmarshalMap(raw, &l); err != nil {
				onBadItem(legacyID(raw), err)
				continue
			}
			items = append(items, l)
		}
		if err := fn(items); err != nil {
			return err
		}
	}
	return nil
}

// MarkMigrated records the group a legacy item was copied into.
func (r *LegacyDeviceStateRepo) MarkMigrated(ctx context.Context, id, groupID string, at time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldMigratedToGrp: groupID,
		fieldMigratedAt:    at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldLegacyID, id),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return fmt.Errorf("mark legacy item %s migrated: %w: %v", id, domain.ErrUnavailable, err)
	}
	return nil
}

func legacyID(item map[string]types.AttributeValue) string {
	if s, ok := item[fieldLegacyID].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
