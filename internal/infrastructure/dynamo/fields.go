package dynamo

// DynamoDB attribute names used in key conditions and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldGroupID       = "group_id"
	fieldDeviceID      = "device_id"
	fieldLegacyID      = "id"
	fieldMigratedAt    = "migrated_at"
	fieldMigratedToGrp = "migrated_to_group"
)
