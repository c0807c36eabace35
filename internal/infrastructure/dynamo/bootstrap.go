package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TableAPI is the subset of the DynamoDB client used to provision the table.
type TableAPI interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// EnsureVerificationsTable creates the verifications table if it is missing
// and turns on TTL for expires_at. An existing table is not an error; a TTL
// failure is only logged since Get checks expiry on its own.
func EnsureVerificationsTable(ctx context.Context, client TableAPI, table string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrIdentifier), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrChannel), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrIdentifier), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrChannel), KeyType: types.KeyTypeRange},
		},
	})
	var inUse *types.ResourceInUseException
	switch {
	case err == nil:
		slog.Info("created verifications table", "table", table)
	case errors.As(err, &inUse):
	default:
		return fmt.Errorf("create table %s: %w", table, err)
	}

	_, err = client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(table),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(attrExpiresAt),
		},
	})
	if err != nil {
		slog.Warn("could not enable TTL", "table", table, "err", err)
	}
	return nil
}
