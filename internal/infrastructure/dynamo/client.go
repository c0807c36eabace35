package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/mridang-api/internal/config"
	"github.com/mridang-api/internal/infrastructure/awsconf"
)

// NewClient creates the DynamoDB client for the verification store.
// AWS_ENDPOINT_URL points it at LocalStack in development.
func NewClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	endpoint := awsconf.Endpoint(cfg)
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	}), nil
}
