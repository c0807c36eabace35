// Package awsconf loads the shared AWS configuration used by the DynamoDB
// store and the SNS SMS provider.
package awsconf

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/mridang-api/internal/config"
)

// Load resolves AWS settings for region. Static credentials are used when
// AWS_ACCESS_KEY_ID is set, otherwise the default chain applies.
func Load(ctx context.Context, cfg *config.Config, region string) (aws.Config, error) {
	if region == "" {
		region = cfg.AWSRegion
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}

// Endpoint returns the LocalStack override, or nil to use the AWS default.
func Endpoint(cfg *config.Config) *string {
	if cfg.AWSEndpointURL == "" {
		return nil
	}
	return aws.String(cfg.AWSEndpointURL)
}
