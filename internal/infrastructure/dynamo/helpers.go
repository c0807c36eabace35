package dynamo

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/mridang-api/internal/domain"
)

// Attribute names of the verifications table. They match the dynamodbav
// tags on domain.Verification.
const (
	attrIdentifier = "identifier"
	attrChannel    = "channel"
	attrCode       = "code"
	attrExpiresAt  = "expires_at"
	attrAttempts   = "attempts"
)

// verificationKey is the primary key of the record for (channel, identifier).
func verificationKey(channel domain.Channel, identifier string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrIdentifier: &types.AttributeValueMemberS{Value: identifier},
		attrChannel:    &types.AttributeValueMemberS{Value: string(channel)},
	}
}
