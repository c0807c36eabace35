package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTableAdmin struct {
	createErr error
	ttlErr    error
	created   *dynamodb.CreateTableInput
	ttl       *dynamodb.UpdateTimeToLiveInput
}

func (f *fakeTableAdmin) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.created = in
	return &dynamodb.CreateTableOutput{}, f.createErr
}

func (f *fakeTableAdmin) UpdateTimeToLive(_ context.Context, in *dynamodb.UpdateTimeToLiveInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error) {
	f.ttl = in
	return &dynamodb.UpdateTimeToLiveOutput{}, f.ttlErr
}

func TestEnsureVerificationsTable_CreatesWithTTL(t *testing.T) {
	admin := &fakeTableAdmin{}
	require.NoError(t, EnsureVerificationsTable(context.Background(), admin, "otp_verifications"))

	require.NotNil(t, admin.created)
	assert.Equal(t, "otp_verifications", aws.ToString(admin.created.TableName))
	require.Len(t, admin.created.KeySchema, 2)
	assert.Equal(t, attrIdentifier, aws.ToString(admin.created.KeySchema[0].AttributeName))
	assert.Equal(t, types.KeyTypeHash, admin.created.KeySchema[0].KeyType)
	assert.Equal(t, attrChannel, aws.ToString(admin.created.KeySchema[1].AttributeName))

	require.NotNil(t, admin.ttl)
	assert.Equal(t, attrExpiresAt, aws.ToString(admin.ttl.TimeToLiveSpecification.AttributeName))
	assert.True(t, aws.ToBool(admin.ttl.TimeToLiveSpecification.Enabled))
}

func TestEnsureVerificationsTable_ExistingTableIsFine(t *testing.T) {
	admin := &fakeTableAdmin{createErr: &types.ResourceInUseException{Message: aws.String("exists")}}
	require.NoError(t, EnsureVerificationsTable(context.Background(), admin, "otp_verifications"))
	assert.NotNil(t, admin.ttl)
}

func TestEnsureVerificationsTable_CreateFailure(t *testing.T) {
	admin := &fakeTableAdmin{createErr: errors.New("access denied")}
	err := EnsureVerificationsTable(context.Background(), admin, "otp_verifications")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Nil(t, admin.ttl)
}

func TestEnsureVerificationsTable_TTLFailureOnlyLogged(t *testing.T) {
	admin := &fakeTableAdmin{ttlErr: errors.New("ttl unsupported")}
	assert.NoError(t, EnsureVerificationsTable(context.Background(), admin, "otp_verifications"))
}
