package dynamo

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/mridang-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTable keeps items keyed by "identifier|channel".
type fakeTable struct {
	items   map[string]map[string]types.AttributeValue
	deletes int
	failGet error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: map[string]map[string]types.AttributeValue{}}
}

func itemKey(item map[string]types.AttributeValue) string {
	id := item["identifier"].(*types.AttributeValueMemberS).Value
	ch := item["channel"].(*types.AttributeValueMemberS).Value
	return id + "|" + ch
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeTable) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	k := itemKey(in.Key)
	if err := f.check(k, in.ConditionExpression, in.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	f.deletes++
	delete(f.items, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

// UpdateItem supports the attempts increment only.
func (f *fakeTable) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	k := itemKey(in.Key)
	if err := f.check(k, in.ConditionExpression, in.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	item := f.items[k]
	n := 0
	if av, ok := item[attrAttempts].(*types.AttributeValueMemberN); ok {
		n, _ = strconv.Atoi(av.Value)
	}
	next := &types.AttributeValueMemberN{Value: strconv.Itoa(n + 1)}
	item[attrAttempts] = next
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{attrAttempts: next}}, nil
}

// check evaluates the ":code" and ":now" conditions the repo sends.
func (f *fakeTable) check(k string, cond *string, vals map[string]types.AttributeValue) error {
	if cond == nil {
		return nil
	}
	item, ok := f.items[k]
	if !ok {
		return &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	}
	failed := &types.ConditionalCheckFailedException{Message: aws.String("condition"), Item: item}
	if want, ok := vals[":code"].(*types.AttributeValueMemberS); ok {
		if got, _ := item[attrCode].(*types.AttributeValueMemberS); got == nil || got.Value != want.Value {
			return failed
		}
	}
	if now, ok := vals[":now"].(*types.AttributeValueMemberN); ok {
		exp, _ := item[attrExpiresAt].(*types.AttributeValueMemberN)
		e, _ := strconv.ParseInt(exp.Value, 10, 64)
		n, _ := strconv.ParseInt(now.Value, 10, 64)
		if e <= n {
			return failed
		}
	}
	return nil
}

func TestVerificationRepo_RoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tbl := newFakeTable()
	repo := NewVerificationRepo(tbl, "otp_verifications")
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	in := &domain.Verification{
		Identifier: "919876543210",
		Channel:    domain.ChannelSMS,
		Code:       "4321",
		ExpiresAt:  now.Add(10 * time.Minute),
		Attempts:   2,
	}
	require.NoError(t, repo.Put(ctx, in))

	ttl, ok := tbl.items["919876543210|sms"]["expires_at"].(*types.AttributeValueMemberN)
	require.True(t, ok, "expires_at must be stored as a unix number for DynamoDB TTL")
	assert.NotEmpty(t, ttl.Value)

	got, err := repo.Get(ctx, domain.ChannelSMS, "919876543210")
	require.NoError(t, err)
	assert.Equal(t, "4321", got.Code)
	assert.Equal(t, 2, got.Attempts)
	assert.True(t, in.ExpiresAt.Equal(got.ExpiresAt))
}

func TestVerificationRepo_GetMissing(t *testing.T) {
	repo := NewVerificationRepo(newFakeTable(), "otp_verifications")
	_, err := repo.Get(context.Background(), domain.ChannelEmail, "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerificationRepo_GetExpiredDeletes(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tbl := newFakeTable()
	repo := NewVerificationRepo(tbl, "otp_verifications")
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, &domain.Verification{
		Identifier: "a@b.com", Channel: domain.ChannelEmail, Code: "1234", ExpiresAt: now.Add(-time.Second),
	}))

	_, err := repo.Get(ctx, domain.ChannelEmail, "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, tbl.deletes)
	assert.Empty(t, tbl.items)
}

func TestVerificationRepo_GetError(t *testing.T) {
	tbl := newFakeTable()
	tbl.failGet = errors.New("throttled")
	repo := NewVerificationRepo(tbl, "otp_verifications")

	_, err := repo.Get(context.Background(), domain.ChannelEmail, "a@b.com")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
	assert.ErrorContains(t, err, "throttled")
}

func TestVerificationRepo_DeleteIfCode(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tbl := newFakeTable()
	repo := NewVerificationRepo(tbl, "otp_verifications")
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	err := repo.DeleteIfCode(ctx, domain.ChannelEmail, "a@b.com", "1234")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Put(ctx, &domain.Verification{
		Identifier: "a@b.com", Channel: domain.ChannelEmail, Code: "5678", ExpiresAt: now.Add(10 * time.Minute),
	}))
	err = repo.DeleteIfCode(ctx, domain.ChannelEmail, "a@b.com", "1234")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Len(t, tbl.items, 1)

	require.NoError(t, repo.DeleteIfCode(ctx, domain.ChannelEmail, "a@b.com", "5678"))
	assert.Empty(t, tbl.items)
}

func TestVerificationRepo_IncrementAttempts(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tbl := newFakeTable()
	repo := NewVerificationRepo(tbl, "otp_verifications")
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, &domain.Verification{
		Identifier: "a@b.com", Channel: domain.ChannelEmail, Code: "1234", ExpiresAt: now.Add(10 * time.Minute),
	}))

	n, err := repo.IncrementAttempts(ctx, domain.ChannelEmail, "a@b.com", "1234")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.IncrementAttempts(ctx, domain.ChannelEmail, "a@b.com", "1234")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.IncrementAttempts(ctx, domain.ChannelEmail, "a@b.com", "9999")
	assert.ErrorIs(t, err, domain.ErrConflict)

	now = now.Add(11 * time.Minute)
	_, err = repo.IncrementAttempts(ctx, domain.ChannelEmail, "a@b.com", "1234")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.IncrementAttempts(ctx, domain.ChannelSMS, "919876543210", "1234")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
