package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/mridang-api/internal/domain"
)

// ItemAPI is the subset of the DynamoDB client the verification repo needs.
type ItemAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// VerificationRepo stores pending codes in DynamoDB.
// PK: identifier, SK: channel ("email" | "sms").
// DynamoDB deletes expired items lazily, so Get re-checks expires_at itself.
type VerificationRepo struct {
	client    ItemAPI
	tableName string
	now       func() time.Time
}

func NewVerificationRepo(client ItemAPI, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *VerificationRepo) Put(ctx context.Context, v *domain.Verification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put verification: %w", err)
	}
	return nil
}

func (r *VerificationRepo) Get(ctx context.Context, channel domain.Channel, identifier string) (*domain.Verification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            verificationKey(channel, identifier),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var v domain.Verification
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, fmt.Errorf("unmarshal verification: %w", err)
	}
	if v.Expired(r.now()) {
		if err := r.Delete(ctx, channel, identifier); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	return &v, nil
}

func (r *VerificationRepo) Delete(ctx context.Context, channel domain.Channel, identifier string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       verificationKey(channel, identifier),
	})
	if err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	return nil
}

// DeleteIfCode deletes the record only while it still holds code.
func (r *VerificationRepo) DeleteIfCode(ctx context.Context, channel domain.Channel, identifier, code string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      verificationKey(channel, identifier),
		ConditionExpression:      aws.String("#code = :code"),
		ExpressionAttributeNames: map[string]string{"#code": attrCode},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":code": &types.AttributeValueMemberS{Value: code},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		return r.conditionErr("delete verification", err)
	}
	return nil
}

// IncrementAttempts adds one failed attempt to the live record holding code
// and returns the new count.
func (r *VerificationRepo) IncrementAttempts(ctx context.Context, channel domain.Channel, identifier, code string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 verificationKey(channel, identifier),
		UpdateExpression:    aws.String("SET #attempts = if_not_exists(#attempts, :zero) + :one"),
		ConditionExpression: aws.String("#code = :code AND #exp > :now"),
		ExpressionAttributeNames: map[string]string{
			"#attempts": attrAttempts,
			"#code":     attrCode,
			"#exp":      attrExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":code": &types.AttributeValueMemberS{Value: code},
			":now":  &types.AttributeValueMemberN{Value: strconv.FormatInt(r.now().Unix(), 10)},
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":one":  &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues:                        types.ReturnValueUpdatedNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		return 0, r.conditionErr("increment attempts", err)
	}
	var attempts int
	if err := attributevalue.Unmarshal(out.Attributes[attrAttempts], &attempts); err != nil {
		return 0, fmt.Errorf("unmarshal attempts: %w", err)
	}
	return attempts, nil
}

// conditionErr maps a failed condition to domain.ErrNotFound when the item is
// gone or expired and to domain.ErrConflict when it holds another code.
func (r *VerificationRepo) conditionErr(op string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(ccf.Item) == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var old domain.Verification
	if err := attributevalue.UnmarshalMap(ccf.Item, &old); err == nil && old.Expired(r.now()) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, domain.ErrConflict)
}
