package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-otp-auth/internal/domain"
)

// VerificationRepo holds one OTP record per email and flow.
// PK: email, SK: purpose ("signup" | "recovery")
// expires_at is the table TTL attribute.
type VerificationRepo struct {
	client    API
	tableName string
}

func NewVerificationRepo(client API, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

func (r *VerificationRepo) key(purpose domain.Purpose, email string) map[string]types.AttributeValue {
	return compositeKey(fieldEmail, email, fieldPurpose, string(purpose))
}

// Put replaces the record for the key in a single write.
func (r *VerificationRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(rec)
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

func (r *VerificationRepo) Get(ctx context.Context, purpose domain.Purpose, email string) (*domain.OTPRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.key(purpose, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	if out.Item == nil {
		return nil, domain.ErrOTPNotIssued
	}
	return unmarshalRecord(out.Item)
}

func (r *VerificationRepo) MarkVerified(ctx context.Context, purpose domain.Purpose, email, nonce string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 r.key(purpose, email),
		UpdateExpression:    aws.String("SET #v = :t"),
		ConditionExpression: aws.String("#n = :n"),
		ExpressionAttributeNames: map[string]string{
			"#v": fieldVerified,
			"#n": fieldNonce,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":n": &types.AttributeValueMemberS{Value: nonce},
		},
	})
	if _, ok := conditionFailed(err); ok {
		return domain.ErrOTPNotIssued
	}
	if err != nil {
		return fmt.Errorf("mark verification: %w", err)
	}
	return nil
}

// Consume deletes the record only if it carries nonce and is verified. On a
// failed condition the old item tells the two reasons apart.
func (r *VerificationRepo) Consume(ctx context.Context, purpose domain.Purpose, email, nonce string) (*domain.OTPRecord, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 r.key(purpose, email),
		ConditionExpression: aws.String("#n = :n AND #v = :t"),
		ExpressionAttributeNames: map[string]string{
			"#n": fieldNonce,
			"#v": fieldVerified,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberS{Value: nonce},
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
		ReturnValues:                        types.ReturnValueAllOld,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if old, ok := conditionFailed(err); ok {
		if old != nil {
			if rec, uerr := unmarshalRecord(old); uerr == nil && rec.Nonce == nonce {
				return nil, domain.ErrNotVerified
			}
		}
		return nil, domain.ErrOTPNotIssued
	}
	if err != nil {
		return nil, fmt.Errorf("consume verification: %w", err)
	}
	return unmarshalRecord(out.Attributes)
}

// Delete removes the record only while it still carries nonce.
func (r *VerificationRepo) Delete(ctx context.Context, purpose domain.Purpose, email, nonce string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      r.key(purpose, email),
		ConditionExpression:      aws.String("#n = :n"),
		ExpressionAttributeNames: map[string]string{"#n": fieldNonce},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberS{Value: nonce},
		},
	})
	if _, ok := conditionFailed(err); ok {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	return nil
}

func unmarshalRecord(item map[string]types.AttributeValue) (*domain.OTPRecord, error) {
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal verification: %w", err)
	}
	return &rec, nil
}
