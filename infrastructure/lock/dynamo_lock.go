// Package lock provides cross-process leases used to serialise namespace
// rebuilds.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"neuronote/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DynamoDBAPI is the subset of the DynamoDB client the lock uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// record is the stored lock item. TTL lets DynamoDB reap abandoned locks.
type record struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	LeaseID   string `dynamodbav:"LeaseID"`
	Owner     string `dynamodbav:"Owner"`
	ExpiresAt int64  `dynamodbav:"ExpiresAt"`
	TTL       int64  `dynamodbav:"TTL"`
}

// DynamoLocker grants leases with conditional writes: a put succeeds only
// when no unexpired lease exists for the resource.
type DynamoLocker struct {
	client    DynamoDBAPI
	tableName string
	owner     string
	logger    *zap.Logger
	now       func() time.Time
}

func NewDynamoLocker(client DynamoDBAPI, tableName, owner string, logger *zap.Logger) *DynamoLocker {
	return &DynamoLocker{client: client, tableName: tableName, owner: owner, logger: logger, now: time.Now}
}

func key(resource string) string {
	return "LOCK#" + resource
}

// Acquire takes the lease or returns ports.ErrLockHeld.
func (l *DynamoLocker) Acquire(ctx context.Context, resource string, ttl time.Duration) (ports.Lease, error) {
	now := l.now()
	expires := now.Add(ttl)
	rec := record{
		PK:        key(resource),
		SK:        "LOCK",
		LeaseID:   uuid.NewString(),
		Owner:     l.owner,
		ExpiresAt: expires.UnixMilli(),
		TTL:       expires.Unix(),
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.UnixMilli())},
		},
	})
	if err != nil {
		var conditional *types.ConditionalCheckFailedException
		if errors.As(err, &conditional) {
			l.logger.Debug("Lock already held", zap.String("resource", resource))
			return nil, ports.ErrLockHeld
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.logger.Debug("Lock acquired",
		zap.String("resource", resource),
		zap.String("lease_id", rec.LeaseID),
		zap.Duration("ttl", ttl),
	)
	return &lease{locker: l, resource: resource, leaseID: rec.LeaseID}, nil
}

type lease struct {
	locker   *DynamoLocker
	resource string
	leaseID  string
}

// Release deletes the item only if it still carries this lease.
func (le *lease) Release(ctx context.Context) error {
	_, err := le.locker.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(le.locker.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key(le.resource)},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LeaseID = :lease"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lease": &types.AttributeValueMemberS{Value: le.leaseID},
		},
	})
	if err != nil {
		var conditional *types.ConditionalCheckFailedException
		if errors.As(err, &conditional) {
			// expired and taken over; nothing of ours to delete
			le.locker.logger.Warn("Lease lost before release", zap.String("resource", le.resource))
			return nil
		}
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
