package reply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Deduper reports whether a (provider_id, event_type) pair has already
// been processed, marking it seen atomically in the same call (spec.md
// §6: "reply ingestion is at-least-once; dedup on (provider_id,
// event_type) gives effectively-exactly-once writes").
type Deduper interface {
	SeenOrMark(ctx context.Context, eventType, providerID string) (alreadySeen bool, err error)
}

// DynamoDedup is the DynamoDB-backed Deduper, grounded on the same
// composite PK/SK item-per-fact shape the teacher's kanban store uses.
// Records carry a native DynamoDB TTL attribute so the table self-prunes
// instead of needing a sweep job.
type DynamoDedup struct {
	ddb       *dynamodb.Client
	tableName string
	ttl       time.Duration
}

// NewDynamoDedup constructs the dedup table client.
func NewDynamoDedup(ctx context.Context, tableName, region string, ttl time.Duration) (*DynamoDedup, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &DynamoDedup{ddb: dynamodb.NewFromConfig(cfg), tableName: tableName, ttl: ttl}, nil
}

type dedupItem struct {
	PK  string `dynamodbav:"PK"`
	SK  string `dynamodbav:"SK"`
	TTL int64  `dynamodbav:"ttl"`
}

// SeenOrMark satisfies Deduper. A conditional PutItem that fails on
// attribute_not_exists means another concurrent delivery already won the
// race to mark this event seen — that also counts as already-seen.
func (d *DynamoDedup) SeenOrMark(ctx context.Context, eventType, providerID string) (bool, error) {
	pk := "REPLYDEDUP#" + eventType
	sk := providerID

	out, err := d.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: pk},
			"SK": &ddbtypes.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return false, fmt.Errorf("dedup get: %w", err)
	}
	if out.Item != nil {
		return true, nil
	}

	item := dedupItem{PK: pk, SK: sk, TTL: time.Now().Add(d.ttl).Unix()}
	av := map[string]ddbtypes.AttributeValue{
		"PK":  &ddbtypes.AttributeValueMemberS{Value: item.PK},
		"SK":  &ddbtypes.AttributeValueMemberS{Value: item.SK},
		"ttl": &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", item.TTL)},
	}

	_, err = d.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var condFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return true, nil
		}
		return false, fmt.Errorf("dedup put: %w", err)
	}
	return false, nil
}
