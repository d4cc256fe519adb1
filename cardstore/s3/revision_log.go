package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/vcardio/cardstore"
)

// ErrConcurrentModification is returned when another writer committed
// the same revision number first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// Revision is one committed card revision.
type Revision struct {
	CardID      string
	Version     uint64
	ObjectKey   string
	CommittedAt time.Time
}

// RevisionLog records card revisions in DynamoDB. S3 by itself has no
// compare-and-swap, so the log provides the ordering guarantee:
// Commit claims the next revision number with a conditional write and
// fails when a concurrent writer got there first.
//
// Table schema:
//   - Partition key: card_id (string)
//   - Sort key: version (number), monotonically increasing
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name vcardio-revisions \
//	  --attribute-definitions AttributeName=card_id,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=card_id,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type RevisionLog struct {
	client    DDBClient
	tableName string
	now       func() time.Time
}

// NewRevisionLog creates a revision log backed by the given table.
func NewRevisionLog(client DDBClient, tableName string) *RevisionLog {
	return &RevisionLog{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

// Commit records objectKey as the next revision of cardID and returns
// the claimed revision number. Returns ErrConcurrentModification when
// a concurrent writer claimed it first; the caller should re-read and
// retry.
func (l *RevisionLog) Commit(ctx context.Context, cardID, objectKey string) (uint64, error) {
	latest, err := l.Latest(ctx, cardID)
	if err != nil && !errors.Is(err, cardstore.ErrNotFound) {
		return 0, err
	}

	var next uint64 = 1
	if latest != nil {
		next = latest.Version + 1
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"card_id":      &types.AttributeValueMemberS{Value: cardID},
			"version":      &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"object_key":   &types.AttributeValueMemberS{Value: objectKey},
			"committed_at": &types.AttributeValueMemberS{Value: l.now().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrConcurrentModification
		}
		return 0, fmt.Errorf("commit revision %d of %q: %w", next, cardID, err)
	}

	return next, nil
}

// Latest returns the newest committed revision of cardID, or
// cardstore.ErrNotFound when the card has none.
func (l *RevisionLog) Latest(ctx context.Context, cardID string) (*Revision, error) {
	revs, err := l.history(ctx, cardID, 1)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, fmt.Errorf("latest revision of %q: %w", cardID, cardstore.ErrNotFound)
	}
	return &revs[0], nil
}

// History returns up to limit revisions of cardID, newest first.
func (l *RevisionLog) History(ctx context.Context, cardID string, limit int32) ([]Revision, error) {
	return l.history(ctx, cardID, limit)
}

func (l *RevisionLog) history(ctx context.Context, cardID string, limit int32) ([]Revision, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		KeyConditionExpression: aws.String("card_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: cardID},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	resp, err := l.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query revisions of %q: %w", cardID, err)
	}

	revs := make([]Revision, 0, len(resp.Items))
	for _, item := range resp.Items {
		rev, err := revisionFromItem(cardID, item)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}

	return revs, nil
}

func revisionFromItem(cardID string, item map[string]types.AttributeValue) (Revision, error) {
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return Revision{}, errors.New("invalid version attribute")
	}
	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return Revision{}, fmt.Errorf("parse version: %w", err)
	}

	keyAttr, ok := item["object_key"].(*types.AttributeValueMemberS)
	if !ok {
		return Revision{}, errors.New("invalid object_key attribute")
	}

	rev := Revision{
		CardID:    cardID,
		Version:   version,
		ObjectKey: keyAttr.Value,
	}

	if tsAttr, ok := item["committed_at"].(*types.AttributeValueMemberS); ok {
		if ts, err := time.Parse(time.RFC3339Nano, tsAttr.Value); err == nil {
			rev.CommittedAt = ts
		}
	}

	return rev, nil
}
