package database

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/burakmert236/goodswipe-rewards/common/logger"
	"github.com/burakmert236/goodswipe-rewards/common/metrics"
	"github.com/burakmert236/goodswipe-rewards/common/retry"
)

// MaxBatchSize is the number of write requests DynamoDB accepts per BatchWriteItem call.
const MaxBatchSize = 25

// SortCondition restricts the index sort key by equality or, with Prefix set, begins_with.
type SortCondition struct {
	Value  string
	Prefix bool
}

func SortEquals(value string) *SortCondition {
	return &SortCondition{Value: value}
}

func SortBeginsWith(prefix string) *SortCondition {
	return &SortCondition{Value: prefix, Prefix: true}
}

// Query addresses one secondary index (1-based). Limit caps the total number
// of items yielded across pages; zero means unlimited.
type Query struct {
	Index   int
	Hash    string
	Sort    *SortCondition
	Limit   int
	Reverse bool
}

type Store struct {
	client    DynamoAPI
	table     string
	batchSize int
	retry     retry.Config
	logger    *logger.Logger
	metrics   *metrics.Manager
}

type StoreOption func(*Store)

func WithLogger(l *logger.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

func WithMetrics(m *metrics.Manager) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

func WithBatchSize(size int) StoreOption {
	return func(s *Store) {
		if size > 0 && size <= MaxBatchSize {
			s.batchSize = size
		}
	}
}

func WithRetry(cfg retry.Config) StoreOption {
	return func(s *Store) {
		s.retry = cfg
	}
}

func NewStore(db *DynamoDBClient, opts ...StoreOption) *Store {
	s := &Store{
		client:    db.Client,
		table:     db.TableName,
		batchSize: MaxBatchSize,
		retry:     retry.DefaultConfig(),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Table() string {
	return s.table
}

// Get returns nil without error when no item exists under key.
func (s *Store) Get(ctx context.Context, key Item) (Item, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key,
	})
	s.metrics.RecordStoreCall("GetItem", err)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

func (s *Store) Put(ctx context.Context, item Item) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	s.metrics.RecordStoreCall("PutItem", err)
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	s.logger.Debug("Item stored", "type", attrString(item, AttrType), "key", attrString(item, AttrPrimaryHash))
	return nil
}

// PutIfAbsent writes put's item only when its condition holds. A failed
// condition is reported as ErrConditionFailed.
func (s *Store) PutIfAbsent(ctx context.Context, put types.Put) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     put.Item,
		ConditionExpression:      put.ConditionExpression,
		ExpressionAttributeNames: put.ExpressionAttributeNames,
	})
	s.metrics.RecordStoreCall("PutItem", err)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", conditionFailed(err))
	}
	s.logger.Debug("Item created", "type", attrString(put.Item, AttrType), "key", attrString(put.Item, AttrPrimaryHash))
	return nil
}

// Update applies update outside a transaction and returns the item as stored
// afterwards.
func (s *Store) Update(ctx context.Context, update types.Update) (Item, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       update.Key,
		UpdateExpression:          update.UpdateExpression,
		ConditionExpression:       update.ConditionExpression,
		ExpressionAttributeNames:  update.ExpressionAttributeNames,
		ExpressionAttributeValues: update.ExpressionAttributeValues,
		ReturnValues:              types.ReturnValueAllNew,
	})
	s.metrics.RecordStoreCall("UpdateItem", err)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", conditionFailed(err))
	}
	s.logger.Debug("Item updated", "key", attrString(update.Key, AttrPrimaryHash))
	return out.Attributes, nil
}

func (s *Store) Delete(ctx context.Context, key Item) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key,
	})
	s.metrics.RecordStoreCall("DeleteItem", err)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	s.logger.Debug("Item deleted", "key", attrString(key, AttrPrimaryHash))
	return nil
}

// Query returns a lazy sequence over every matching item. Pages are fetched
// on demand while a continuation key is returned; ranging again re-issues
// the query from the first page.
func (s *Store) Query(ctx context.Context, q Query) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		input, err := s.queryInput(q)
		if err != nil {
			yield(nil, err)
			return
		}

		yielded := 0
		for {
			if q.Limit > 0 {
				input.Limit = aws.Int32(int32(q.Limit - yielded))
			}

			out, err := s.client.Query(ctx, input)
			s.metrics.RecordStoreCall("Query", err)
			if err != nil {
				yield(nil, fmt.Errorf("failed to query index %s: %w", aws.ToString(input.IndexName), err))
				return
			}

			for _, item := range out.Items {
				if !yield(item, nil) {
					return
				}
				yielded++
				if q.Limit > 0 && yielded >= q.Limit {
					return
				}
			}

			if len(out.LastEvaluatedKey) == 0 {
				return
			}
			input.ExclusiveStartKey = out.LastEvaluatedKey
		}
	}
}

func (s *Store) queryInput(q Query) (*dynamodb.QueryInput, error) {
	if q.Index < 1 || q.Index > MaxGlobalIndexes {
		return nil, fmt.Errorf("invalid index %d", q.Index)
	}
	if q.Hash == "" {
		return nil, fmt.Errorf("query on %s needs a hash value", IndexName(q.Index))
	}

	condition := "#h = :h"
	names := map[string]string{"#h": GlobalHashAttr(q.Index)}
	values := map[string]types.AttributeValue{":h": stringValue(q.Hash)}

	if q.Sort != nil {
		if q.Sort.Prefix {
			condition += " AND begins_with(#s, :s)"
		} else {
			condition += " AND #s = :s"
		}
		names["#s"] = GlobalSortAttr(q.Index)
		values[":s"] = stringValue(q.Sort.Value)
	}

	return &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(IndexName(q.Index)),
		KeyConditionExpression:    aws.String(condition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(!q.Reverse),
	}, nil
}

func PutRequest(item Item) types.WriteRequest {
	return types.WriteRequest{PutRequest: &types.PutRequest{Item: item}}
}

func DeleteRequest(key Item) types.WriteRequest {
	return types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}}
}

// BatchWrite splits requests into chunks of at most the batch size and sends
// them one after another. Unprocessed items and throttled calls of a chunk are
// resent with backoff before the next chunk starts. Other errors fail at once.
func (s *Store) BatchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += s.batchSize {
		end := min(start+s.batchSize, len(requests))
		if err := s.writeChunk(ctx, requests[start:end]); err != nil {
			return fmt.Errorf("failed to write batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (s *Store) writeChunk(ctx context.Context, chunk []types.WriteRequest) error {
	pending := chunk

	return retry.WithBackoff(ctx, s.retry, s.logger, "BatchWriteItem", func() error {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.table: pending},
		})
		s.metrics.RecordStoreCall("BatchWriteItem", err)
		if err != nil {
			if !IsThrottled(err) {
				return retry.Permanent(err)
			}
			return err
		}

		pending = out.UnprocessedItems[s.table]
		if len(pending) > 0 {
			return fmt.Errorf("%d unprocessed items", len(pending))
		}

		s.logger.Debug("Batch written", "count", len(chunk))
		return nil
	})
}

// TransactWrite runs the builder's operations as one all-or-nothing call.
func (s *Store) TransactWrite(ctx context.Context, tb *TransactionBuilder) error {
	err := tb.Execute(ctx, s.client)
	s.metrics.RecordStoreCall("TransactWriteItems", err)
	if err != nil {
		s.logger.Error("Transaction failed", "operations", tb.Operations(), "error", err)
		return err
	}
	s.logger.Debug("Transaction committed", "operations", tb.Operations())
	return nil
}

// ErrConditionFailed is returned by single item writes whose condition
// expression did not hold.
var ErrConditionFailed = errors.New("condition failed")

func conditionFailed(err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %w", ErrConditionFailed, err)
	}
	return err
}

// throttleCodes are the API error codes DynamoDB returns when a request is
// rejected for capacity rather than content.
var throttleCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
}

// IsThrottled reports whether err is a DynamoDB capacity rejection.
func IsThrottled(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && throttleCodes[apiErr.ErrorCode()]
}

func attrString(item Item, attr string) string {
	if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
