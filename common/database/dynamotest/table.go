// Package dynamotest provides an in-memory DynamoDB table that understands the
// key conditions, condition expressions and update expressions issued by
// database.Store.
package dynamotest

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/burakmert236/goodswipe-rewards/common/database"
)

var (
	indexPattern     = regexp.MustCompile(`^g(\d)k$`)
	conditionPattern = regexp.MustCompile(`^attribute_(not_)?exists\((#?\w+)\)$`)
)

// Table is safe for concurrent use. Transactions are applied atomically.
type Table struct {
	mu    sync.Mutex
	items map[string]database.Item

	// PageSize caps items per Query page, zero means unlimited.
	PageSize int

	calls      map[string]int
	batchSizes []int
	failures   map[string]failure
}

type failure struct {
	call int
	err  error
}

var _ database.DynamoAPI = (*Table)(nil)

func New() *Table {
	return &Table{
		items:    map[string]database.Item{},
		calls:    map[string]int{},
		failures: map[string]failure{},
	}
}

// Client wraps the table for database.NewStore.
func (t *Table) Client(tableName string) *database.DynamoDBClient {
	return &database.DynamoDBClient{Client: t, TableName: tableName}
}

// FailNext makes the next call of operation return err.
func (t *Table) FailNext(operation string, err error) {
	t.FailAfter(operation, 0, err)
}

// FailAfter lets skip calls of operation succeed and fails the one after.
func (t *Table) FailAfter(operation string, skip int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[operation] = failure{call: t.calls[operation] + skip + 1, err: err}
}

func (t *Table) Calls(operation string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[operation]
}

func (t *Table) BatchSizes() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.batchSizes)
}

// Items returns every stored item whose _type equals typename.
func (t *Table) Items(typename string) []database.Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []database.Item
	for _, key := range slices.Sorted(maps.Keys(t.items)) {
		item := t.items[key]
		if str(item, database.AttrType) == typename {
			out = append(out, maps.Clone(item))
		}
	}
	return out
}

func (t *Table) begin(operation string) error {
	t.calls[operation]++
	if f, ok := t.failures[operation]; ok && f.call == t.calls[operation] {
		delete(t.failures, operation)
		return f.err
	}
	return nil
}

func (t *Table) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("GetItem"); err != nil {
		return nil, err
	}

	item, ok := t.items[primaryKey(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: maps.Clone(item)}, nil
}

func (t *Table) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("PutItem"); err != nil {
		return nil, err
	}

	key := primaryKey(in.Item)
	if !t.conditionHolds(key, aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	t.items[key] = maps.Clone(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// UpdateItem applies the same SET subset as transactional updates and
// honours ReturnValues ALL_NEW.
func (t *Table) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("UpdateItem"); err != nil {
		return nil, err
	}

	key := primaryKey(in.Key)
	if !t.conditionHolds(key, aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	if err := t.applyUpdate(&types.Update{
		Key:                       in.Key,
		UpdateExpression:          in.UpdateExpression,
		ExpressionAttributeNames:  in.ExpressionAttributeNames,
		ExpressionAttributeValues: in.ExpressionAttributeValues,
	}); err != nil {
		return nil, err
	}

	out := &dynamodb.UpdateItemOutput{}
	if in.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = maps.Clone(t.items[key])
	}
	return out, nil
}

func (t *Table) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("DeleteItem"); err != nil {
		return nil, err
	}

	delete(t.items, primaryKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (t *Table) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("Query"); err != nil {
		return nil, err
	}

	m := indexPattern.FindStringSubmatch(aws.ToString(in.IndexName))
	if m == nil {
		return nil, fmt.Errorf("dynamotest: unsupported index %q", aws.ToString(in.IndexName))
	}
	index, _ := strconv.Atoi(m[1])
	hashAttr, sortAttr := database.GlobalHashAttr(index), database.GlobalSortAttr(index)

	expr := aws.ToString(in.KeyConditionExpression)
	hash := str(in.ExpressionAttributeValues, ":h")
	sortValue, hasSort := in.ExpressionAttributeValues[":s"]
	prefix := strings.Contains(expr, "begins_with")

	var matches []database.Item
	for _, item := range t.items {
		if str(item, hashAttr) != hash {
			continue
		}
		if hasSort {
			sk := str(item, sortAttr)
			want := sortValue.(*types.AttributeValueMemberS).Value
			if prefix && !strings.HasPrefix(sk, want) || !prefix && sk != want {
				continue
			}
		}
		matches = append(matches, item)
	}

	slices.SortFunc(matches, func(a, b database.Item) int {
		if c := strings.Compare(str(a, sortAttr), str(b, sortAttr)); c != 0 {
			return c
		}
		return strings.Compare(primaryKey(a), primaryKey(b))
	})
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		slices.Reverse(matches)
	}

	start := 0
	if len(in.ExclusiveStartKey) > 0 {
		after := primaryKey(in.ExclusiveStartKey)
		for i, item := range matches {
			if primaryKey(item) == after {
				start = i + 1
				break
			}
		}
	}

	size := len(matches) - start
	if limit := int(aws.ToInt32(in.Limit)); limit > 0 && limit < size {
		size = limit
	}
	if t.PageSize > 0 && t.PageSize < size {
		size = t.PageSize
	}

	out := &dynamodb.QueryOutput{}
	for _, item := range matches[start : start+size] {
		out.Items = append(out.Items, maps.Clone(item))
	}
	out.Count = int32(len(out.Items))
	if start+size < len(matches) && size > 0 {
		last := matches[start+size-1]
		out.LastEvaluatedKey = database.Item{
			database.AttrPrimaryHash: last[database.AttrPrimaryHash],
			database.AttrPrimarySort: last[database.AttrPrimarySort],
		}
	}
	return out, nil
}

func (t *Table) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("BatchWriteItem"); err != nil {
		return nil, err
	}

	for _, requests := range in.RequestItems {
		if len(requests) > database.MaxBatchSize {
			return nil, fmt.Errorf("dynamodb: too many items in batch: %d", len(requests))
		}
		t.batchSizes = append(t.batchSizes, len(requests))
		for _, r := range requests {
			switch {
			case r.PutRequest != nil:
				t.items[primaryKey(r.PutRequest.Item)] = maps.Clone(r.PutRequest.Item)
			case r.DeleteRequest != nil:
				delete(t.items, primaryKey(r.DeleteRequest.Key))
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (t *Table) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin("TransactWriteItems"); err != nil {
		return nil, err
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	canceled := false
	for i, op := range in.TransactItems {
		key, condition, names := describe(op)
		code := database.ReasonNone
		if !t.conditionHolds(key, condition, names) {
			code = database.ReasonConditionalCheckFailed
			canceled = true
		}
		reasons[i] = types.CancellationReason{Code: aws.String(code)}
	}
	if canceled {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	for _, op := range in.TransactItems {
		switch {
		case op.Put != nil:
			t.items[primaryKey(op.Put.Item)] = maps.Clone(op.Put.Item)
		case op.Delete != nil:
			delete(t.items, primaryKey(op.Delete.Key))
		case op.Update != nil:
			if err := t.applyUpdate(op.Update); err != nil {
				return nil, err
			}
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func describe(op types.TransactWriteItem) (string, string, map[string]string) {
	switch {
	case op.Put != nil:
		return primaryKey(op.Put.Item), aws.ToString(op.Put.ConditionExpression), op.Put.ExpressionAttributeNames
	case op.Update != nil:
		return primaryKey(op.Update.Key), aws.ToString(op.Update.ConditionExpression), op.Update.ExpressionAttributeNames
	case op.Delete != nil:
		return primaryKey(op.Delete.Key), aws.ToString(op.Delete.ConditionExpression), op.Delete.ExpressionAttributeNames
	case op.ConditionCheck != nil:
		return primaryKey(op.ConditionCheck.Key), aws.ToString(op.ConditionCheck.ConditionExpression), op.ConditionCheck.ExpressionAttributeNames
	}
	return "", "", nil
}

func (t *Table) conditionHolds(key, condition string, names map[string]string) bool {
	if condition == "" {
		return true
	}
	m := conditionPattern.FindStringSubmatch(condition)
	if m == nil {
		panic(fmt.Sprintf("dynamotest: unsupported condition %q", condition))
	}
	attr := resolve(m[2], names)
	item, exists := t.items[key]
	_, has := item[attr]
	if m[1] == "not_" {
		return !exists || !has
	}
	return exists && has
}

// applyUpdate supports "SET a = :v" and "SET a = a + :v" assignments.
func (t *Table) applyUpdate(u *types.Update) error {
	key := primaryKey(u.Key)
	item, ok := t.items[key]
	if !ok {
		item = maps.Clone(u.Key)
	} else {
		item = maps.Clone(item)
	}

	expr := strings.TrimSpace(aws.ToString(u.UpdateExpression))
	if !strings.HasPrefix(expr, "SET ") {
		return fmt.Errorf("dynamotest: unsupported update %q", expr)
	}

	for _, assignment := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		lhs, rhs, found := strings.Cut(assignment, "=")
		if !found {
			return fmt.Errorf("dynamotest: malformed assignment %q", assignment)
		}
		target := resolve(strings.TrimSpace(lhs), u.ExpressionAttributeNames)
		rhs = strings.TrimSpace(rhs)

		if operand, placeholder, isAdd := strings.Cut(rhs, "+"); isAdd {
			current := num(item, resolve(strings.TrimSpace(operand), u.ExpressionAttributeNames))
			delta := num(u.ExpressionAttributeValues, strings.TrimSpace(placeholder))
			item[target] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current+delta, 10)}
			continue
		}
		item[target] = u.ExpressionAttributeValues[rhs]
	}

	t.items[key] = item
	return nil
}

func resolve(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		return names[name]
	}
	return name
}

func primaryKey(item database.Item) string {
	return str(item, database.AttrPrimaryHash) + "|" + str(item, database.AttrPrimarySort)
}

func str(item database.Item, attr string) string {
	if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func num(item database.Item, attr string) int64 {
	if v, ok := item[attr].(*types.AttributeValueMemberN); ok {
		n, _ := strconv.ParseInt(v.Value, 10, 64)
		return n
	}
	return 0
}
