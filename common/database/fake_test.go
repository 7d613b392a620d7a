package database

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// recordingDynamo records every call and serves scripted query pages.
type recordingDynamo struct {
	mu sync.Mutex

	items       map[string]Item
	queries     []*dynamodb.QueryInput
	pages       []*dynamodb.QueryOutput
	batches     [][]types.WriteRequest
	unprocessed []types.WriteRequest
	batchErrs   []error
	transacts   []*dynamodb.TransactWriteItemsInput
	updates     []*dynamodb.UpdateItemInput
	transactErr error
}

func newRecordingDynamo() *recordingDynamo {
	return &recordingDynamo{items: map[string]Item{}}
}

func itemKey(key Item) string {
	return attrString(key, AttrPrimaryHash) + "|" + attrString(key, AttrPrimarySort)
}

func (f *recordingDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *recordingDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *recordingDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{Attributes: f.items[itemKey(in.Key)]}, nil
}

func (f *recordingDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *recordingDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *in
	f.queries = append(f.queries, &copied)
	if len(f.pages) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *recordingDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, requests := range in.RequestItems {
		f.batches = append(f.batches, requests)
	}
	if len(f.batchErrs) > 0 {
		err := f.batchErrs[0]
		f.batchErrs = f.batchErrs[1:]
		return nil, err
	}
	out := &dynamodb.BatchWriteItemOutput{}
	if len(f.unprocessed) > 0 {
		for table := range in.RequestItems {
			out.UnprocessedItems = map[string][]types.WriteRequest{table: f.unprocessed}
		}
		f.unprocessed = nil
	}
	return out, nil
}

func (f *recordingDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transacts = append(f.transacts, in)
	if f.transactErr != nil {
		return nil, f.transactErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// widget is a minimal entity used to exercise the generic adapter.
type widget struct {
	ID    string `dynamodbav:"id"`
	Owner string `dynamodbav:"owner"`
	Color string `dynamodbav:"color"`
	Size  int    `dynamodbav:"size"`
}

func (w widget) GetID() string { return w.ID }

func newWidgetAdapter() *Adapter[widget] {
	return NewAdapter(AdapterConfig[widget]{
		Typename: "widget",
		Primary: KeyGenerator[widget]{
			Hash: StandardKey[widget],
			Sort: StandardKey[widget],
		},
		Global: []*KeyGenerator[widget]{
			{
				Hash: func(typename string, w widget) string { return ComposeKey(typename, w.Owner) },
				Sort: func(typename string, w widget) string { return ComposeKey(typename, w.Color) },
			},
			nil,
			{
				Hash: func(typename string, w widget) string { return ComposeKey(typename, w.Color) },
			},
		},
		Encode: func(w widget) (Item, error) { return MarshalItem(w) },
		Decode: UnmarshalItem[widget],
	})
}

func newTestStore(fake *recordingDynamo, opts ...StoreOption) *Store {
	return NewStore(&DynamoDBClient{Client: fake, TableName: "rewards-test"}, opts...)
}
