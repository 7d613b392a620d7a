package database

import (
	"context"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Collection is a typed view of the table for one entity type.
type Collection[T any] struct {
	store   *Store
	adapter *Adapter[T]
}

func NewCollection[T any](store *Store, adapter *Adapter[T]) *Collection[T] {
	return &Collection[T]{store: store, adapter: adapter}
}

func (c *Collection[T]) Adapter() *Adapter[T] {
	return c.adapter
}

// Get loads the entity sharing probe's primary key. found is false when absent.
func (c *Collection[T]) Get(ctx context.Context, probe T) (entity T, found bool, err error) {
	item, err := c.store.Get(ctx, c.adapter.PrimaryKey(probe))
	if err != nil || item == nil {
		return entity, false, err
	}
	entity, err = c.adapter.ToDomain(item)
	if err != nil {
		return entity, false, err
	}
	return entity, true, nil
}

func (c *Collection[T]) Put(ctx context.Context, entity T) error {
	item, err := c.adapter.ToStorage(entity)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, item)
}

// Create stores entity unless its primary key is taken, in which case the
// error matches ErrConditionFailed.
func (c *Collection[T]) Create(ctx context.Context, entity T) error {
	put, err := c.PutIfAbsent(entity)
	if err != nil {
		return err
	}
	return c.store.PutIfAbsent(ctx, put)
}

// Apply runs update against the table and decodes the stored result.
func (c *Collection[T]) Apply(ctx context.Context, update types.Update) (T, error) {
	item, err := c.store.Update(ctx, update)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.adapter.ToDomain(item)
}

func (c *Collection[T]) Delete(ctx context.Context, probe T) error {
	return c.store.Delete(ctx, c.adapter.PrimaryKey(probe))
}

// Query decodes matching items lazily. Items of other types sharing the
// index partition are skipped.
func (c *Collection[T]) Query(ctx context.Context, q Query) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range c.store.Query(ctx, q) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !c.adapter.Owns(item) {
				continue
			}
			entity, err := c.adapter.ToDomain(item)
			if !yield(entity, err) || err != nil {
				return
			}
		}
	}
}

// First returns the first match of q.
func (c *Collection[T]) First(ctx context.Context, q Query) (entity T, found bool, err error) {
	for e, err := range c.Query(ctx, q) {
		if err != nil {
			return entity, false, err
		}
		return e, true, nil
	}
	return entity, false, nil
}

// Last drains q and returns its final match.
func (c *Collection[T]) Last(ctx context.Context, q Query) (entity T, found bool, err error) {
	for e, err := range c.Query(ctx, q) {
		if err != nil {
			var zero T
			return zero, false, err
		}
		entity, found = e, true
	}
	return entity, found, nil
}

// Any reports whether some match of q satisfies keep.
func (c *Collection[T]) Any(ctx context.Context, q Query, keep func(T) bool) (bool, error) {
	for e, err := range c.Query(ctx, q) {
		if err != nil {
			return false, err
		}
		if keep(e) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Collection[T]) PutBatch(ctx context.Context, entities []T) error {
	requests := make([]types.WriteRequest, 0, len(entities))
	for _, e := range entities {
		item, err := c.adapter.ToStorage(e)
		if err != nil {
			return err
		}
		requests = append(requests, PutRequest(item))
	}
	return c.store.BatchWrite(ctx, requests)
}

func (c *Collection[T]) DeleteBatch(ctx context.Context, probes []T) error {
	requests := make([]types.WriteRequest, 0, len(probes))
	for _, p := range probes {
		requests = append(requests, DeleteRequest(c.adapter.PrimaryKey(p)))
	}
	return c.store.BatchWrite(ctx, requests)
}

// PutIfAbsent builds a transactional put that fails when the primary key already exists.
func (c *Collection[T]) PutIfAbsent(entity T) (types.Put, error) {
	item, err := c.adapter.ToStorage(entity)
	if err != nil {
		return types.Put{}, err
	}
	return types.Put{
		TableName:                aws.String(c.store.Table()),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#key)"),
		ExpressionAttributeNames: map[string]string{"#key": AttrPrimaryHash},
	}, nil
}

// Update builds a transactional update of probe's item.
func (c *Collection[T]) Update(probe T, expression string, names map[string]string, values Item) types.Update {
	update := types.Update{
		TableName:                 aws.String(c.store.Table()),
		Key:                       c.adapter.PrimaryKey(probe),
		UpdateExpression:          aws.String(expression),
		ExpressionAttributeValues: values,
	}
	if len(names) > 0 {
		update.ExpressionAttributeNames = names
	}
	return update
}
