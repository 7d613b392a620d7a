package database

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a flat storage record.
type Item = map[string]types.AttributeValue

// TimeLayout is the ISO-8601 form persisted for timestamps: millisecond
// precision, always UTC.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// TruncateTime drops precision below what TimeLayout persists.
func TruncateTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

type AdapterConfig[T any] struct {
	Typename string
	Primary  KeyGenerator[T]
	// Global holds generators for g1k..g3k; a nil entry leaves that index unset.
	Global []*KeyGenerator[T]
	Encode func(entity T) (Item, error)
	Decode func(item Item) (T, error)
}

// Adapter converts between a domain entity and its storage record.
type Adapter[T any] struct {
	typename string
	pk       KeyGenerator[T]
	gk       []*KeyGenerator[T]
	encode   func(T) (Item, error)
	decode   func(Item) (T, error)
	reserved map[string]struct{}
}

func NewAdapter[T any](cfg AdapterConfig[T]) *Adapter[T] {
	if len(cfg.Global) > MaxGlobalIndexes {
		panic(fmt.Sprintf("adapter %s: %d global indexes configured, table has %d", cfg.Typename, len(cfg.Global), MaxGlobalIndexes))
	}
	if cfg.Primary.Hash == nil || cfg.Primary.Sort == nil {
		panic(fmt.Sprintf("adapter %s: primary key needs hash and sort", cfg.Typename))
	}

	a := &Adapter[T]{
		typename: strings.ToUpper(cfg.Typename),
		pk:       cfg.Primary,
		gk:       cfg.Global,
		encode:   cfg.Encode,
		decode:   cfg.Decode,
		reserved: map[string]struct{}{AttrType: {}},
	}

	for _, attr := range a.pk.primaryAttrs() {
		a.reserved[attr] = struct{}{}
	}
	for i, g := range a.gk {
		if g == nil {
			continue
		}
		for _, attr := range g.globalAttrs(i + 1) {
			a.reserved[attr] = struct{}{}
		}
	}

	return a
}

func (a *Adapter[T]) Typename() string {
	return a.typename
}

// Key builds a key value in this adapter's namespace, e.g. Key(id) == "ACCOUNT#id".
func (a *Adapter[T]) Key(parts ...string) string {
	return ComposeKey(a.typename, parts...)
}

// ToStorage flattens entity and injects the type discriminator and every key attribute.
func (a *Adapter[T]) ToStorage(entity T) (Item, error) {
	item, err := a.encode(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", a.typename, err)
	}

	for attr := range a.reserved {
		delete(item, attr)
	}

	item[AttrType] = stringValue(a.typename)
	maps.Copy(item, a.PrimaryKey(entity))
	maps.Copy(item, a.GlobalKey(entity))

	return item, nil
}

// ToDomain strips every reserved attribute before decoding.
func (a *Adapter[T]) ToDomain(item Item) (T, error) {
	clean := make(Item, len(item))
	for k, v := range item {
		if _, ok := a.reserved[k]; ok {
			continue
		}
		clean[k] = v
	}

	entity, err := a.decode(clean)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode %s: %w", a.typename, err)
	}
	return entity, nil
}

func (a *Adapter[T]) PrimaryKey(entity T) Item {
	return a.pk.primary(a.typename, entity)
}

func (a *Adapter[T]) GlobalKey(entity T) Item {
	keys := Item{}
	for i, g := range a.gk {
		if g == nil {
			continue
		}
		maps.Copy(keys, g.global(a.typename, entity, i+1))
	}
	return keys
}

// Owns reports whether item carries this adapter's type discriminator.
func (a *Adapter[T]) Owns(item Item) bool {
	v, ok := item[AttrType].(*types.AttributeValueMemberS)
	return ok && v.Value == a.typename
}

// MarshalItem and UnmarshalItem are the default codecs for adapters whose
// storage shape is a tagged struct.
func MarshalItem(v any) (Item, error) {
	return attributevalue.MarshalMap(v)
}

func UnmarshalItem[R any](item Item) (R, error) {
	var out R
	err := attributevalue.UnmarshalMap(item, &out)
	return out, err
}
