package database

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Reserved attribute names. Everything else in a stored item is a domain field.
const (
	AttrType        = "_type"
	AttrPrimaryHash = "_ph"
	AttrPrimarySort = "_ps"

	// MaxGlobalIndexes is the number of g{n}k indexes provisioned on the table.
	MaxGlobalIndexes = 3
)

func GlobalHashAttr(index int) string {
	return fmt.Sprintf("_g%dh", index)
}

func GlobalSortAttr(index int) string {
	return fmt.Sprintf("_g%ds", index)
}

// IndexName returns the physical name of secondary index n (1-based).
func IndexName(index int) string {
	return fmt.Sprintf("g%dk", index)
}

// KeyFunc derives one key attribute value from an entity. It must be pure.
type KeyFunc[T any] func(typename string, entity T) string

// KeyGenerator pairs a hash and an optional sort function. Primary key
// generators always carry both.
type KeyGenerator[T any] struct {
	Hash KeyFunc[T]
	Sort KeyFunc[T]
}

func (g KeyGenerator[T]) primary(typename string, entity T) map[string]types.AttributeValue {
	keys := map[string]types.AttributeValue{
		AttrPrimaryHash: stringValue(g.Hash(typename, entity)),
	}
	if g.Sort != nil {
		keys[AttrPrimarySort] = stringValue(g.Sort(typename, entity))
	}
	return keys
}

func (g KeyGenerator[T]) global(typename string, entity T, index int) map[string]types.AttributeValue {
	keys := map[string]types.AttributeValue{
		GlobalHashAttr(index): stringValue(g.Hash(typename, entity)),
	}
	if g.Sort != nil {
		keys[GlobalSortAttr(index)] = stringValue(g.Sort(typename, entity))
	}
	return keys
}

func (g KeyGenerator[T]) primaryAttrs() []string {
	if g.Sort == nil {
		return []string{AttrPrimaryHash}
	}
	return []string{AttrPrimaryHash, AttrPrimarySort}
}

func (g KeyGenerator[T]) globalAttrs(index int) []string {
	if g.Sort == nil {
		return []string{GlobalHashAttr(index)}
	}
	return []string{GlobalHashAttr(index), GlobalSortAttr(index)}
}

// Identifiable is implemented by entities keyed by their id.
type Identifiable interface {
	GetID() string
}

// StandardKey renders "TYPENAME#id".
func StandardKey[T Identifiable](typename string, entity T) string {
	return ComposeKey(typename, entity.GetID())
}

// ComposeKey joins the upper-cased type name and the non-empty parts with '#'.
func ComposeKey(typename string, parts ...string) string {
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, strings.ToUpper(typename))
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, "#")
}

func stringValue(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}
