package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Cancellation reason codes reported by DynamoDB.
const (
	ReasonNone                   = "None"
	ReasonConditionalCheckFailed = "ConditionalCheckFailed"
	ReasonTransactionConflict    = "TransactionConflict"
)

const maxTransactionItems = 100

type TransactionBuilder struct {
	items []types.TransactWriteItem
	names []string
	limit int
}

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		items: make([]types.TransactWriteItem, 0),
		names: make([]string, 0),
		limit: maxTransactionItems,
	}
}

func (tb *TransactionBuilder) add(name string, item types.TransactWriteItem) error {
	if len(tb.items) >= tb.limit {
		return fmt.Errorf("transaction limit exceeded: %d items", tb.limit)
	}
	tb.items = append(tb.items, item)
	tb.names = append(tb.names, name)
	return nil
}

// AddPut appends a put under name; the name identifies the operation in a TransactionError.
func (tb *TransactionBuilder) AddPut(name string, item types.Put) error {
	return tb.add(name, types.TransactWriteItem{Put: &item})
}

func (tb *TransactionBuilder) AddUpdate(name string, item types.Update) error {
	return tb.add(name, types.TransactWriteItem{Update: &item})
}

func (tb *TransactionBuilder) AddDelete(name string, item types.Delete) error {
	return tb.add(name, types.TransactWriteItem{Delete: &item})
}

func (tb *TransactionBuilder) AddConditionCheck(name string, item types.ConditionCheck) error {
	return tb.add(name, types.TransactWriteItem{ConditionCheck: &item})
}

func (tb *TransactionBuilder) Execute(ctx context.Context, client DynamoAPI) error {
	if len(tb.items) == 0 {
		return fmt.Errorf("no items in transaction")
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: tb.items,
	}

	_, err := client.TransactWriteItems(ctx, input)
	if err != nil {
		return tb.translate(err)
	}
	return nil
}

func (tb *TransactionBuilder) Count() int {
	return len(tb.items)
}

func (tb *TransactionBuilder) Operations() []string {
	return append([]string(nil), tb.names...)
}

func (tb *TransactionBuilder) translate(err error) error {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return err
	}

	txErr := &TransactionError{Err: err}
	for i, reason := range canceled.CancellationReasons {
		op := ""
		if i < len(tb.names) {
			op = tb.names[i]
		}
		txErr.Reasons = append(txErr.Reasons, CancellationReason{
			Operation: op,
			Index:     i,
			Code:      aws.ToString(reason.Code),
			Message:   aws.ToString(reason.Message),
		})
	}
	return txErr
}

// CancellationReason describes the outcome of one operation in a canceled transaction.
type CancellationReason struct {
	Operation string
	Index     int
	Code      string
	Message   string
}

// TransactionError is returned when DynamoDB cancels a transaction. It
// carries one reason per operation, in submission order.
type TransactionError struct {
	Reasons []CancellationReason
	Err     error
}

func (e *TransactionError) Error() string {
	failed := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		if r.Code != "" && r.Code != ReasonNone {
			failed = append(failed, fmt.Sprintf("%s[%d]=%s", r.Operation, r.Index, r.Code))
		}
	}
	return fmt.Sprintf("transaction canceled: %s", strings.Join(failed, ", "))
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// FailedOperation returns the first operation that was rejected.
func (e *TransactionError) FailedOperation() (CancellationReason, bool) {
	for _, r := range e.Reasons {
		if r.Code != "" && r.Code != ReasonNone {
			return r, true
		}
	}
	return CancellationReason{}, false
}

// Rejected reports whether the named operation was rejected with code.
func (e *TransactionError) Rejected(operation, code string) bool {
	for _, r := range e.Reasons {
		if r.Operation == operation && r.Code == code {
			return true
		}
	}
	return false
}

// IsConditionFailed reports whether err is a TransactionError in which the
// named operation failed its condition expression.
func IsConditionFailed(err error, operation string) bool {
	var txErr *TransactionError
	return errors.As(err, &txErr) && txErr.Rejected(operation, ReasonConditionalCheckFailed)
}
