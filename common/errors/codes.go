package errors

// Codes carried by AppError. Subscribers settle messages by code, so a code
// must mean the same thing wherever it is raised.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeInternalServer = "INTERNAL_SERVER"

	// Store and transport failures, worth retrying.
	CodeDatabaseError       = "DATABASE_ERROR"
	CodeTransactionError    = "TRANSACTION_ERROR"
	CodeRedisOperationError = "REDIS_ERROR"
	CodeEventPublishError   = "EVENT_PUBLISH_ERROR"

	// Payload codecs.
	CodeObjectMarshalError   = "OBJECT_MARSHALL_ERROR"
	CodeObjectUnmarshalError = "OBJECT_UNMARSHALL_ERROR"

	// Reward ledger.
	CodeAlreadyGranted  = "ALREADY_GRANTED"
	CodeNoRuleForReason = "NO_RULE_FOR_REASON"
	CodePartialGrant    = "PARTIAL_GRANT"
)
