package shared

// TransactionKind labels records in the transaction log
type TransactionKind string

const (
	TransactionKindTransfer TransactionKind = "transfer"
)

// TransferStatus defines the outcome recorded in the audit trail
type TransferStatus string

const (
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusFailed    TransferStatus = "FAILED"
)

// FailureReason defines transfer rejection categories
type FailureReason string

const (
	FailureReasonSameAccount        FailureReason = "SAME_ACCOUNT"
	FailureReasonAccountNotFound    FailureReason = "ACCOUNT_NOT_FOUND"
	FailureReasonInsufficientFunds  FailureReason = "INSUFFICIENT_FUNDS"
	FailureReasonInvalidRequest     FailureReason = "INVALID_REQUEST"
	FailureReasonStorageUnavailable FailureReason = "STORAGE_UNAVAILABLE"
	FailureReasonUnknownError       FailureReason = "UNKNOWN_ERROR"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// Table names a logical relation that can be bulk-cleared
type Table string

const (
	TableAccounts     Table = "accounts"
	TableTransactions Table = "transactions"
)
