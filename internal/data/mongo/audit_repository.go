package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/shared"
)

const (
	// DefaultCollectionName is the audit trail collection used when none is configured
	DefaultCollectionName = "transfer_audit"
)

// auditDocument is the stored shape of an audit.Entry. Amounts are kept as
// Decimal128 so they sort and aggregate as numbers in Mongo.
type auditDocument struct {
	RequestID            string                 `bson:"request_id,omitempty"`
	TransactionID        int64                  `bson:"transaction_id,omitempty"`
	Kind                 shared.TransactionKind `bson:"kind"`
	SourceAccountID      int64                  `bson:"source_account_id"`
	DestinationAccountID int64                  `bson:"destination_account_id"`
	Amount               primitive.Decimal128   `bson:"amount"`
	Currency             string                 `bson:"currency"`
	Status               shared.TransferStatus  `bson:"status"`
	FailureReason        string                 `bson:"failure_reason,omitempty"`
	CorrelationID        string                 `bson:"correlation_id,omitempty"`
	RequestedAt          time.Time              `bson:"requested_at"`
	ProcessedAt          *time.Time             `bson:"processed_at,omitempty"`
}

func toDocument(entry *audit.Entry) (*auditDocument, error) {
	amount, err := primitive.ParseDecimal128(entry.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("failed to convert amount %s: %w", entry.Amount, err)
	}

	return &auditDocument{
		RequestID:            entry.RequestID,
		TransactionID:        entry.TransactionID,
		Kind:                 entry.Kind,
		SourceAccountID:      entry.SourceAccountID,
		DestinationAccountID: entry.DestinationAccountID,
		Amount:               amount,
		Currency:             entry.Currency,
		Status:               entry.Status,
		FailureReason:        entry.FailureReason,
		CorrelationID:        entry.CorrelationID,
		RequestedAt:          entry.RequestedAt.UTC(),
		ProcessedAt:          entry.ProcessedAt,
	}, nil
}

func (d *auditDocument) toEntry() (*audit.Entry, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored amount %s: %w", d.Amount, err)
	}

	return &audit.Entry{
		RequestID:            d.RequestID,
		TransactionID:        d.TransactionID,
		Kind:                 d.Kind,
		SourceAccountID:      d.SourceAccountID,
		DestinationAccountID: d.DestinationAccountID,
		Amount:               amount,
		Currency:             d.Currency,
		Status:               d.Status,
		FailureReason:        d.FailureReason,
		CorrelationID:        d.CorrelationID,
		RequestedAt:          d.RequestedAt.UTC(),
		ProcessedAt:          d.ProcessedAt,
	}, nil
}

// duplicateKey names the unique key an entry is indexed by
func duplicateKey(entry *audit.Entry) string {
	if entry.TransactionID != 0 {
		return "transaction_id=" + strconv.FormatInt(entry.TransactionID, 10)
	}
	return "request_id=" + entry.RequestID
}

// accountFilter matches entries where the account is on either side
func accountFilter(accountID int64) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"source_account_id": accountID},
		bson.M{"destination_account_id": accountID},
	}}
}

// AuditRepository implements audit.Repository on a MongoDB collection
type AuditRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewAuditRepository creates a MongoDB audit repository on the named collection
func NewAuditRepository(logger *slog.Logger, db *mongo.Database, collection string) *AuditRepository {
	if collection == "" {
		collection = DefaultCollectionName
	}
	return &AuditRepository{
		collection: db.Collection(collection),
		logger:     logger,
	}
}

// EnsureIndexes creates the unique and lookup indexes of the collection.
// Entries of rejected requests carry no transaction id and entries of
// synchronous transfers carry no request id, so both unique indexes are partial.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_transaction_id").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"transaction_id": bson.M{"$gt": 0}}),
		},
		{
			Keys: bson.D{{Key: "request_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_request_id").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"request_id": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "source_account_id", Value: 1}, {Key: "requested_at", Value: -1}},
			Options: options.Index().SetName("source_requested_at"),
		},
		{
			Keys:    bson.D{{Key: "destination_account_id", Value: 1}, {Key: "requested_at", Value: -1}},
			Options: options.Index().SetName("destination_requested_at"),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

// Create stores a new audit entry.
// Returns ErrDuplicateEntry if the transaction or request was already recorded.
func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	doc, err := toDocument(entry)
	if err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return audit.ErrDuplicateEntry{Key: duplicateKey(entry)}
		}
		r.logger.Error("Failed to create audit entry",
			"transaction_id", entry.TransactionID,
			"request_id", entry.RequestID,
			"error", err)
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// GetByTransactionID returns ErrEntryNotFound if no entry exists for the transaction
func (r *AuditRepository) GetByTransactionID(ctx context.Context, transactionID int64) (*audit.Entry, error) {
	entry, err := r.findOne(ctx, bson.M{"transaction_id": transactionID})
	if err != nil {
		r.logger.Error("Failed to get audit entry",
			"transaction_id", transactionID,
			"error", err)
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}
	if entry == nil {
		return nil, audit.ErrEntryNotFound{TransactionID: transactionID}
	}
	return entry, nil
}

// GetByRequestID returns nil if no entry exists, enabling idempotent request processing
func (r *AuditRepository) GetByRequestID(ctx context.Context, requestID string) (*audit.Entry, error) {
	if requestID == "" {
		return nil, errors.New("request id cannot be empty")
	}

	entry, err := r.findOne(ctx, bson.M{"request_id": requestID})
	if err != nil {
		r.logger.Error("Failed to get audit entry by request id",
			"request_id", requestID,
			"error", err)
		return nil, fmt.Errorf("failed to get audit entry by request id: %w", err)
	}
	return entry, nil
}

func (r *AuditRepository) findOne(ctx context.Context, filter bson.M) (*audit.Entry, error) {
	var doc auditDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toEntry()
}

// GetByAccountID retrieves paginated audit entries for an account.
// Results are sorted by request time in descending order (newest first).
func (r *AuditRepository) GetByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*audit.Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "requested_at", Value: -1}, {Key: "transaction_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, accountFilter(accountID), opts)
	if err != nil {
		r.logger.Error("Failed to get audit entries",
			"account_id", accountID,
			"error", err)
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []auditDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"account_id", accountID,
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	entries := make([]*audit.Entry, 0, len(docs))
	for i := range docs {
		entry, err := docs[i].toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CountByAccountID counts the entries where the account is source or destination
func (r *AuditRepository) CountByAccountID(ctx context.Context, accountID int64) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, accountFilter(accountID))
	if err != nil {
		r.logger.Error("Failed to count audit entries",
			"account_id", accountID,
			"error", err)
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}
