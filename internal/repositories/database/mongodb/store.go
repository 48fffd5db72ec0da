// Package mongodb implements the LedgerStore contract on MongoDB: one
// document per account with the balance map embedded, one document per
// transaction.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/m0nxef/gbank/internal/apperrors"
	"github.com/m0nxef/gbank/internal/core/domain"
	portsrepo "github.com/m0nxef/gbank/internal/core/ports/repositories"
)

const backendName = "document"

// Amounts are persisted as decimal strings so fixed-point values survive the
// round trip unchanged.
type accountDoc struct {
	ID       string            `bson:"_id"`
	Balances map[string]string `bson:"balances"`
}

type transactionDoc struct {
	AccountID string `bson:"account_id"`
	Currency  string `bson:"currency"`
	Kind      string `bson:"kind"`
	Amount    string `bson:"amount"`
	Detail    string `bson:"detail"`
	Timestamp int64  `bson:"timestamp"`
}

// Store is the MongoDB-backed LedgerStore.
type Store struct {
	client       *mongo.Client
	accounts     *mongo.Collection
	transactions *mongo.Collection
}

var _ portsrepo.LedgerStore = (*Store)(nil)

// New wraps an established client and ensures the compound index backing
// bounded, ordered audit queries.
func New(ctx context.Context, client *mongo.Client, database string) (*Store, error) {
	db := client.Database(database)
	s := &Store{
		client:       client,
		accounts:     db.Collection("accounts"),
		transactions: db.Collection("transactions"),
	}

	_, err := s.transactions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "account_id", Value: 1},
			{Key: "currency", Value: 1},
			{Key: "timestamp", Value: -1},
		},
	})
	if err != nil {
		return nil, apperrors.NewStorageError(backendName, "init", err)
	}
	return s, nil
}

// LoadAccount fetches the account document by id. No document yields
// (nil, nil).
func (s *Store) LoadAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var doc accountDoc
	err := s.accounts.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError(backendName, "load_account", err)
	}

	balances := make(map[string]decimal.Decimal, len(doc.Balances))
	for currency, raw := range doc.Balances {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, apperrors.NewStorageError(backendName, "load_account",
				fmt.Errorf("corrupt amount %q for %s: %w", raw, currency, err))
		}
		balances[currency] = amount
	}
	return domain.NewAccountWithBalances(id, balances), nil
}

// SaveAccount upserts the account document, replacing the balances field with
// the account's current state.
func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	balances := map[string]string{}
	for currency, amount := range account.Balances() {
		balances[currency] = amount.String()
	}

	_, err := s.accounts.UpdateOne(ctx,
		bson.M{"_id": account.ID().String()},
		bson.M{"$set": bson.M{"balances": balances}},
		options.Update().SetUpsert(true))
	if err != nil {
		return apperrors.NewStorageError(backendName, "save_account", err)
	}
	return nil
}

// AppendTransaction inserts one audit document.
func (s *Store) AppendTransaction(ctx context.Context, id uuid.UUID, currency string, tx domain.Transaction) error {
	_, err := s.transactions.InsertOne(ctx, transactionDoc{
		AccountID: id.String(),
		Currency:  currency,
		Kind:      string(tx.Kind),
		Amount:    tx.Amount.String(),
		Detail:    tx.Detail,
		Timestamp: tx.Timestamp,
	})
	if err != nil {
		return apperrors.NewStorageError(backendName, "append_transaction", err)
	}
	return nil
}

// QueryTransactions returns the newest entries for (id, currency) using the
// compound index, limited server-side.
func (s *Store) QueryTransactions(ctx context.Context, id uuid.UUID, currency string, limit int) ([]domain.Transaction, error) {
	cursor, err := s.transactions.Find(ctx,
		bson.M{"account_id": id.String(), "currency": currency},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(int64(limit)))
	if err != nil {
		return nil, apperrors.NewStorageError(backendName, "query_transactions", err)
	}
	defer cursor.Close(ctx)

	txs := []domain.Transaction{}
	for cursor.Next(ctx) {
		var doc transactionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, apperrors.NewStorageError(backendName, "query_transactions", err)
		}
		amount, err := decimal.NewFromString(doc.Amount)
		if err != nil {
			return nil, apperrors.NewStorageError(backendName, "query_transactions",
				fmt.Errorf("corrupt amount %q: %w", doc.Amount, err))
		}
		txs = append(txs, domain.Transaction{
			Kind:      domain.TransactionKind(doc.Kind),
			Amount:    amount,
			Timestamp: doc.Timestamp,
			Detail:    doc.Detail,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, apperrors.NewStorageError(backendName, "query_transactions", err)
	}
	return txs, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return apperrors.NewStorageError(backendName, "close", err)
	}
	return nil
}
