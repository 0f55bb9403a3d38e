package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/model"
	"github.com/finchwallet/finch/internal/service"
)

// Poster writes manually entered transactions. It shares the materializer's
// balance discipline: the row insert and its account deltas commit in one
// storage transaction, so a posted row can never exist without its balance
// effect.
type Poster struct {
	storage service.Storage
}

// NewPoster creates a poster backed by the given storage.
func NewPoster(storage service.Storage) *Poster {
	return &Poster{storage: storage}
}

// PostInput carries the fields of a manual transaction entry.
type PostInput struct {
	Date              time.Time
	Description       string
	Kind              model.TransactionKind
	Amount            decimal.Decimal
	CategoryID        *int64
	TransferAccountID *int64
	AccountID         int64
}

// Post validates and writes one transaction with its balance deltas.
func (p *Poster) Post(ctx context.Context, userID int64, input PostInput) (*model.Transaction, error) {
	if !input.Kind.Valid() {
		return nil, common.Validationf("unknown transaction kind %q", input.Kind)
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, common.Validationf("amount must be positive")
	}
	if input.Kind == model.KindTransfer {
		if input.TransferAccountID == nil {
			return nil, common.Validationf("transfer requires a target account")
		}
		if *input.TransferAccountID == input.AccountID {
			return nil, common.Validationf("transfer target must differ from source account")
		}
		if input.CategoryID != nil {
			return nil, common.Validationf("transfers cannot carry a category")
		}
	}

	tx, err := p.storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.GetAccount(ctx, userID, input.AccountID); err != nil {
		return nil, err
	}
	if input.TransferAccountID != nil {
		if _, err := tx.GetAccount(ctx, userID, *input.TransferAccountID); err != nil {
			return nil, err
		}
	}
	if input.CategoryID != nil {
		if _, err := tx.GetCategory(ctx, userID, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	txn := &model.Transaction{
		ID:                uuid.NewString(),
		UserID:            userID,
		AccountID:         input.AccountID,
		CategoryID:        input.CategoryID,
		Kind:              input.Kind,
		Amount:            input.Amount,
		Date:              date,
		Description:       input.Description,
		TransferAccountID: input.TransferAccountID,
	}
	if err := tx.SaveTransaction(ctx, txn); err != nil {
		return nil, err
	}

	if err := tx.ApplyBalanceDelta(ctx, input.AccountID, input.Kind.SourceDelta(input.Amount)); err != nil {
		return nil, err
	}
	if input.Kind == model.KindTransfer {
		if err := tx.ApplyBalanceDelta(ctx, *input.TransferAccountID, input.Amount); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return txn, nil
}
