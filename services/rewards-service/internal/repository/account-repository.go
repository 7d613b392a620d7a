package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/burakmert236/goodswipe-rewards/common/database"
	"github.com/burakmert236/goodswipe-rewards/common/models"
)

type AccountRepository interface {
	Get(ctx context.Context, userId string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	Save(ctx context.Context, account models.Account) error
	Create(ctx context.Context, account models.Account) (bool, error)
	UpdateProfile(ctx context.Context, account models.Account) (*models.Account, error)
	SaveBatch(ctx context.Context, accounts []models.Account) error

	// Transactions
	GetTransactionForGrantingXp(account models.Account, xp int) types.Update
}

type accountRepo struct {
	accounts *database.Collection[models.Account]
}

func NewAccountRepository(store *database.Store) AccountRepository {
	return &accountRepo{accounts: database.NewCollection(store, models.NewAccountAdapter())}
}

func (r *accountRepo) Get(ctx context.Context, userId string) (*models.Account, error) {
	account, found, err := r.accounts.Get(ctx, models.Account{UserId: userId})
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &account, nil
}

func (r *accountRepo) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	account, found, err := r.accounts.First(ctx, database.Query{
		Index: 1,
		Hash:  models.AccountUsernameKey(username),
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &account, nil
}

func (r *accountRepo) Save(ctx context.Context, account models.Account) error {
	if err := r.accounts.Put(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// Create stores a new account. It reports false, without error, when the
// account already exists.
func (r *accountRepo) Create(ctx context.Context, account models.Account) (bool, error) {
	err := r.accounts.Create(ctx, account)
	if errors.Is(err, database.ErrConditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create account: %w", err)
	}
	return true, nil
}

// UpdateProfile rewrites the username, the username index and updatedAt of an
// existing account in place and returns the stored account. XP is never
// written, so grants committed concurrently are kept. An empty RefUsername
// keeps the referrer already recorded.
func (r *accountRepo) UpdateProfile(ctx context.Context, account models.Account) (*models.Account, error) {
	expression := "SET userName = :userName, updatedAt = :updatedAt, #g1h = :g1h, #g1s = :g1s"
	values := database.Item{
		":userName":  &types.AttributeValueMemberS{Value: account.Username},
		":updatedAt": &types.AttributeValueMemberS{Value: database.FormatTime(account.UpdatedAt)},
		":g1h":       &types.AttributeValueMemberS{Value: models.AccountUsernameKey(account.Username)},
		":g1s":       &types.AttributeValueMemberS{Value: models.AccountUpdatedAtSortKey(account)},
	}
	if account.RefUsername != "" {
		expression += ", refUsername = :refUsername"
		values[":refUsername"] = &types.AttributeValueMemberS{Value: account.RefUsername}
	}

	update := r.accounts.Update(
		account,
		expression,
		map[string]string{
			"#g1h": database.GlobalHashAttr(1),
			"#g1s": database.GlobalSortAttr(1),
			"#ph":  database.AttrPrimaryHash,
		},
		values,
	)
	update.ConditionExpression = aws.String("attribute_exists(#ph)")

	stored, err := r.accounts.Apply(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update account profile: %w", err)
	}
	return &stored, nil
}

func (r *accountRepo) SaveBatch(ctx context.Context, accounts []models.Account) error {
	if err := r.accounts.PutBatch(ctx, accounts); err != nil {
		return fmt.Errorf("failed to save accounts batch: %w", err)
	}
	return nil
}

// GetTransactionForGrantingXp increments xp server side. account.UpdatedAt is
// written together with the g1 sort key derived from it. The account must exist.
func (r *accountRepo) GetTransactionForGrantingXp(account models.Account, xp int) types.Update {
	update := r.accounts.Update(
		account,
		"SET xp = xp + :xp, updatedAt = :updatedAt, #g1s = :g1s",
		map[string]string{
			"#g1s": database.GlobalSortAttr(1),
			"#ph":  database.AttrPrimaryHash,
		},
		database.Item{
			":xp":        &types.AttributeValueMemberN{Value: strconv.Itoa(xp)},
			":updatedAt": &types.AttributeValueMemberS{Value: database.FormatTime(account.UpdatedAt)},
			":g1s":       &types.AttributeValueMemberS{Value: models.AccountUpdatedAtSortKey(account)},
		},
	)
	update.ConditionExpression = aws.String("attribute_exists(#ph)")
	return update
}
