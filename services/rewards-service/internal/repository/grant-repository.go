package repository

import (
	"context"
	"fmt"

	"github.com/burakmert236/goodswipe-rewards/common/database"
	"github.com/burakmert236/goodswipe-rewards/common/models"
)

// Names of the operations inside the grant transaction.
const (
	OperationAccount = "account"
	OperationReward  = "reward"
)

// GrantRepository commits an XP increment and its reward record atomically.
// A duplicate reward id cancels the transaction with a *database.TransactionError
// whose OperationReward entry carries ConditionalCheckFailed.
type GrantRepository interface {
	Commit(ctx context.Context, account models.Account, reward models.Reward) error
}

type grantRepo struct {
	accountRepo     AccountRepository
	rewardRepo      RewardRepository
	transactionRepo database.TransactionRepository
}

func NewGrantRepository(
	accountRepo AccountRepository,
	rewardRepo RewardRepository,
	transactionRepo database.TransactionRepository,
) GrantRepository {
	return &grantRepo{
		accountRepo:     accountRepo,
		rewardRepo:      rewardRepo,
		transactionRepo: transactionRepo,
	}
}

func (r *grantRepo) Commit(ctx context.Context, account models.Account, reward models.Reward) error {
	rewardPut, err := r.rewardRepo.GetTransactionForAddingReward(reward)
	if err != nil {
		return err
	}

	tb := database.NewTransactionBuilder()
	if err := tb.AddUpdate(OperationAccount, r.accountRepo.GetTransactionForGrantingXp(account, reward.Amount)); err != nil {
		return fmt.Errorf("failed to add account update: %w", err)
	}
	if err := tb.AddPut(OperationReward, rewardPut); err != nil {
		return fmt.Errorf("failed to add reward put: %w", err)
	}

	return r.transactionRepo.Execute(ctx, tb)
}
